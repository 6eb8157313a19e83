package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/electwix/dbproc/internal/library"
	"github.com/electwix/dbproc/internal/procedure"
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	Set []string
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call <procedure> [value ...]",
		Short: "Call an installed procedure",
		Long: `Call an installed procedure. Values bind positionally to the declared
arguments; --set binds by name.

Example:
  dbproc call stock_level 4 --set since=2024-01-01`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, opts, args[0], args[1:])
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "named argument as name=value (repeatable)")

	return cmd
}

func parseNamed(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	named := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("--set %q: want name=value", pair)
		}
		if _, dup := named[name]; dup {
			return nil, fmt.Errorf("--set %q: %s given twice", pair, name)
		}
		named[name] = value
	}
	return named, nil
}

func runCall(cmd *cobra.Command, opts *CallOptions, name string, values []string) error {
	named, err := parseNamed(opts.Set)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}
	positional := make([]any, len(values))
	for i, v := range values {
		positional[i] = v
	}

	_, s, err := opts.open(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.Library.Call(cmd.Context(), name, procedure.Args{Positional: positional, Named: named})
	if err != nil && !errors.Is(err, procedure.ErrExecutionWarnings) {
		if errors.Is(err, procedure.ErrArgumentMismatch) || errors.Is(err, library.ErrUnknownProcedure) {
			return WrapExitError(ExitCommandError, "call "+name, err)
		}
		return wrapFailure("call "+name, err)
	}

	out := cmd.OutOrStdout()
	var printErr error
	if opts.jsonOutput() {
		printErr = writeJSON(out, callJSON(name, result))
	} else {
		printResult(out, result)
	}
	if printErr != nil {
		return printErr
	}
	if err != nil {
		// Warnings still fail the call once the result is shown.
		return wrapFailure("call "+name, err)
	}
	return nil
}

func callJSON(name string, result *procedure.Result) map[string]any {
	payload := map[string]any{"procedure": name, "result": nil}
	if result == nil || len(result.Sets) == 0 {
		return payload
	}
	if row, ok := result.Single(); ok {
		set := result.Sets[0]
		m := make(map[string]any, len(set.Columns))
		for i, col := range set.Columns {
			m[col] = row[i]
		}
		payload["result"] = m
		return payload
	}
	sets := make([][]map[string]any, len(result.Sets))
	for i, set := range result.Sets {
		sets[i] = set.Maps()
	}
	payload["result"] = sets
	return payload
}

func printResult(w io.Writer, result *procedure.Result) {
	if result == nil || len(result.Sets) == 0 {
		_, _ = fmt.Fprintln(w, "ok")
		return
	}

	tw := newTable(w)
	if row, ok := result.Single(); ok {
		for i, col := range result.Sets[0].Columns {
			writeRow(tw, []any{col, row[i]})
		}
		_ = tw.Flush()
		return
	}

	for i, set := range result.Sets {
		if i > 0 {
			_, _ = fmt.Fprintln(tw)
		}
		header := make([]any, len(set.Columns))
		for j, col := range set.Columns {
			header[j] = col
		}
		writeRow(tw, header)
		for _, row := range set.Rows {
			writeRow(tw, row)
		}
	}
	_ = tw.Flush()
}
