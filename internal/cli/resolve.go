package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/electwix/dbproc/internal/names"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	All bool
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <symbol> ...",
		Short: "Print the physical identifier of model symbols",
		Long: `Print the table or column a model symbol maps to.

Symbols are "app.Model", "app.Model.field" or "app.Model.pk".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.All && len(args) == 0 {
				return NewExitError(ExitCommandError, "resolve needs at least one symbol or --all")
			}
			return runResolve(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "print every known symbol")

	return cmd
}

func runResolve(cmd *cobra.Command, opts *ResolveOptions, symbols []string) error {
	_, s, err := opts.open(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	mapper := s.Library.Mapper()
	resolved := make(map[string]string)
	order := symbols
	if opts.All {
		resolved = mapper.Mapping()
		order = slices.Sorted(maps.Keys(resolved))
	} else {
		for _, symbol := range symbols {
			ident, err := mapper.Resolve(symbol)
			if err != nil {
				if errors.Is(err, names.ErrUnknownReference) {
					return WrapExitError(ExitFailure, "resolve", err)
				}
				return err
			}
			resolved[symbol] = ident
		}
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput() {
		return writeJSON(out, resolved)
	}
	tw := newTable(out)
	for _, symbol := range order {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", symbol, resolved[symbol])
	}
	return tw.Flush()
}
