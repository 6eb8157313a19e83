package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/electwix/dbproc/internal/database"
	"github.com/electwix/dbproc/internal/pipeline"
	"github.com/electwix/dbproc/internal/procedure"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Install, call or render failed
	ExitCommandError = 2 // Bad invocation or configuration
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// wrapFailure wraps a failed install or call as ExitFailure, pointing at the
// fix for driver errors with an obvious one.
func wrapFailure(message string, err error) *ExitError {
	switch {
	case database.IsUndefinedProcedure(err):
		message += " (procedure not installed; run `dbproc install`)"
	case database.IsSyntaxError(err):
		message += " (server rejected the SQL; inspect it with `dbproc render`)"
	}
	return WrapExitError(ExitFailure, message, err)
}

// GetExitCode extracts the exit code from an error. Declaration and
// configuration failures map to ExitCommandError, anything else without an
// ExitError to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		return ExitCommandError
	}
	if errors.Is(err, procedure.ErrConfiguration) {
		return ExitCommandError
	}
	return ExitFailure
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// formatValue renders a result value for text output.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

func writeRow(w io.Writer, cells []any) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = formatValue(c)
	}
	_, _ = fmt.Fprintln(w, strings.Join(parts, "\t"))
}

// usageArgs reports positional argument errors as command errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}
