package procedure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/electwix/dbproc/internal/database"
)

// Sentinel errors. Every typed error below matches exactly one of them (or
// names.ErrUnknownReference) with errors.Is.
var (
	ErrConfiguration     = errors.New("invalid procedure configuration")
	ErrSource            = errors.New("procedure source unreadable")
	ErrContext           = errors.New("procedure context failed")
	ErrTemplate          = errors.New("procedure template failed")
	ErrDatabase          = errors.New("procedure database operation failed")
	ErrArgumentMismatch  = errors.New("procedure argument mismatch")
	ErrExecutionWarnings = errors.New("procedure raised warnings")
)

// ConfigurationError reports an invalid declaration option.
type ConfigurationError struct {
	Procedure string
	Field     string
	Value     any
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("procedure %s: invalid %s %#v: %s", e.Procedure, e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// SourceError reports a source file that could not be read.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("read procedure source %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Is reports whether target is ErrSource.
func (e *SourceError) Is(target error) bool { return target == ErrSource }

// GrammarError reports a header or argument list that does not parse.
type GrammarError struct {
	Procedure string
	Err       error
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("procedure %s: %v", e.Procedure, e.Err)
}

// Unwrap returns the parse failure, which matches ErrNotParsable.
func (e *GrammarError) Unwrap() error { return e.Err }

// ReferenceError reports a bracketed reference with no physical identifier.
type ReferenceError struct {
	Procedure string
	Key       string
	Err       error
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("procedure %s: unknown reference [%s]", e.Procedure, e.Key)
}

// Unwrap returns the lookup failure, which matches names.ErrUnknownReference.
func (e *ReferenceError) Unwrap() error { return e.Err }

// ContextError wraps a failure of a computed rendering context.
type ContextError struct {
	Procedure string
	Err       error
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("procedure %s: compute context: %v", e.Procedure, e.Err)
}

func (e *ContextError) Unwrap() error { return e.Err }

// Is reports whether target is ErrContext.
func (e *ContextError) Is(target error) bool { return target == ErrContext }

// TemplateError wraps a template parse or execution failure.
type TemplateError struct {
	Procedure string
	Err       error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("procedure %s: render template: %v", e.Procedure, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTemplate.
func (e *TemplateError) Is(target error) bool { return target == ErrTemplate }

// DatabaseError wraps a driver failure during install or call.
type DatabaseError struct {
	Procedure string
	Op        string
	// Code is the server error number or SQLSTATE, when the driver reports one.
	Code string
	Err  error
}

func newDatabaseError(procedure, op string, err error) *DatabaseError {
	return &DatabaseError{Procedure: procedure, Op: op, Code: database.Code(err), Err: err}
}

func (e *DatabaseError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("procedure %s: %s: [%s] %v", e.Procedure, e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("procedure %s: %s: %v", e.Procedure, e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDatabase.
func (e *DatabaseError) Is(target error) bool { return target == ErrDatabase }

// ExtraArgumentsError reports supplied arguments the procedure does not declare.
type ExtraArgumentsError struct {
	Procedure string
	// Extra lists unknown argument names, sorted.
	Extra []string
	// Positional counts positional values beyond the declared arguments.
	Positional int
	// Given lists every supplied argument name, sorted.
	Given []string
}

func (e *ExtraArgumentsError) Error() string {
	if e.Positional > 0 {
		return fmt.Sprintf("procedure %s: %d positional argument(s) too many", e.Procedure, e.Positional)
	}
	return fmt.Sprintf("procedure %s: unexpected argument(s) %s (given: %s)",
		e.Procedure, strings.Join(e.Extra, ", "), strings.Join(e.Given, ", "))
}

// Is reports whether target is ErrArgumentMismatch.
func (e *ExtraArgumentsError) Is(target error) bool { return target == ErrArgumentMismatch }

// MissingArgumentsError reports declared arguments with no supplied value.
type MissingArgumentsError struct {
	Procedure string
	// Missing lists the absent argument names in declared order.
	Missing []string
	// Given lists every supplied argument name, sorted.
	Given []string
}

func (e *MissingArgumentsError) Error() string {
	return fmt.Sprintf("procedure %s: missing argument(s) %s (given: %s)",
		e.Procedure, strings.Join(e.Missing, ", "), strings.Join(e.Given, ", "))
}

// Is reports whether target is ErrArgumentMismatch.
func (e *MissingArgumentsError) Is(target error) bool { return target == ErrArgumentMismatch }

// ArgumentClashError reports an argument given both by position and by name.
type ArgumentClashError struct {
	Procedure string
	Name      string
}

func (e *ArgumentClashError) Error() string {
	return fmt.Sprintf("procedure %s: argument %s given by position and by name", e.Procedure, e.Name)
}

// Is reports whether target is ErrArgumentMismatch.
func (e *ArgumentClashError) Is(target error) bool { return target == ErrArgumentMismatch }

// ExecutionWarningsError carries the warnings raised by a call. The call
// itself completed and its result is returned alongside.
type ExecutionWarningsError struct {
	Procedure string
	Warnings  []database.Warning
}

func (e *ExecutionWarningsError) Error() string {
	msgs := make([]string, len(e.Warnings))
	for i, w := range e.Warnings {
		msgs[i] = w.String()
	}
	return fmt.Sprintf("procedure %s: %d warning(s): %s", e.Procedure, len(e.Warnings), strings.Join(msgs, "; "))
}

// Is reports whether target is ErrExecutionWarnings.
func (e *ExecutionWarningsError) Is(target error) bool { return target == ErrExecutionWarnings }
