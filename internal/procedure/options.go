package procedure

import (
	"maps"
	"slices"
	"strings"
	"unicode"
)

// NameOption selects how the procedure name is determined. The zero value
// infers it from the source header.
type NameOption struct {
	explicit string
	set      bool
}

// InferName reads the name from the CREATE PROCEDURE header.
func InferName() NameOption { return NameOption{} }

// ExplicitName uses name as given.
func ExplicitName(name string) NameOption { return NameOption{explicit: name, set: true} }

// Explicit returns the explicit name and whether one was given.
func (o NameOption) Explicit() (string, bool) { return o.explicit, o.set }

// ArgumentsOption selects how the canonical argument order is determined.
// The zero value infers it from the source header.
type ArgumentsOption struct {
	names []string
	set   bool
}

// InferArguments reads the argument list from the CREATE PROCEDURE header.
func InferArguments() ArgumentsOption { return ArgumentsOption{} }

// ExplicitArguments uses names, in order, as the canonical argument order.
func ExplicitArguments(names ...string) ArgumentsOption {
	return ArgumentsOption{names: slices.Clone(names), set: true}
}

// Explicit returns the explicit names and whether they were given.
func (o ArgumentsOption) Explicit() ([]string, bool) { return slices.Clone(o.names), o.set }

// ContextFunc computes a rendering context from the procedure being rendered.
type ContextFunc func(p *Procedure) (map[string]any, error)

type contextKind uint8

const (
	contextNone contextKind = iota
	contextStatic
	contextComputed
)

// ContextOption selects the rendering context. The zero value renders no
// template.
type ContextOption struct {
	kind    contextKind
	static  map[string]any
	compute ContextFunc
}

// NoContext skips template rendering.
func NoContext() ContextOption { return ContextOption{} }

// StaticContext renders the source as a template with values.
func StaticContext(values map[string]any) ContextOption {
	return ContextOption{kind: contextStatic, static: maps.Clone(values)}
}

// ComputedContext renders the source as a template with the values fn
// returns at render time.
func ComputedContext(fn ContextFunc) ContextOption {
	return ContextOption{kind: contextComputed, compute: fn}
}

// Enabled reports whether a context, and so template rendering, is configured.
func (o ContextOption) Enabled() bool { return o.kind != contextNone }

// Options declares a procedure. Use DefaultOptions for the usual flags.
type Options struct {
	Name      NameOption
	Arguments ArgumentsOption
	Context   ContextOption
	// Results reports whether a call yields result sets.
	Results bool
	// Flatten collapses a single result set holding a single row to that row.
	Flatten bool
	// RaiseWarnings turns call warnings into an *ExecutionWarningsError and
	// logs install warnings regardless of verbosity.
	RaiseWarnings bool
}

// DefaultOptions infers name and arguments, renders no template and
// flattens singleton results.
func DefaultOptions() Options {
	return Options{Flatten: true}
}

func (o Options) validate(label string) error {
	if name, ok := o.Name.Explicit(); ok {
		if strings.TrimSpace(name) == "" {
			return &ConfigurationError{Procedure: label, Field: "name", Value: name, Reason: "must not be empty"}
		}
		if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
			return &ConfigurationError{Procedure: label, Field: "name", Value: name, Reason: "must not contain whitespace"}
		}
	}

	if args, ok := o.Arguments.Explicit(); ok {
		seen := make(map[string]struct{}, len(args))
		for _, arg := range args {
			if strings.TrimSpace(arg) == "" {
				return &ConfigurationError{Procedure: label, Field: "arguments", Value: args, Reason: "argument names must not be empty"}
			}
			if _, dup := seen[arg]; dup {
				return &ConfigurationError{Procedure: label, Field: "arguments", Value: args, Reason: "duplicate argument " + arg}
			}
			seen[arg] = struct{}{}
		}
	}

	switch o.Context.kind {
	case contextNone, contextStatic:
	case contextComputed:
		if o.Context.compute == nil {
			return &ConfigurationError{Procedure: label, Field: "context", Value: nil, Reason: "computed context needs a function"}
		}
	default:
		return &ConfigurationError{Procedure: label, Field: "context", Value: o.Context.kind, Reason: "unknown context kind"}
	}
	return nil
}
