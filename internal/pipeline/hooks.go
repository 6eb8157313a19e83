package pipeline

import (
	"context"

	"github.com/electwix/dbproc/internal/library"
	"github.com/electwix/dbproc/internal/procedure"
)

// Hooks provides extension points around installing and rendering.
type Hooks struct {
	// BeforeInstall is called before each procedure is rendered.
	// Return an error to abort the pass.
	BeforeInstall library.Hook

	// AfterRender is called once a procedure's SQL is rendered and before it
	// is sent. Return an error to abort the pass.
	AfterRender library.Hook

	// AfterInstall is called after a successful install pass, including one
	// skipped because the library was already installed.
	AfterInstall func(ctx context.Context, report library.InstallReport) error
}

// Chain combines two Hooks, calling h's hooks first, then other's hooks.
// If a hook in h returns an error, other's hook is not called.
func (h Hooks) Chain(other Hooks) Hooks {
	return Hooks{
		BeforeInstall: chainHook[*procedure.Procedure](h.BeforeInstall, other.BeforeInstall),
		AfterRender:   chainHook[*procedure.Procedure](h.AfterRender, other.AfterRender),
		AfterInstall:  chainHook(h.AfterInstall, other.AfterInstall),
	}
}

// chainHook chains two hooks of the same type.
func chainHook[T any](first, second func(context.Context, T) error) func(context.Context, T) error {
	if first == nil {
		return second
	}
	if second == nil {
		return first
	}
	return func(ctx context.Context, arg T) error {
		if err := first(ctx, arg); err != nil {
			return err
		}
		return second(ctx, arg)
	}
}

// NoHooks returns a Hooks with all nil functions (no-op).
func NoHooks() Hooks {
	return Hooks{}
}
