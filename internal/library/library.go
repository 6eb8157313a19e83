// Package library keeps the procedures an application declares and installs
// them together, once per process unless forced.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/electwix/dbproc/internal/database"
	"github.com/electwix/dbproc/internal/engine"
	"github.com/electwix/dbproc/internal/logging"
	"github.com/electwix/dbproc/internal/names"
	"github.com/electwix/dbproc/internal/procedure"
)

// ErrNoConnector is returned by operations that need a database when the
// library was built without one.
var ErrNoConnector = errors.New("library: no database connector")

// ErrUnknownProcedure is matched by every UnknownProcedureError.
var ErrUnknownProcedure = errors.New("unknown procedure")

// UnknownProcedureError reports a lookup by a name nobody registered.
type UnknownProcedureError struct {
	Name string
}

func (e *UnknownProcedureError) Error() string {
	return fmt.Sprintf("unknown procedure %q", e.Name)
}

// Is reports whether target is ErrUnknownProcedure.
func (e *UnknownProcedureError) Is(target error) bool { return target == ErrUnknownProcedure }

// Library is an ordered collection of procedures sharing one name mapper,
// dialect and database.
type Library struct {
	mapper *names.Mapper
	eng    engine.Engine
	conn   database.Connector
	logger *slog.Logger

	mu         sync.Mutex
	procedures []*procedure.Procedure
	installed  bool
}

// Option configures a Library.
type Option func(*Library)

// WithConnector sets the database used by InstallAll, Install and Call.
func WithConnector(conn database.Connector) Option {
	return func(l *Library) { l.conn = conn }
}

// WithLogger sets the logger handed to installs.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates an empty library. Without WithConnector the library can still
// render procedures.
func New(mapper *names.Mapper, eng engine.Engine, opts ...Option) *Library {
	l := &Library{
		mapper: mapper,
		eng:    eng,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register appends procedures in order. Duplicates are kept; Lookup returns
// the first.
func (l *Library) Register(procs ...*procedure.Procedure) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.procedures = append(l.procedures, procs...)
}

// Replace swaps the first procedure loaded from the same path for p. It
// reports false when no such procedure is registered.
func (l *Library) Replace(p *procedure.Procedure) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, existing := range l.procedures {
		if existing.Path() == p.Path() {
			l.procedures[i] = p
			return true
		}
	}
	return false
}

// Procedures returns the registered procedures in registration order.
func (l *Library) Procedures() []*procedure.Procedure {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.procedures)
}

// Lookup returns the first procedure registered under name. An exact match
// wins over a case-insensitive one.
func (l *Library) Lookup(name string) (*procedure.Procedure, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.procedures {
		if p.Name() == name {
			return p, true
		}
	}
	for _, p := range l.procedures {
		if strings.EqualFold(p.Name(), name) {
			return p, true
		}
	}
	return nil, false
}

// Mapper returns the name mapper shared by all procedures.
func (l *Library) Mapper() *names.Mapper { return l.mapper }

// Engine returns the target dialect.
func (l *Library) Engine() engine.Engine { return l.eng }

// RenderEnv returns the rendering environment for this library's dialect.
func (l *Library) RenderEnv() procedure.RenderEnv {
	var env procedure.RenderEnv
	if l.mapper != nil {
		env.Names = l.mapper
	}
	if l.eng != nil {
		env.Quote = l.eng.QuoteIdent
	}
	return env
}

// Installed reports whether InstallAll has run.
func (l *Library) Installed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.installed
}

// Reset forgets that the library was installed and drops the cached name
// mapping so that the next install sees current models.
func (l *Library) Reset() {
	l.mu.Lock()
	l.installed = false
	l.mu.Unlock()
	if l.mapper != nil {
		l.mapper.Reset()
	}
}

// Hook runs around each procedure during an install.
type Hook func(ctx context.Context, p *procedure.Procedure) error

// InstallOptions configure InstallAll and Install.
type InstallOptions struct {
	// Verbosity 2 and above logs creation warnings.
	Verbosity int
	// Force installs even if the library is already installed.
	Force bool
	// BeforeInstall runs before a procedure is rendered.
	BeforeInstall Hook
	// AfterRender runs once the procedure's SQL is rendered and before it
	// is sent.
	AfterRender Hook
}

// InstallReport describes one InstallAll pass.
type InstallReport struct {
	RunID uuid.UUID
	// Installed names the procedures sent, in order.
	Installed []string
	// Skipped is set when the library was already installed.
	Skipped bool
}

// InstallAll renders and sends every registered procedure in registration
// order. It does nothing when the library is already installed unless Force
// is set. The library counts as installed as soon as a pass starts; the first
// failure ends the pass and is returned.
func (l *Library) InstallAll(ctx context.Context, opts InstallOptions) (InstallReport, error) {
	l.mu.Lock()
	if l.installed && !opts.Force {
		l.mu.Unlock()
		return InstallReport{Skipped: true}, nil
	}
	l.installed = true
	procs := slices.Clone(l.procedures)
	l.mu.Unlock()

	report := InstallReport{RunID: uuid.New()}
	if len(procs) > 0 && l.conn == nil {
		return report, ErrNoConnector
	}

	logger := l.logger.With("run", report.RunID.String())
	logger.Info("installing procedures", "count", len(procs))

	for _, p := range procs {
		if err := l.install(ctx, p, opts, logger); err != nil {
			return report, err
		}
		report.Installed = append(report.Installed, p.Name())
	}
	return report, nil
}

// Install renders and sends the procedure registered under name, regardless
// of whether the library is installed.
func (l *Library) Install(ctx context.Context, name string, opts InstallOptions) error {
	p, ok := l.Lookup(name)
	if !ok {
		return &UnknownProcedureError{Name: name}
	}
	return l.InstallProcedure(ctx, p, opts)
}

// InstallProcedure renders and sends p itself, which need not be the first
// procedure registered under its name.
func (l *Library) InstallProcedure(ctx context.Context, p *procedure.Procedure, opts InstallOptions) error {
	if l.conn == nil {
		return ErrNoConnector
	}
	return l.install(ctx, p, opts, l.logger)
}

func (l *Library) install(ctx context.Context, p *procedure.Procedure, opts InstallOptions, logger *slog.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if opts.BeforeInstall != nil {
		if err := opts.BeforeInstall(ctx, p); err != nil {
			return err
		}
	}
	if _, err := p.Render(ctx, l.RenderEnv()); err != nil {
		return err
	}
	if opts.AfterRender != nil {
		if err := opts.AfterRender(ctx, p); err != nil {
			return err
		}
	}
	return p.Send(ctx, l.conn, procedure.SendOptions{Verbosity: opts.Verbosity, Logger: logger})
}

// Render renders the procedure registered under name without touching the
// database.
func (l *Library) Render(ctx context.Context, name string) (string, error) {
	p, ok := l.Lookup(name)
	if !ok {
		return "", &UnknownProcedureError{Name: name}
	}
	return p.Render(ctx, l.RenderEnv())
}

// Call invokes the procedure registered under name.
func (l *Library) Call(ctx context.Context, name string, args procedure.Args) (*procedure.Result, error) {
	p, ok := l.Lookup(name)
	if !ok {
		return nil, &UnknownProcedureError{Name: name}
	}
	if l.conn == nil {
		return nil, ErrNoConnector
	}
	return p.Call(ctx, l.conn, args)
}
