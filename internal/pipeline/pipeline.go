// Package pipeline wires configuration, models, dialect, procedures and the
// database into a ready-to-use procedure library.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/electwix/dbproc/internal/cache"
	"github.com/electwix/dbproc/internal/config"
	"github.com/electwix/dbproc/internal/database"
	"github.com/electwix/dbproc/internal/engine"
	_ "github.com/electwix/dbproc/internal/engine/builtin" // register dialects
	"github.com/electwix/dbproc/internal/fileset"
	"github.com/electwix/dbproc/internal/library"
	"github.com/electwix/dbproc/internal/logging"
	"github.com/electwix/dbproc/internal/models"
	"github.com/electwix/dbproc/internal/names"
	"github.com/electwix/dbproc/internal/procedure"
)

// Environment captures external dependencies used by the pipeline.
type Environment struct {
	// Resolver overrides the OS resolver rooted at source_root.
	Resolver *fileset.Resolver
	Logger   *slog.Logger
	Writer   Writer
	// Connect opens the database; defaults to database.Open.
	Connect func(ctx context.Context, eng engine.Engine, dsn string) (*database.DB, error)
	// Getenv reads dsn_env; defaults to os.Getenv.
	Getenv func(string) string
}

// Writer writes rendered files to persistent storage.
type Writer interface {
	WriteFile(path string, data []byte) error
}

// Pipeline orchestrates configuration loading, procedure declaration, and
// installation.
type Pipeline struct {
	Env   Environment
	Hooks Hooks
}

// Stage names a pipeline step for error reporting.
type Stage string

const (
	StageConfig    Stage = "config"
	StageModels    Stage = "models"
	StageProcedure Stage = "procedure"
	StageDatabase  Stage = "database"
)

// StageError wraps a failure with the step and file it occurred in.
type StageError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Path, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// WriteError wraps failures encountered while writing rendered files.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ErrNoDSN is returned when a connection is requested but the configuration
// names no data source.
var ErrNoDSN = errors.New("pipeline: no database dsn configured (set dsn or dsn_env)")

// ErrUnchanged is returned by Reinstall when there is nothing to install.
var ErrUnchanged = errors.New("pipeline: procedure unchanged")

// NewOSWriter returns a Writer that performs atomic writes on the local filesystem.
func NewOSWriter() Writer {
	return &osWriter{perm: 0o644}
}

type osWriter struct {
	perm fs.FileMode
}

func (w *osWriter) WriteFile(path string, data []byte) error {
	if path == "" {
		return errors.New("pipeline: empty path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".dbproc-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
		_ = tmp.Close()
	}()
	if w.perm != 0 {
		if err := tmp.Chmod(w.perm); err != nil {
			return fmt.Errorf("chmod temp file: %w", err)
		}
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	success = true
	return nil
}

// OpenOptions configures Open.
type OpenOptions struct {
	ConfigPath   string
	StrictConfig bool
	// Connect opens the configured database. Without it the session can
	// render, resolve and list but not install or call.
	Connect bool
	// DSN overrides the configured data source.
	DSN string
}

// Session is a loaded configuration with its declared procedures.
type Session struct {
	Plan     config.Plan
	Warnings []string
	Catalog  *models.Catalog
	Engine   engine.Engine
	Library  *library.Library

	db       *database.DB
	resolver fileset.Resolver
	logger   *slog.Logger
	digests  *cache.Digests
}

// Open loads the configuration at opts.ConfigPath, builds the model catalog
// and declares every configured procedure in configuration order.
func (p *Pipeline) Open(ctx context.Context, opts OpenOptions) (*Session, error) {
	logger := p.logger()

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultFile
	}
	absConfigPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, &StageError{Stage: StageConfig, Path: configPath, Err: err}
	}

	loadResult, err := config.Load(absConfigPath, config.LoadOptions{
		Strict:   opts.StrictConfig,
		Resolver: p.Env.Resolver,
		Getenv:   p.Env.Getenv,
	})
	if err != nil {
		return nil, &StageError{Stage: StageConfig, Path: absConfigPath, Err: err}
	}
	for _, warning := range loadResult.Warnings {
		logger.Warn(warning)
	}
	plan := loadResult.Plan

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	catalog, err := models.LoadManifest(plan.Models)
	if err != nil {
		return nil, &StageError{Stage: StageModels, Path: plan.Models, Err: err}
	}
	logger.Debug("models loaded", "path", plan.Models, "count", catalog.Len())

	eng, err := engine.New(plan.Database.Dialect, engine.Options{Driver: plan.Database.Driver})
	if err != nil {
		return nil, &StageError{Stage: StageConfig, Path: absConfigPath, Err: err}
	}

	var resolver fileset.Resolver
	if p.Env.Resolver != nil {
		resolver = *p.Env.Resolver
	} else {
		resolver, err = fileset.NewOSResolver(plan.SourceRoot)
		if err != nil {
			return nil, &StageError{Stage: StageConfig, Path: absConfigPath, Err: err}
		}
	}

	s := &Session{
		Plan:     plan,
		Warnings: loadResult.Warnings,
		Catalog:  catalog,
		Engine:   eng,
		resolver: resolver,
		logger:   logger,
		digests:  cache.NewDigests(),
	}

	libOpts := []library.Option{library.WithLogger(logger)}
	if opts.Connect {
		dsn := plan.Database.DSN
		if opts.DSN != "" {
			dsn = opts.DSN
		}
		if dsn == "" {
			return nil, &StageError{Stage: StageDatabase, Err: ErrNoDSN}
		}
		db, err := p.connect(ctx, eng, dsn)
		if err != nil {
			return nil, &StageError{Stage: StageDatabase, Err: err}
		}
		s.db = db
		libOpts = append(libOpts, library.WithConnector(db))
	}

	s.Library = library.New(names.NewMapper(catalog, eng.QuoteIdent), eng, libOpts...)

	for _, pp := range plan.Procedures {
		if err := ctx.Err(); err != nil {
			_ = s.Close()
			return nil, err
		}
		proc, err := procedure.Load(resolver, pp.Path, pp.Options())
		if err != nil {
			_ = s.Close()
			return nil, &StageError{Stage: StageProcedure, Path: pp.Path, Err: err}
		}
		s.Library.Register(proc)
		logger.Debug("procedure declared", "procedure", proc.Name(), "path", proc.Path(), "arguments", proc.Arguments())
	}

	return s, nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Env.Logger != nil {
		return p.Env.Logger
	}
	return logging.Discard()
}

func (p *Pipeline) connect(ctx context.Context, eng engine.Engine, dsn string) (*database.DB, error) {
	if p.Env.Connect != nil {
		return p.Env.Connect(ctx, eng, dsn)
	}
	return database.Open(ctx, eng, dsn, database.WithLogger(p.logger()))
}

// Close releases the database connection, if any.
func (s *Session) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	return db.Close()
}

// Connected reports whether the session holds a database connection.
func (s *Session) Connected() bool {
	return s != nil && s.db != nil
}

// Reload re-reads the source of the procedure declared at path and replaces
// it in the library. It returns the new procedure.
func (s *Session) Reload(path string) (*procedure.Procedure, error) {
	for _, pp := range s.Plan.Procedures {
		if pp.Path != path {
			continue
		}
		proc, err := procedure.Load(s.resolver, pp.Path, pp.Options())
		if err != nil {
			return nil, &StageError{Stage: StageProcedure, Path: pp.Path, Err: err}
		}
		if !s.Library.Replace(proc) {
			s.Library.Register(proc)
		}
		s.logger.Debug("procedure reloaded", "procedure", proc.Name(), "path", proc.Path())
		return proc, nil
	}
	return nil, fmt.Errorf("%s: not a declared procedure source", path)
}

// InstallOptions configures Install.
type InstallOptions struct {
	Force bool
	// Verbosity overrides the configured verbosity when not nil.
	Verbosity *int
}

// Install installs every declared procedure, running the pipeline hooks.
func (p *Pipeline) Install(ctx context.Context, s *Session, opts InstallOptions) (library.InstallReport, error) {
	verbosity := s.Plan.Verbosity
	if opts.Verbosity != nil {
		verbosity = *opts.Verbosity
	}

	report, err := s.Library.InstallAll(ctx, library.InstallOptions{
		Verbosity:     verbosity,
		Force:         opts.Force,
		BeforeInstall: p.Hooks.BeforeInstall,
		AfterRender:   p.Hooks.AfterRender,
	})
	s.recordInstalled(report.Installed)
	if err != nil {
		return report, err
	}
	if p.Hooks.AfterInstall != nil {
		if err := p.Hooks.AfterInstall(ctx, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// Reinstall reloads the procedure declared at path and installs it,
// regardless of whether the library was installed before. It returns
// ErrUnchanged without touching the database when the rendered SQL matches
// what this session last installed from path.
func (p *Pipeline) Reinstall(ctx context.Context, s *Session, path string) (*procedure.Procedure, error) {
	proc, err := s.Reload(path)
	if err != nil {
		return nil, err
	}
	sql, err := proc.Render(ctx, s.Library.RenderEnv())
	if err != nil {
		return proc, err
	}
	key := cache.ComputeKey([]byte(sql))
	if !s.digests.Changed(path, key) {
		s.logger.Debug("procedure unchanged", "procedure", proc.Name(), "path", path)
		return proc, ErrUnchanged
	}

	err = s.Library.InstallProcedure(ctx, proc, library.InstallOptions{
		Verbosity:     s.Plan.Verbosity,
		BeforeInstall: p.Hooks.BeforeInstall,
		AfterRender:   p.Hooks.AfterRender,
	})
	if err != nil {
		s.digests.Delete(path)
		return proc, err
	}
	s.digests.Set(path, key)
	return proc, nil
}

// recordInstalled remembers the SQL installed for each named procedure.
func (s *Session) recordInstalled(installed []string) {
	for _, proc := range s.Library.Procedures() {
		if slices.Contains(installed, proc.Name()) && proc.SQL() != "" {
			s.digests.Set(proc.Path(), cache.ComputeKey([]byte(proc.SQL())))
		}
	}
}

// Sources returns the source path of every declared procedure, in
// configuration order.
func (s *Session) Sources() []string {
	paths := make([]string, len(s.Plan.Procedures))
	for i, pp := range s.Plan.Procedures {
		paths[i] = pp.Path
	}
	return paths
}

// File is one rendered procedure.
type File struct {
	Procedure string
	Path      string
	Content   []byte
}

// RenderOptions configures Render.
type RenderOptions struct {
	// Procedures limits rendering to these names; empty renders all.
	Procedures []string
	// OutDir receives one <name>.sql file per procedure. Empty renders
	// without writing.
	OutDir string
}

// Summary captures rendered files.
type Summary struct {
	Files   []File
	Written []string
}

// Render renders procedures without touching the database and optionally
// writes them to OutDir. Files whose content is unchanged are not rewritten.
func (p *Pipeline) Render(ctx context.Context, s *Session, opts RenderOptions) (Summary, error) {
	var summary Summary

	procs, err := selectProcedures(s.Library, opts.Procedures)
	if err != nil {
		return summary, err
	}

	for _, proc := range procs {
		if p.Hooks.BeforeInstall != nil {
			if err := p.Hooks.BeforeInstall(ctx, proc); err != nil {
				return summary, err
			}
		}
		sql, err := proc.Render(ctx, s.Library.RenderEnv())
		if err != nil {
			return summary, err
		}
		if p.Hooks.AfterRender != nil {
			if err := p.Hooks.AfterRender(ctx, proc); err != nil {
				return summary, err
			}
		}
		file := File{Procedure: proc.Name(), Content: []byte(sql)}
		if opts.OutDir != "" {
			file.Path = filepath.Join(opts.OutDir, proc.Name()+".sql")
		}
		summary.Files = append(summary.Files, file)
	}

	if opts.OutDir == "" {
		return summary, nil
	}

	writer := p.Env.Writer
	if writer == nil {
		writer = NewOSWriter()
	}
	for _, file := range summary.Files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		same, cmpErr := fileMatches(file.Path, file.Content)
		if cmpErr != nil {
			return summary, &WriteError{Path: file.Path, Err: cmpErr}
		}
		if same {
			continue
		}
		if err := writer.WriteFile(file.Path, file.Content); err != nil {
			return summary, &WriteError{Path: file.Path, Err: err}
		}
		summary.Written = append(summary.Written, file.Path)
	}
	return summary, nil
}

func selectProcedures(lib *library.Library, wanted []string) ([]*procedure.Procedure, error) {
	if len(wanted) == 0 {
		return lib.Procedures(), nil
	}
	procs := make([]*procedure.Procedure, 0, len(wanted))
	for _, name := range wanted {
		proc, ok := lib.Lookup(name)
		if !ok {
			return nil, &library.UnknownProcedureError{Name: name}
		}
		procs = append(procs, proc)
	}
	return procs, nil
}

func fileMatches(path string, content []byte) (bool, error) {
	existing, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(existing, content), nil
}
