// Package config loads and validates the dbproc configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-sql-driver/mysql"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/electwix/dbproc/internal/engine"
	_ "github.com/electwix/dbproc/internal/engine/builtin" // dialects validated below
	mysqlengine "github.com/electwix/dbproc/internal/engine/mysql"
	"github.com/electwix/dbproc/internal/fileset"
	"github.com/electwix/dbproc/internal/procedure"
)

// DefaultFile is the configuration file name looked up by the CLI.
const DefaultFile = "dbproc.toml"

// DefaultDialect is used when [database] names no dialect.
const DefaultDialect = "mysql"

// MaxVerbosity is the highest meaningful verbosity.
const MaxVerbosity = 3

// DatabaseConfig captures the [database] table.
type DatabaseConfig struct {
	Dialect string `toml:"dialect"`
	Driver  string `toml:"driver"`
	DSN     string `toml:"dsn"`
	DSNEnv  string `toml:"dsn_env"`
}

// ProcedureConfig captures one [[procedure]] entry.
type ProcedureConfig struct {
	File string `toml:"file"`
	Name string `toml:"name"`
	// Arguments is nil when inferred; an empty list declares no arguments.
	Arguments     []string       `toml:"arguments"`
	Results       bool           `toml:"results"`
	Flatten       *bool          `toml:"flatten"`
	RaiseWarnings bool           `toml:"raise_warnings"`
	Context       map[string]any `toml:"context"`
}

// Config mirrors the expected dbproc TOML schema.
type Config struct {
	Models     string            `toml:"models"`
	SourceRoot string            `toml:"source_root"`
	Verbosity  int               `toml:"verbosity"`
	Procedures []string          `toml:"procedures"`
	Database   DatabaseConfig    `toml:"database"`
	Procedure  []ProcedureConfig `toml:"procedure"`
}

// Database is the resolved connection target.
type Database struct {
	Dialect string
	Driver  string
	// DSN is empty when neither dsn nor the dsn_env variable is set; commands
	// that need a connection report that.
	DSN string
}

// ProcedurePlan is one procedure to declare, with its source resolved.
type ProcedurePlan struct {
	Path          string
	Name          string
	Arguments     []string
	ArgumentsSet  bool
	Results       bool
	Flatten       bool
	RaiseWarnings bool
	Context       map[string]any
}

// Options converts the plan into declaration options.
func (p ProcedurePlan) Options() procedure.Options {
	opts := procedure.DefaultOptions()
	if p.Name != "" {
		opts.Name = procedure.ExplicitName(p.Name)
	}
	if p.ArgumentsSet {
		opts.Arguments = procedure.ExplicitArguments(p.Arguments...)
	}
	if p.Context != nil {
		opts.Context = procedure.StaticContext(p.Context)
	}
	opts.Results = p.Results
	opts.Flatten = p.Flatten
	opts.RaiseWarnings = p.RaiseWarnings
	return opts
}

// Plan is the fully-resolved configuration used by downstream stages.
type Plan struct {
	ConfigPath string
	SourceRoot string
	Models     string
	Verbosity  int
	Database   Database
	Procedures []ProcedurePlan
}

// LoadOptions tunes config loading behavior.
type LoadOptions struct {
	Strict bool
	// Resolver resolves procedure globs and files; defaults to an OS resolver
	// rooted at source_root.
	Resolver *fileset.Resolver
	// Getenv reads dsn_env; defaults to os.Getenv.
	Getenv func(string) string
}

// Result wraps a loaded plan alongside any non-fatal warnings.
type Result struct {
	Plan     Plan
	Warnings []string
}

// Load reads, validates, and resolves a dbproc configuration file.
func Load(path string, opts LoadOptions) (Result, error) {
	var res Result

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	unknownKeys, err := collectUnknownKeys(data)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	if len(unknownKeys) > 0 {
		slices.Sort(unknownKeys)
		message := fmt.Sprintf("%s: unknown configuration keys: %s", path, strings.Join(unknownKeys, ", "))
		if opts.Strict {
			return res, errors.New(message)
		}
		res.Warnings = append(res.Warnings, message)
	}

	models, err := resolveModels(path, cfg.Models)
	if err != nil {
		return res, err
	}

	sourceRoot, err := resolveSourceRoot(path, cfg.SourceRoot)
	if err != nil {
		return res, err
	}

	if cfg.Verbosity < 0 || cfg.Verbosity > MaxVerbosity {
		return res, fmt.Errorf("%s: verbosity must be between 0 and %d, got %d", path, MaxVerbosity, cfg.Verbosity)
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	db, err := resolveDatabase(path, cfg.Database, getenv)
	if err != nil {
		return res, err
	}

	var resolver fileset.Resolver
	if opts.Resolver != nil {
		resolver = *opts.Resolver
	} else {
		resolver, err = fileset.NewOSResolver(sourceRoot)
		if err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
	}

	procs, err := resolveProcedures(resolver, cfg)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	if len(procs) == 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: no procedures declared", path))
	}

	res.Plan = Plan{
		ConfigPath: path,
		SourceRoot: sourceRoot,
		Models:     models,
		Verbosity:  cfg.Verbosity,
		Database:   db,
		Procedures: procs,
	}
	return res, nil
}

var (
	knownKeys          = []string{"models", "source_root", "verbosity", "procedures", "database", "procedure"}
	knownDatabaseKeys  = []string{"dialect", "driver", "dsn", "dsn_env"}
	knownProcedureKeys = []string{"file", "name", "arguments", "results", "flatten", "raise_warnings", "context"}
)

func collectUnknownKeys(data []byte) ([]string, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	unknown := unknownIn(raw, knownKeys, "")

	if record, ok := raw["database"].(map[string]any); ok {
		unknown = append(unknown, unknownIn(record, knownDatabaseKeys, "database.")...)
	}
	if entries, ok := raw["procedure"].([]any); ok {
		for i, entry := range entries {
			if record, ok := entry.(map[string]any); ok {
				unknown = append(unknown, unknownIn(record, knownProcedureKeys, fmt.Sprintf("procedure[%d].", i))...)
			}
		}
	}
	return unknown, nil
}

func unknownIn(record map[string]any, known []string, prefix string) []string {
	unknown := make([]string, 0)
	for key := range record {
		if !slices.Contains(known, key) {
			unknown = append(unknown, prefix+key)
		}
	}
	return unknown
}

func resolveModels(path, models string) (string, error) {
	if models == "" {
		return "", fmt.Errorf("%s: models is required", path)
	}
	if filepath.IsAbs(models) {
		return filepath.Clean(models), nil
	}
	return filepath.Join(filepath.Dir(path), filepath.Clean(models)), nil
}

func resolveSourceRoot(path, root string) (string, error) {
	baseDir := filepath.Dir(path)
	if root == "" {
		return baseDir, nil
	}
	if filepath.IsAbs(root) {
		return "", fmt.Errorf("%s: source_root must be a relative path", path)
	}

	cleaned := filepath.Clean(root)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: source_root must not traverse upwards", path)
	}
	return filepath.Join(baseDir, cleaned), nil
}

func resolveDatabase(path string, cfg DatabaseConfig, getenv func(string) string) (Database, error) {
	dialect := strings.ToLower(strings.TrimSpace(cfg.Dialect))
	if dialect == "" {
		dialect = DefaultDialect
	}
	if !engine.IsDialectSupported(dialect) {
		return Database{}, fmt.Errorf("%s: unsupported database dialect %q (supported: %s)",
			path, cfg.Dialect, strings.Join(engine.ListRegistered(), ", "))
	}

	eng, err := engine.New(dialect, engine.Options{Driver: cfg.Driver})
	if err != nil {
		return Database{}, fmt.Errorf("%s: %w", path, err)
	}

	dsn := cfg.DSN
	if cfg.DSNEnv != "" {
		if v := getenv(cfg.DSNEnv); v != "" {
			dsn = v
		}
	}

	db := Database{Dialect: dialect, Driver: eng.DefaultDriver(), DSN: dsn}
	if dsn != "" && db.Driver == mysqlengine.DefaultDriver {
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return Database{}, fmt.Errorf("%s: invalid mysql dsn: %w", path, err)
		}
	}
	return db, nil
}

// resolveProcedures expands the procedures globs in sorted order and applies
// [[procedure]] entries: an entry for a globbed file replaces its defaults in
// place, any other entry is appended in configuration order.
func resolveProcedures(resolver fileset.Resolver, cfg Config) ([]ProcedurePlan, error) {
	var plans []ProcedurePlan
	index := make(map[string]int)

	if len(cfg.Procedures) > 0 {
		paths, err := resolvePatterns(resolver, "procedures", cfg.Procedures)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			index[p] = len(plans)
			plans = append(plans, ProcedurePlan{Path: p, Flatten: true})
		}
	}

	for i, entry := range cfg.Procedure {
		field := fmt.Sprintf("procedure[%d]", i)
		if entry.File == "" {
			return nil, fmt.Errorf("%s: file is required", field)
		}
		if strings.ContainsAny(entry.File, "*?[") {
			return nil, fmt.Errorf("%s: file %q must not be a glob", field, entry.File)
		}
		paths, err := resolvePatterns(resolver, field, []string{entry.File})
		if err != nil {
			return nil, err
		}

		plan := ProcedurePlan{
			Path:          paths[0],
			Name:          entry.Name,
			Arguments:     slices.Clone(entry.Arguments),
			ArgumentsSet:  entry.Arguments != nil,
			Results:       entry.Results,
			Flatten:       entry.Flatten == nil || *entry.Flatten,
			RaiseWarnings: entry.RaiseWarnings,
			Context:       entry.Context,
		}
		if at, ok := index[plan.Path]; ok {
			plans[at] = plan
			continue
		}
		index[plan.Path] = len(plans)
		plans = append(plans, plan)
	}
	return plans, nil
}

func resolvePatterns(resolver fileset.Resolver, field string, patterns []string) ([]string, error) {
	paths, err := resolver.Resolve(patterns)
	if err != nil {
		switch {
		case errors.Is(err, fileset.ErrNoPatterns):
			return nil, fmt.Errorf("%s must include at least one pattern", field)
		default:
			var noMatchErr fileset.NoMatchError
			if errors.As(err, &noMatchErr) {
				return nil, fmt.Errorf("%s patterns matched no files: %s", field, strings.Join(noMatchErr.Patterns, ", "))
			}

			var patternErr fileset.PatternError
			if errors.As(err, &patternErr) {
				return nil, fmt.Errorf("%s: invalid glob pattern %q: %w", field, patternErr.Pattern, patternErr.Err)
			}

			return nil, fmt.Errorf("%s: %w", field, err)
		}
	}

	return paths, nil
}
