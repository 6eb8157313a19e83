// Package postgres provides the PostgreSQL database engine implementation.
package postgres

import (
	"strconv"
	"time"

	"github.com/electwix/dbproc/internal/engine"
)

// DefaultDriver is the database/sql driver registered by github.com/jackc/pgx/v5/stdlib.
const DefaultDriver = "pgx"

// Engine implements the engine.Engine interface for PostgreSQL.
type Engine struct {
	opts engine.Options
}

// New creates a new PostgreSQL engine instance.
func New(opts engine.Options) (engine.Engine, error) {
	return &Engine{opts: opts}, nil
}

// Name returns the engine identifier.
func (e *Engine) Name() string {
	return "postgresql"
}

// QuoteIdent quotes ident with double quotes.
func (e *Engine) QuoteIdent(ident string) string {
	return engine.QuoteWith('"', ident)
}

// Placeholder returns "$i".
func (e *Engine) Placeholder(i int) string {
	return "$" + strconv.Itoa(i)
}

// ProcedureExistsQuery counts procedures in the current schema.
func (e *Engine) ProcedureExistsQuery() string {
	return "SELECT count(*) FROM pg_catalog.pg_proc p " +
		"JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace " +
		"WHERE n.nspname = current_schema() AND p.prokind = 'p' AND upper(p.proname) = $1"
}

// DropProcedureStatement returns "DROP PROCEDURE name".
func (e *Engine) DropProcedureStatement(name string) string {
	return "DROP PROCEDURE " + name
}

// CallStatement returns "CALL name ($1,...)".
func (e *Engine) CallStatement(name string, n int) string {
	return engine.CallWith(name, n, e.Placeholder)
}

// WarningsQuery is empty: PostgreSQL reports warnings as notices.
func (e *Engine) WarningsQuery() string {
	return ""
}

// DefaultDriver returns the database/sql driver name for PostgreSQL.
func (e *Engine) DefaultDriver() string {
	if e.opts.Driver != "" {
		return e.opts.Driver
	}
	return DefaultDriver
}

// SupportsFeature reports whether PostgreSQL supports a specific feature.
func (e *Engine) SupportsFeature(feature engine.Feature) bool {
	switch feature {
	case engine.FeatureNotices:
		return true
	default:
		return false
	}
}

// Default connection pool settings for PostgreSQL.
const (
	postgresMaxOpenConns    = 25
	postgresMaxIdleConns    = 5
	postgresConnMaxLifetime = 1 * time.Hour
	postgresConnMaxIdleTime = 30 * time.Minute
)

// ConnectionPool returns recommended connection pool settings for PostgreSQL.
func (e *Engine) ConnectionPool() engine.ConnectionPoolConfig {
	return engine.ConnectionPoolConfig{
		MaxOpenConns:    postgresMaxOpenConns,
		MaxIdleConns:    postgresMaxIdleConns,
		ConnMaxLifetime: postgresConnMaxLifetime,
		ConnMaxIdleTime: postgresConnMaxIdleTime,
	}
}
