// Package mysql provides the MySQL database engine implementation.
package mysql

import (
	"time"

	"github.com/electwix/dbproc/internal/engine"
)

// DefaultDriver is the database/sql driver registered by github.com/go-sql-driver/mysql.
const DefaultDriver = "mysql"

// Engine implements the engine.Engine interface for MySQL.
type Engine struct {
	opts engine.Options
}

// New creates a new MySQL engine instance.
func New(opts engine.Options) (engine.Engine, error) {
	return &Engine{opts: opts}, nil
}

// Name returns the engine identifier.
func (e *Engine) Name() string {
	return "mysql"
}

// QuoteIdent quotes ident with backticks.
func (e *Engine) QuoteIdent(ident string) string {
	return engine.QuoteWith('`', ident)
}

// Placeholder returns "?".
func (e *Engine) Placeholder(i int) string {
	return engine.QuestionMark(i)
}

// ProcedureExistsQuery counts matching routines in the current database.
func (e *Engine) ProcedureExistsQuery() string {
	return "SELECT count(*) FROM information_schema.ROUTINES " +
		"WHERE ROUTINE_SCHEMA = DATABASE() AND ROUTINE_TYPE = 'PROCEDURE' AND UPPER(ROUTINE_NAME) = ?"
}

// DropProcedureStatement returns "DROP PROCEDURE name".
func (e *Engine) DropProcedureStatement(name string) string {
	return "DROP PROCEDURE " + name
}

// CallStatement returns "CALL name (?,...)".
func (e *Engine) CallStatement(name string, n int) string {
	return engine.CallWith(name, n, e.Placeholder)
}

// WarningsQuery returns "SHOW WARNINGS".
func (e *Engine) WarningsQuery() string {
	return "SHOW WARNINGS"
}

// DefaultDriver returns the database/sql driver name for MySQL.
func (e *Engine) DefaultDriver() string {
	if e.opts.Driver != "" {
		return e.opts.Driver
	}
	return DefaultDriver
}

// SupportsFeature reports whether MySQL supports a specific feature.
func (e *Engine) SupportsFeature(feature engine.Feature) bool {
	switch feature {
	case engine.FeatureMultipleResultSets,
		engine.FeatureWarnings:
		return true
	default:
		return false
	}
}

// Default connection pool settings for MySQL.
const (
	mysqlMaxOpenConns    = 25
	mysqlMaxIdleConns    = 5
	mysqlConnMaxLifetime = 5 * time.Minute // below the common wait_timeout
	mysqlConnMaxIdleTime = 2 * time.Minute
)

// ConnectionPool returns recommended connection pool settings for MySQL.
func (e *Engine) ConnectionPool() engine.ConnectionPoolConfig {
	return engine.ConnectionPoolConfig{
		MaxOpenConns:    mysqlMaxOpenConns,
		MaxIdleConns:    mysqlMaxIdleConns,
		ConnMaxLifetime: mysqlConnMaxLifetime,
		ConnMaxIdleTime: mysqlConnMaxIdleTime,
	}
}
