// Package hana provides the SAP HANA database engine implementation.
//
// No HANA driver is linked into dbproc; a binary that talks to HANA must
// import one registering itself under DefaultDriver (or set
// database.driver in the configuration).
package hana

import (
	"time"

	"github.com/electwix/dbproc/internal/engine"
)

// DefaultDriver is the database/sql driver name registered by SAP/go-hdb.
const DefaultDriver = "hdb"

// Engine implements the engine.Engine interface for SAP HANA.
type Engine struct {
	opts engine.Options
}

// New creates a new HANA engine instance.
func New(opts engine.Options) (engine.Engine, error) {
	return &Engine{opts: opts}, nil
}

// Name returns the engine identifier.
func (e *Engine) Name() string {
	return "hana"
}

// QuoteIdent quotes ident with double quotes.
func (e *Engine) QuoteIdent(ident string) string {
	return engine.QuoteWith('"', ident)
}

// Placeholder returns "?".
func (e *Engine) Placeholder(i int) string {
	return engine.QuestionMark(i)
}

// ProcedureExistsQuery counts procedures of the current schema in the system catalog.
func (e *Engine) ProcedureExistsQuery() string {
	return `SELECT count(*) FROM "SYS"."P_PROCEDURES_" WHERE schema = current_schema AND name = ?`
}

// DropProcedureStatement returns "DROP PROCEDURE name".
func (e *Engine) DropProcedureStatement(name string) string {
	return "DROP PROCEDURE " + name
}

// CallStatement returns "CALL name (?,...)".
func (e *Engine) CallStatement(name string, n int) string {
	return engine.CallWith(name, n, e.Placeholder)
}

// WarningsQuery is empty; HANA warnings are not listed by a query.
func (e *Engine) WarningsQuery() string {
	return ""
}

// DefaultDriver returns the database/sql driver name for HANA.
func (e *Engine) DefaultDriver() string {
	if e.opts.Driver != "" {
		return e.opts.Driver
	}
	return DefaultDriver
}

// SupportsFeature reports whether HANA supports a specific feature.
func (e *Engine) SupportsFeature(feature engine.Feature) bool {
	switch feature {
	case engine.FeatureMultipleResultSets:
		return true
	default:
		return false
	}
}

// ConnectionPool returns recommended connection pool settings for HANA.
func (e *Engine) ConnectionPool() engine.ConnectionPoolConfig {
	return engine.ConnectionPoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}
