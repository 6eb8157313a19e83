// Package engine defines the database dialect abstraction layer.
//
// An Engine encapsulates every database-specific piece of SQL that procedure
// installation and invocation need: identifier quoting, the catalog query used
// to detect an existing procedure, the DROP and CALL statements and the way
// warnings are retrieved. Each dialect (MySQL, PostgreSQL, SAP HANA) lives in
// its own subpackage and registers itself with the registry.
//
// Usage:
//
//	eng, err := engine.New("mysql", engine.Options{})
//	if err != nil {
//	    return err
//	}
//
//	call := eng.CallStatement("stock_level", 2) // CALL stock_level (?,?)
package engine

import (
	"strings"
	"time"
)

// Engine encapsulates all database-specific behavior.
type Engine interface {
	// Name returns the engine identifier (e.g., "mysql", "postgresql", "hana").
	Name() string

	// QuoteIdent quotes a single identifier for this dialect.
	QuoteIdent(ident string) string

	// Placeholder returns the bind parameter for the 1-based position i.
	Placeholder(i int) string

	// ProcedureExistsQuery returns a query yielding a single count of stored
	// procedures in the current schema whose upper-cased name equals the one
	// bound parameter.
	ProcedureExistsQuery() string

	// DropProcedureStatement returns the statement removing a procedure.
	DropProcedureStatement(name string) string

	// CallStatement returns the statement invoking a procedure with n
	// positional parameters.
	CallStatement(name string, n int) string

	// WarningsQuery returns the statement listing warnings raised by the
	// previous statement on the same connection. Empty when the dialect
	// reports warnings another way.
	WarningsQuery() string

	// DefaultDriver returns the database/sql driver name for this dialect.
	DefaultDriver() string

	// SupportsFeature reports whether this engine supports a specific feature.
	SupportsFeature(feature Feature) bool

	// ConnectionPool returns recommended connection pool settings.
	ConnectionPool() ConnectionPoolConfig
}

// ConnectionPoolConfig defines recommended connection pool settings for a database.
type ConnectionPoolConfig struct {
	// MaxOpenConns is the maximum number of open connections to the database.
	// A value of 0 means no limit.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of connections in the idle connection pool.
	MaxIdleConns int

	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	// A value of 0 means connections are not closed due to age.
	ConnMaxLifetime time.Duration

	// ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	ConnMaxIdleTime time.Duration
}

// Options configures an engine instance.
type Options struct {
	// Driver overrides the database/sql driver name.
	Driver string
}

// New creates a new Engine for the specified database dialect.
// Returns an error if the dialect is not supported.
func New(dialect string, opts Options) (Engine, error) {
	return registry.New(dialect, opts)
}

// MustNew creates a new Engine or panics if the dialect is not supported.
// Useful for tests and initialization code.
func MustNew(dialect string, opts Options) Engine {
	engine, err := New(dialect, opts)
	if err != nil {
		panic(err)
	}
	return engine
}

// QuoteWith quotes ident with the given quote character, doubling any
// embedded occurrence of it.
func QuoteWith(quote byte, ident string) string {
	q := string(quote)
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// CallWith builds "CALL name (p1,p2,...)" using placeholder for each position.
func CallWith(name string, n int, placeholder func(int) string) string {
	var b strings.Builder
	b.WriteString("CALL ")
	b.WriteString(name)
	b.WriteString(" (")
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteByte(',')
		}
		b.WriteString(placeholder(i))
	}
	b.WriteByte(')')
	return b.String()
}

// QuestionMark is the positional placeholder used by MySQL and HANA.
func QuestionMark(int) string { return "?" }
