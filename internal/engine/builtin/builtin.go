// Package builtin registers all built-in database engines.
//
// Import this package to register the MySQL, PostgreSQL and HANA engines:
//
//	import _ "github.com/electwix/dbproc/internal/engine/builtin"
//
// This will make the engines available via engine.New().
package builtin

import (
	"github.com/electwix/dbproc/internal/engine"
	"github.com/electwix/dbproc/internal/engine/hana"
	"github.com/electwix/dbproc/internal/engine/mysql"
	"github.com/electwix/dbproc/internal/engine/postgres"
)

//nolint:gochecknoinits // Package registration via init is idiomatic for this use case
func init() {
	RegisterAll()
}

// RegisterAll registers all built-in database engines.
func RegisterAll() {
	engine.Register("mysql", mysql.New)
	engine.Register("mariadb", mysql.New) // Alias
	engine.Register("postgresql", postgres.New)
	engine.Register("postgres", postgres.New) // Alias
	engine.Register("hana", hana.New)
}
