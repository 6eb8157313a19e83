package mysql

import (
	"testing"

	"github.com/electwix/dbproc/internal/engine"
)

func TestEngine_ConnectionPool(t *testing.T) {
	e, err := New(engine.Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	pool := e.ConnectionPool()

	if pool.MaxOpenConns != mysqlMaxOpenConns {
		t.Errorf("MaxOpenConns = %d, want %d", pool.MaxOpenConns, mysqlMaxOpenConns)
	}
	if pool.MaxIdleConns != mysqlMaxIdleConns {
		t.Errorf("MaxIdleConns = %d, want %d", pool.MaxIdleConns, mysqlMaxIdleConns)
	}
	if pool.ConnMaxLifetime != mysqlConnMaxLifetime {
		t.Errorf("ConnMaxLifetime = %v, want %v", pool.ConnMaxLifetime, mysqlConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime != mysqlConnMaxIdleTime {
		t.Errorf("ConnMaxIdleTime = %v, want %v", pool.ConnMaxIdleTime, mysqlConnMaxIdleTime)
	}
}

func TestEngine_Statements(t *testing.T) {
	e, err := New(engine.Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"call", e.CallStatement("stock_level", 3), "CALL stock_level (?,?,?)"},
		{"call without arguments", e.CallStatement("refresh", 0), "CALL refresh ()"},
		{"drop", e.DropProcedureStatement("stock_level"), "DROP PROCEDURE stock_level"},
		{"quote", e.QuoteIdent("shelf"), "`shelf`"},
		{"quote escapes", e.QuoteIdent("odd`name"), "`odd``name`"},
		{"warnings", e.WarningsQuery(), "SHOW WARNINGS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestEngine_DefaultDriver(t *testing.T) {
	e, _ := New(engine.Options{})
	if got := e.DefaultDriver(); got != "mysql" {
		t.Errorf("DefaultDriver() = %q, want %q", got, "mysql")
	}

	e, _ = New(engine.Options{Driver: "mysql-traced"})
	if got := e.DefaultDriver(); got != "mysql-traced" {
		t.Errorf("DefaultDriver() = %q, want %q", got, "mysql-traced")
	}
}

func TestEngine_SupportsFeature(t *testing.T) {
	e, _ := New(engine.Options{})

	tests := []struct {
		feature engine.Feature
		want    bool
	}{
		{engine.FeatureMultipleResultSets, true},
		{engine.FeatureWarnings, true},
		{engine.FeatureNotices, false},
		{engine.Feature(999), false},
	}
	for _, tt := range tests {
		t.Run(tt.feature.String(), func(t *testing.T) {
			if got := e.SupportsFeature(tt.feature); got != tt.want {
				t.Errorf("SupportsFeature(%v) = %v, want %v", tt.feature, got, tt.want)
			}
		})
	}
}
