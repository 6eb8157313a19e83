// Package database opens connections for a dialect engine and hands out
// short-lived cursors, each pinned to a single pooled connection, for one
// install or call at a time.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/electwix/dbproc/internal/engine"
	"github.com/electwix/dbproc/internal/engine/postgres"
	"github.com/electwix/dbproc/internal/logging"
)

// libpqDriver is the database/sql driver name registered by github.com/lib/pq.
const libpqDriver = "postgres"

// Connector hands out cursors.
type Connector interface {
	// Cursor acquires a connection from the pool. The caller must Close it.
	Cursor(ctx context.Context) (Cursor, error)
	// Engine returns the dialect the connector talks to.
	Engine() engine.Engine
}

// DB is a connection pool bound to a dialect engine.
type DB struct {
	db      *sql.DB
	eng     engine.Engine
	logger  *slog.Logger
	notices *noticeLog
}

// Option configures a DB.
type Option func(*DB)

// WithLogger logs every statement at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DB) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func newDB(eng engine.Engine, opts []Option) *DB {
	d := &DB{
		eng:     eng,
		logger:  logging.Discard(),
		notices: newNoticeLog(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// New wraps an already opened pool.
func New(db *sql.DB, eng engine.Engine, opts ...Option) *DB {
	d := newDB(eng, opts)
	d.db = db
	return d
}

// Open opens a pool for eng using its driver, applies the engine's pool
// settings and verifies the connection. For the pgx and lib/pq drivers,
// server notices are collected and reported as warnings.
func Open(ctx context.Context, eng engine.Engine, dsn string, opts ...Option) (*DB, error) {
	if eng == nil {
		return nil, errors.New("database: nil engine")
	}
	if dsn == "" {
		return nil, errors.New("database: empty data source name")
	}

	d := newDB(eng, opts)
	driver := eng.DefaultDriver()

	switch driver {
	case postgres.DefaultDriver:
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse dsn: %w", err)
		}
		cfg.OnNotice = func(c *pgconn.PgConn, n *pgconn.Notice) {
			d.notices.add(c.PID(), Warning{Level: n.Severity, Code: n.Code, Message: n.Message})
		}
		d.db = stdlib.OpenDB(*cfg)
	case libpqDriver:
		base, err := pq.NewConnector(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse dsn: %w", err)
		}
		// lib/pq does not expose which connection a notice arrived on.
		d.db = sql.OpenDB(pq.ConnectorWithNoticeHandler(base, func(n *pq.Error) {
			d.notices.add(unattributed, Warning{Level: n.Severity, Code: string(n.Code), Message: n.Message})
		}))
	default:
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", driver, err)
		}
		d.db = db
	}

	pool := eng.ConnectionPool()
	d.db.SetMaxOpenConns(pool.MaxOpenConns)
	d.db.SetMaxIdleConns(pool.MaxIdleConns)
	d.db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	d.db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := d.db.PingContext(ctx); err != nil {
		_ = d.db.Close()
		return nil, fmt.Errorf("connect %s: %w", eng.Name(), err)
	}
	d.logger.Debug("database opened", "dialect", eng.Name(), "driver", driver)
	return d, nil
}

// Engine implements Connector.
func (d *DB) Engine() engine.Engine { return d.eng }

// SQL returns the underlying pool.
func (d *DB) SQL() *sql.DB { return d.db }

// Close closes the pool.
func (d *DB) Close() error { return d.db.Close() }

// Cursor implements Connector.
func (d *DB) Cursor(ctx context.Context) (Cursor, error) {
	c, err := d.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	cur := &conn{conn: c, eng: d.eng, logger: d.logger, notices: d.notices, pid: unattributed}
	if pid, ok := backendPID(c); ok {
		cur.pid = pid
	}
	// Notices left over from a previous user of the connection.
	d.notices.drain(cur.pid)
	return cur, nil
}

var _ Connector = (*DB)(nil)

func backendPID(c *sql.Conn) (uint32, bool) {
	var pid uint32
	found := false
	_ = c.Raw(func(driverConn any) error {
		if pc, ok := driverConn.(*stdlib.Conn); ok {
			pid = pc.Conn().PgConn().PID()
			found = true
		}
		return nil
	})
	return pid, found
}
