package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/electwix/dbproc/internal/engine"
)

// Cursor is a session pinned to one connection. Statements issued through it
// share session state such as the warning list.
type Cursor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	// Warnings returns the warnings raised since the previous call.
	Warnings(ctx context.Context) ([]Warning, error)
	Close() error
}

// Warning is a non-fatal condition reported by the server.
type Warning struct {
	Level   string
	Code    string
	Message string
}

func (w Warning) String() string {
	var b strings.Builder
	if w.Level != "" {
		b.WriteString(w.Level)
	}
	if w.Code != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w.Code)
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	b.WriteString(w.Message)
	return b.String()
}

type conn struct {
	conn    *sql.Conn
	eng     engine.Engine
	logger  *slog.Logger
	notices *noticeLog
	pid     uint32
}

func (c *conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c.logger.DebugContext(ctx, "exec", "query", query, "args", len(args))
	return c.conn.ExecContext(ctx, query, args...)
}

func (c *conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	c.logger.DebugContext(ctx, "query", "query", query, "args", len(args))
	return c.conn.QueryContext(ctx, query, args...)
}

func (c *conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	c.logger.DebugContext(ctx, "query row", "query", query, "args", len(args))
	return c.conn.QueryRowContext(ctx, query, args...)
}

func (c *conn) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	c.logger.DebugContext(ctx, "prepare", "query", query)
	return c.conn.PrepareContext(ctx, query)
}

// Warnings lists the session's warnings the way the engine reports them.
// Engines with neither listable warnings nor notices report none.
func (c *conn) Warnings(ctx context.Context) ([]Warning, error) {
	switch {
	case c.eng.SupportsFeature(engine.FeatureWarnings):
		return c.showWarnings(ctx, c.eng.WarningsQuery())
	case c.eng.SupportsFeature(engine.FeatureNotices):
		return c.notices.drain(c.pid), nil
	}
	return nil, nil
}

func (c *conn) showWarnings(ctx context.Context, query string) ([]Warning, error) {
	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch warnings: %w", err)
	}
	defer rows.Close()

	var warnings []Warning
	for rows.Next() {
		var w Warning
		if err := rows.Scan(&w.Level, &w.Code, &w.Message); err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		warnings = append(warnings, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch warnings: %w", err)
	}
	return warnings, nil
}

func (c *conn) Close() error {
	return c.conn.Close()
}

// unattributed keys notices whose connection is unknown.
const unattributed uint32 = 0

// noticeLog buffers asynchronous server notices per backend process.
type noticeLog struct {
	mu      sync.Mutex
	entries map[uint32][]Warning
}

func newNoticeLog() *noticeLog {
	return &noticeLog{entries: make(map[uint32][]Warning)}
}

func (l *noticeLog) add(pid uint32, w Warning) {
	l.mu.Lock()
	l.entries[pid] = append(l.entries[pid], w)
	l.mu.Unlock()
}

func (l *noticeLog) drain(pid uint32) []Warning {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.entries[pid]
	delete(l.entries, pid)
	return out
}
