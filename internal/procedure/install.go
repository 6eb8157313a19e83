package procedure

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/electwix/dbproc/internal/database"
	"github.com/electwix/dbproc/internal/logging"
)

// SendOptions tunes Send.
type SendOptions struct {
	// Verbosity 2 and above logs creation warnings.
	Verbosity int
	Logger    *slog.Logger
}

// Install renders the procedure and sends it to the database.
func (p *Procedure) Install(ctx context.Context, conn database.Connector, env RenderEnv, opts SendOptions) error {
	if _, err := p.Render(ctx, env); err != nil {
		return err
	}
	return p.Send(ctx, conn, opts)
}

// Send replaces any procedure of the same name in the current schema with
// the rendered SQL. Creation warnings are fetched and logged only at
// verbosity 2 and above or when RaiseWarnings is set; they never fail the
// install.
func (p *Procedure) Send(ctx context.Context, conn database.Connector, opts SendOptions) error {
	sql := p.SQL()
	if sql == "" {
		return errors.New("procedure " + p.String() + ": send before render")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	cur, err := conn.Cursor(ctx)
	if err != nil {
		return newDatabaseError(p.String(), "connect", err)
	}
	defer cur.Close()

	eng := conn.Engine()

	var count int
	if err := cur.QueryRowContext(ctx, eng.ProcedureExistsQuery(), strings.ToUpper(p.name)).Scan(&count); err != nil {
		return newDatabaseError(p.String(), "lookup", err)
	}
	if count > 0 {
		logger.Debug("dropping existing procedure", "procedure", p.name)
		if _, err := cur.ExecContext(ctx, eng.DropProcedureStatement(p.name)); err != nil {
			return newDatabaseError(p.String(), "drop", err)
		}
	}

	if _, err := cur.ExecContext(ctx, sql); err != nil {
		return newDatabaseError(p.String(), "create", err)
	}

	if opts.Verbosity >= 2 || p.raiseWarnings {
		warnings, err := cur.Warnings(ctx)
		if err != nil {
			return newDatabaseError(p.String(), "warnings", err)
		}
		if len(warnings) > 0 {
			logger.Warn("warnings during creation", "procedure", p.String(), "count", len(warnings))
			for _, w := range warnings {
				logger.Warn(w.String(), "procedure", p.name)
			}
		}
	}

	logger.Info("procedure installed", "procedure", p.name, "replaced", count > 0)
	return nil
}
