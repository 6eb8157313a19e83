package procedure

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/electwix/dbproc/internal/database"
	"github.com/electwix/dbproc/internal/engine"
)

// Args are call arguments. Positional values bind to the canonical argument
// names in order; Named values fill in the rest.
type Args struct {
	Positional []any
	Named      map[string]any
}

// ResultSet is one set of rows returned by a call.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Maps returns the rows keyed by column name.
func (s ResultSet) Maps() []map[string]any {
	out := make([]map[string]any, len(s.Rows))
	for i, row := range s.Rows {
		m := make(map[string]any, len(s.Columns))
		for j, col := range s.Columns {
			if j < len(row) {
				m[col] = row[j]
			}
		}
		out[i] = m
	}
	return out
}

// Result holds every result set of a call.
type Result struct {
	Sets    []ResultSet
	flatten bool
}

// Single returns the only row when flattening applies: flatten is set and
// there is exactly one set with exactly one row.
func (r *Result) Single() ([]any, bool) {
	if r == nil || !r.flatten || len(r.Sets) != 1 || len(r.Sets[0].Rows) != 1 {
		return nil, false
	}
	return r.Sets[0].Rows[0], true
}

// Value returns the single row when flattening applies, all sets
// otherwise, and nil when the call yields no results.
func (r *Result) Value() any {
	if r == nil || len(r.Sets) == 0 {
		return nil
	}
	if row, ok := r.Single(); ok {
		return row
	}
	return r.Sets
}

// Call invokes the procedure. Warnings are only fetched when RaiseWarnings
// is set; if there are any, the complete result is returned together with
// an *ExecutionWarningsError.
func (p *Procedure) Call(ctx context.Context, conn database.Connector, args Args) (*Result, error) {
	supplied, err := p.bind(args)
	if err != nil {
		return nil, err
	}
	values, err := p.shuffle(supplied)
	if err != nil {
		return nil, err
	}

	cur, err := conn.Cursor(ctx)
	if err != nil {
		return nil, newDatabaseError(p.String(), "connect", err)
	}
	defer cur.Close()

	stmt, err := cur.PrepareContext(ctx, p.callStatement(conn.Engine()))
	if err != nil {
		return nil, newDatabaseError(p.String(), "prepare", err)
	}
	defer stmt.Close()

	result := &Result{flatten: p.flatten}
	if p.results {
		result.Sets, err = p.query(ctx, conn.Engine(), stmt, values)
	} else {
		_, err = stmt.ExecContext(ctx, values...)
	}
	if err != nil {
		return nil, newDatabaseError(p.String(), "call", err)
	}

	if p.raiseWarnings {
		warnings, err := cur.Warnings(ctx)
		if err != nil {
			return nil, newDatabaseError(p.String(), "warnings", err)
		}
		if len(warnings) > 0 {
			return result, &ExecutionWarningsError{Procedure: p.String(), Warnings: warnings}
		}
	}
	return result, nil
}

// bind merges positional and named values into one named map.
func (p *Procedure) bind(args Args) (map[string]any, error) {
	if len(args.Positional) > len(p.args) {
		return nil, &ExtraArgumentsError{
			Procedure:  p.String(),
			Positional: len(args.Positional) - len(p.args),
			Given:      sortedKeys(args.Named),
		}
	}

	supplied := make(map[string]any, len(args.Positional)+len(args.Named))
	for i, v := range args.Positional {
		supplied[p.args[i]] = v
	}
	for name := range args.Named {
		if _, clash := supplied[name]; clash {
			return nil, &ArgumentClashError{Procedure: p.String(), Name: name}
		}
	}
	maps.Copy(supplied, args.Named)
	return supplied, nil
}

// query reads the first result set, and any further ones when the engine
// can return several from one CALL.
func (p *Procedure) query(ctx context.Context, eng engine.Engine, stmt *sql.Stmt, values []any) ([]ResultSet, error) {
	rows, err := stmt.QueryContext(ctx, values...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []ResultSet
	for {
		set, err := readSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
		if !eng.SupportsFeature(engine.FeatureMultipleResultSets) || !rows.NextResultSet() {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sets, nil
}

func readSet(rows *sql.Rows) (ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return ResultSet{}, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return ResultSet{}, err
	}

	set := ResultSet{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		row := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return ResultSet{}, fmt.Errorf("scan row %d: %w", len(set.Rows)+1, err)
		}
		for i := range row {
			row[i] = normalize(row[i], types[i].DatabaseTypeName())
		}
		set.Rows = append(set.Rows, row)
	}
	return set, rows.Err()
}

// normalize turns driver values into caller friendly ones: exact numerics
// become decimal.Decimal and remaining byte slices become strings.
func normalize(v any, dbType string) any {
	exact := isExactNumeric(dbType)
	switch x := v.(type) {
	case []byte:
		if exact {
			if d, err := decimal.NewFromString(string(x)); err == nil {
				return d
			}
		}
		return string(x)
	case string:
		if exact {
			if d, err := decimal.NewFromString(x); err == nil {
				return d
			}
		}
	case float64:
		if exact {
			return decimal.NewFromFloat(x)
		}
	}
	return v
}

func isExactNumeric(dbType string) bool {
	switch strings.ToUpper(dbType) {
	case "DECIMAL", "NUMERIC", "NEWDECIMAL", "SMALLDECIMAL":
		return true
	default:
		return false
	}
}
