package procedure

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/electwix/dbproc/internal/models"
	"github.com/electwix/dbproc/internal/names"
)

const stockLevelSQL = `CREATE PROCEDURE stock_level(IN shelf INT, OUT level INT) LANGUAGE SQL BEGIN
  SELECT count(*) INTO level FROM [shop.Stock] WHERE [shop.Stock.shelf] = shelf;
END`

type sources map[string]string

func (s sources) ReadText(path string) (string, error) {
	text, ok := s[path]
	if !ok {
		return "", fs.ErrNotExist
	}
	return text, nil
}

func testMapper(t *testing.T) *names.Mapper {
	t.Helper()
	catalog, err := models.NewCatalog(models.Model{
		App:   "shop",
		Name:  "Stock",
		Table: "shop_stock",
		PK:    "id",
		Fields: []models.Field{
			{Name: "id", Column: "id"},
			{Name: "shelf", Column: "shelf_no"},
		},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return names.NewMapper(catalog, func(s string) string { return "`" + s + "`" })
}

func TestNewInfersNameAndArguments(t *testing.T) {
	p, err := New(Source{Path: "sql/stock_level.sql", Text: stockLevelSQL}, DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if p.Name() != "stock_level" {
		t.Fatalf("Name() = %q", p.Name())
	}
	if diff := cmp.Diff([]string{"shelf", "level"}, p.Arguments()); diff != "" {
		t.Fatalf("arguments mismatch (-want +got):\n%s", diff)
	}
	wantDeclared := []Argument{
		{Name: "shelf", Type: "INT", Direction: DirectionIn},
		{Name: "level", Type: "INT", Direction: DirectionOut},
	}
	if diff := cmp.Diff(wantDeclared, p.Declared()); diff != "" {
		t.Fatalf("declared mismatch (-want +got):\n%s", diff)
	}
	if p.CallSQL() != "CALL stock_level (?,?)" {
		t.Fatalf("CallSQL() = %q", p.CallSQL())
	}
	if p.String() != "stock_level (sql/stock_level.sql)" {
		t.Fatalf("String() = %q", p.String())
	}
	if !p.Flatten() || p.HasResults() || p.RaiseWarnings() {
		t.Fatalf("flags = flatten %v results %v raise %v", p.Flatten(), p.HasResults(), p.RaiseWarnings())
	}
	if p.SQL() != "" {
		t.Fatalf("SQL() before render = %q", p.SQL())
	}
}

func TestNewExplicitSkipsHeader(t *testing.T) {
	opts := DefaultOptions()
	opts.Name = ExplicitName("legacy_proc")
	opts.Arguments = ExplicitArguments("x", "y", "z")

	p, err := New(Source{Path: "legacy.sql", Text: "this source has no header at all"}, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "legacy_proc" {
		t.Fatalf("Name() = %q", p.Name())
	}
	if p.CallSQL() != "CALL legacy_proc (?,?,?)" {
		t.Fatalf("CallSQL() = %q", p.CallSQL())
	}
	if len(p.Declared()) != 0 {
		t.Fatalf("Declared() = %v, want none", p.Declared())
	}
}

func TestNewExplicitArgumentsOverrideHeader(t *testing.T) {
	opts := DefaultOptions()
	opts.Arguments = ExplicitArguments("level", "shelf")

	p, err := New(Source{Path: "s.sql", Text: stockLevelSQL}, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "stock_level" {
		t.Fatalf("Name() = %q", p.Name())
	}
	if diff := cmp.Diff([]string{"level", "shelf"}, p.Arguments()); diff != "" {
		t.Fatalf("arguments mismatch (-want +got):\n%s", diff)
	}
}

func TestNewNoArguments(t *testing.T) {
	p, err := New(Source{Path: "r.sql", Text: "CREATE PROCEDURE refresh() BEGIN END"}, DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.CallSQL() != "CALL refresh ()" {
		t.Fatalf("CallSQL() = %q", p.CallSQL())
	}
}

func TestNewGrammarError(t *testing.T) {
	_, err := New(Source{Path: "bad.sql", Text: "SELECT 1"}, DefaultOptions())

	var grammar *GrammarError
	if !errors.As(err, &grammar) {
		t.Fatalf("error = %v, want *GrammarError", err)
	}
	if !errors.Is(err, ErrNotParsable) {
		t.Fatalf("errors.Is(err, ErrNotParsable) = false")
	}
	if grammar.Procedure != "bad.sql" {
		t.Fatalf("Procedure = %q, want the path", grammar.Procedure)
	}

	_, err = New(Source{Path: "bad.sql", Text: "CREATE PROCEDURE p(shelf INT) BEGIN END"}, DefaultOptions())
	if !errors.As(err, &grammar) {
		t.Fatalf("error = %v, want *GrammarError for bad argument list", err)
	}
	if grammar.Procedure != "p (bad.sql)" {
		t.Fatalf("Procedure = %q", grammar.Procedure)
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name  string
		opts  func(*Options)
		field string
	}{
		{"empty name", func(o *Options) { o.Name = ExplicitName(" ") }, "name"},
		{"name with space", func(o *Options) { o.Name = ExplicitName("stock level") }, "name"},
		{"blank argument", func(o *Options) { o.Arguments = ExplicitArguments("a", "") }, "arguments"},
		{"duplicate argument", func(o *Options) { o.Arguments = ExplicitArguments("a", "a") }, "arguments"},
		{"computed without function", func(o *Options) { o.Context = ComputedContext(nil) }, "context"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.opts(&opts)
			_, err := New(Source{Path: "s.sql", Text: stockLevelSQL}, opts)

			var cfg *ConfigurationError
			if !errors.As(err, &cfg) {
				t.Fatalf("error = %v, want *ConfigurationError", err)
			}
			if cfg.Field != tt.field {
				t.Fatalf("Field = %q, want %q", cfg.Field, tt.field)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("errors.Is(err, ErrConfiguration) = false")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	src := sources{"sql/stock_level.sql": stockLevelSQL}

	p, err := Load(src, "sql/stock_level.sql", DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Path() != "sql/stock_level.sql" || p.RawSQL() != stockLevelSQL {
		t.Fatalf("Load kept path %q and %d bytes", p.Path(), len(p.RawSQL()))
	}

	_, err = Load(src, "sql/missing.sql", DefaultOptions())
	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("error = %v, want *SourceError", err)
	}
	if !errors.Is(err, fs.ErrNotExist) || !errors.Is(err, ErrSource) {
		t.Fatalf("SourceError should match fs.ErrNotExist and ErrSource: %v", err)
	}
}

func TestRenderSubstitutesReferences(t *testing.T) {
	p, err := New(Source{Path: "s.sql", Text: stockLevelSQL}, DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sql, err := p.Render(context.Background(), RenderEnv{Names: testMapper(t)})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := strings.NewReplacer("[shop.Stock.shelf]", "`shelf_no`", "[shop.Stock]", "shop_stock").Replace(stockLevelSQL)
	if sql != want {
		t.Fatalf("Render() =\n%s\nwant\n%s", sql, want)
	}
	if p.SQL() != sql {
		t.Fatalf("SQL() does not return the rendered text")
	}
}

func TestRenderStaticContext(t *testing.T) {
	src := "CREATE PROCEDURE {{.name}}() BEGIN SELECT * FROM [shop.Stock] LIMIT {{.limit}}; END"
	opts := DefaultOptions()
	opts.Name = ExplicitName("top_stock")
	opts.Arguments = ExplicitArguments()
	opts.Context = StaticContext(map[string]any{"limit": 10})

	p, err := New(Source{Path: "top.sql", Text: src}, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := p.Render(context.Background(), RenderEnv{
		Names: testMapper(t),
		Quote: func(s string) string { return "`" + s + "`" },
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "CREATE PROCEDURE `top_stock`() BEGIN SELECT * FROM shop_stock LIMIT 10; END"
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestRenderComputedContext(t *testing.T) {
	src := "CREATE PROCEDURE p() BEGIN -- {{.path}}\nEND"
	opts := DefaultOptions()
	opts.Context = ComputedContext(func(p *Procedure) (map[string]any, error) {
		return map[string]any{"path": p.Path()}, nil
	})

	p, err := New(Source{Path: "gen/p.sql", Text: src}, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := p.Render(context.Background(), RenderEnv{Names: testMapper(t)})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "CREATE PROCEDURE p() BEGIN -- gen/p.sql\nEND" {
		t.Fatalf("Render() = %q", got)
	}
}

func TestRenderWithoutContextLeavesBraces(t *testing.T) {
	src := "CREATE PROCEDURE p() BEGIN SELECT '{{.name}}'; END"
	p, err := New(Source{Path: "p.sql", Text: src}, DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := p.Render(context.Background(), RenderEnv{Names: testMapper(t)})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != src {
		t.Fatalf("Render() = %q, want source unchanged", got)
	}
}

func TestRenderErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		src     string
		context ContextOption
		target  error
	}{
		{
			name:   "unknown reference",
			src:    "CREATE PROCEDURE p() BEGIN SELECT [shop.Missing.pk]; END",
			target: names.ErrUnknownReference,
		},
		{
			name:    "missing template key",
			src:     "CREATE PROCEDURE p() BEGIN SELECT {{.nope}}; END",
			context: StaticContext(map[string]any{}),
			target:  ErrTemplate,
		},
		{
			name:    "bad template",
			src:     "CREATE PROCEDURE p() BEGIN SELECT {{.name; END",
			context: StaticContext(nil),
			target:  ErrTemplate,
		},
		{
			name: "context function fails",
			src:  "CREATE PROCEDURE p() BEGIN END",
			context: ComputedContext(func(*Procedure) (map[string]any, error) {
				return nil, boom
			}),
			target: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Context = tt.context
			p, err := New(Source{Path: "p.sql", Text: tt.src}, opts)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_, err = p.Render(context.Background(), RenderEnv{Names: testMapper(t)})
			if !errors.Is(err, tt.target) {
				t.Fatalf("Render error = %v, want %v", err, tt.target)
			}
			if p.SQL() != "" {
				t.Fatalf("SQL() = %q after failed render", p.SQL())
			}
		})
	}
}

func TestRenderReferenceErrorCarriesKey(t *testing.T) {
	p, err := New(Source{Path: "p.sql", Text: "CREATE PROCEDURE p() BEGIN SELECT [no.such.Model]; END"}, DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Render(context.Background(), RenderEnv{Names: testMapper(t)})

	var ref *ReferenceError
	if !errors.As(err, &ref) {
		t.Fatalf("error = %v, want *ReferenceError", err)
	}
	if ref.Key != "no.such.Model" || ref.Procedure != "p (p.sql)" {
		t.Fatalf("ReferenceError = %+v", ref)
	}
}
