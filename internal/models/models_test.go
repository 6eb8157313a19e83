package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCatalogPreservesOrder(t *testing.T) {
	t.Parallel()

	catalog, err := NewCatalog(
		Model{App: "shop", Name: "Stock", Table: "shop_stock", PK: "id", Fields: []Field{{Name: "id", Column: "id"}}},
		Model{App: "auth", Name: "User", Table: "auth_user", PK: "id", Fields: []Field{{Name: "id", Column: "id"}}},
	)
	if err != nil {
		t.Fatalf("NewCatalog returned error: %v", err)
	}

	var labels []string
	for _, m := range catalog.Models() {
		labels = append(labels, m.Label())
	}
	if diff := cmp.Diff([]string{"shop.Stock", "auth.User"}, labels); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}

	if _, ok := catalog.Lookup("auth.User"); !ok {
		t.Fatalf("expected auth.User to be registered")
	}
}

func TestCatalogRejectsInvalidModels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		model Model
		want  string
	}{
		{name: "missing app", model: Model{Name: "Stock", Table: "t", PK: "id", Fields: []Field{{Name: "id", Column: "id"}}}, want: "no app"},
		{name: "missing table", model: Model{App: "shop", Name: "Stock", PK: "id", Fields: []Field{{Name: "id", Column: "id"}}}, want: "no table"},
		{name: "reserved field", model: Model{App: "shop", Name: "Stock", Table: "t", PK: "id", Fields: []Field{{Name: "id", Column: "id"}, {Name: "pk", Column: "pk"}}}, want: "reserved"},
		{name: "unknown pk", model: Model{App: "shop", Name: "Stock", Table: "t", PK: "uid", Fields: []Field{{Name: "id", Column: "id"}}}, want: "primary key"},
		{name: "duplicate field", model: Model{App: "shop", Name: "Stock", Table: "t", PK: "id", Fields: []Field{{Name: "id", Column: "id"}, {Name: "id", Column: "id2"}}}, want: "duplicate field"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewCatalog(tc.model)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("NewCatalog error = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestCatalogDuplicateModel(t *testing.T) {
	t.Parallel()

	m := Model{App: "shop", Name: "Stock", Table: "shop_stock", PK: "id", Fields: []Field{{Name: "id", Column: "id"}}}
	catalog, err := NewCatalog(m)
	if err != nil {
		t.Fatalf("NewCatalog returned error: %v", err)
	}
	if err := catalog.Add(m); !errors.Is(err, ErrDuplicateModel) {
		t.Fatalf("Add error = %v, want ErrDuplicateModel", err)
	}
	if catalog.Len() != 1 {
		t.Fatalf("Len = %d, want 1", catalog.Len())
	}
}

func TestParseManifestDjangoDefaults(t *testing.T) {
	t.Parallel()

	src := `
models:
  - app: shop
    name: Stock
    fields:
      - name: shelf
        column: shelf_no
      - name: amount
  - app: shop
    name: Product
    table: products
    pk: sku
    fields:
      - name: sku
`
	catalog, err := ParseManifest(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseManifest returned error: %v", err)
	}

	want := []Model{
		{
			App: "shop", Name: "Stock", Table: "shop_stock", PK: "id",
			Fields: []Field{{Name: "id", Column: "id"}, {Name: "shelf", Column: "shelf_no"}, {Name: "amount", Column: "amount"}},
		},
		{
			App: "shop", Name: "Product", Table: "products", PK: "sku",
			Fields: []Field{{Name: "sku", Column: "sku"}},
		},
	}
	if diff := cmp.Diff(want, catalog.Models()); diff != "" {
		t.Fatalf("models mismatch (-want +got):\n%s", diff)
	}
}

func TestParseManifestPluralNaming(t *testing.T) {
	t.Parallel()

	src := `
naming: plural
models:
  - app: shop
    name: StockItem
    fields:
      - name: shelfNumber
`
	catalog, err := ParseManifest(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseManifest returned error: %v", err)
	}

	m, ok := catalog.Lookup("shop.StockItem")
	if !ok {
		t.Fatalf("expected shop.StockItem in catalog")
	}
	if m.Table != "stock_items" {
		t.Fatalf("Table = %q, want %q", m.Table, "stock_items")
	}
	f, ok := m.Field("shelfNumber")
	if !ok || f.Column != "shelf_number" {
		t.Fatalf("shelfNumber column = %q, want %q", f.Column, "shelf_number")
	}
}

func TestParseManifestRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := ParseManifest(strings.NewReader("models:\n  - app: shop\n    name: Stock\n    colour: red\n"))
	if err == nil {
		t.Fatalf("expected error for unknown manifest key")
	}
}

func TestParseManifestEmpty(t *testing.T) {
	t.Parallel()

	catalog, err := ParseManifest(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParseManifest returned error: %v", err)
	}
	if catalog.Len() != 0 {
		t.Fatalf("Len = %d, want 0", catalog.Len())
	}
}
