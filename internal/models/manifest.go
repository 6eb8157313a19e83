package models

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-openapi/inflect"
	"gopkg.in/yaml.v3"
)

// Naming selects how default table and column names are derived.
type Naming string

const (
	// NamingDjango derives "<app>_<model>" tables and keeps field names as columns.
	NamingDjango Naming = "django"
	// NamingPlural derives snake_case pluralized tables and snake_case columns.
	NamingPlural Naming = "plural"
)

// DefaultPK is the primary key field added when a model declares none.
const DefaultPK = "id"

// Manifest is the YAML document describing a model registry.
type Manifest struct {
	Naming Naming          `yaml:"naming"`
	Models []ManifestModel `yaml:"models"`
}

// ManifestModel is a single model entry of a Manifest.
type ManifestModel struct {
	App    string          `yaml:"app"`
	Name   string          `yaml:"name"`
	Table  string          `yaml:"table"`
	PK     string          `yaml:"pk"`
	Fields []ManifestField `yaml:"fields"`
}

// ManifestField is a single field entry of a ManifestModel.
type ManifestField struct {
	Name   string `yaml:"name"`
	Column string `yaml:"column"`
}

// LoadManifest reads a YAML manifest from path and builds a Catalog.
func LoadManifest(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	catalog, err := ParseManifest(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

// ParseManifest decodes a YAML manifest and builds a Catalog, filling in
// default table, column and primary key names.
func ParseManifest(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	naming := m.Naming
	if naming == "" {
		naming = NamingDjango
	}
	if naming != NamingDjango && naming != NamingPlural {
		return nil, fmt.Errorf("unsupported naming %q", naming)
	}

	catalog := &Catalog{index: make(map[string]int, len(m.Models))}
	for _, entry := range m.Models {
		model := entry.build(naming)
		if err := catalog.Add(model); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func (e ManifestModel) build(naming Naming) Model {
	pk := e.PK
	if pk == "" {
		pk = DefaultPK
	}

	model := Model{
		App:   e.App,
		Name:  e.Name,
		Table: e.Table,
		PK:    pk,
	}
	if model.Table == "" {
		model.Table = TableName(naming, e.App, e.Name)
	}

	hasPK := false
	fields := make([]Field, 0, len(e.Fields)+1)
	for _, f := range e.Fields {
		if f.Name == pk {
			hasPK = true
		}
		column := f.Column
		if column == "" {
			column = ColumnName(naming, f.Name)
		}
		fields = append(fields, Field{Name: f.Name, Column: column})
	}
	if !hasPK {
		fields = append([]Field{{Name: pk, Column: ColumnName(naming, pk)}}, fields...)
	}
	model.Fields = fields
	return model
}

// TableName derives the default table name of a model.
func TableName(naming Naming, app, model string) string {
	if naming == NamingPlural {
		return inflect.Underscore(inflect.Pluralize(model))
	}
	return strings.ToLower(app) + "_" + strings.ToLower(model)
}

// ColumnName derives the default column name of a field.
func ColumnName(naming Naming, field string) string {
	if naming == NamingPlural {
		return inflect.Underscore(field)
	}
	return field
}
