// Package models describes the application's model registry: the logical
// models and fields that stored procedure sources refer to, together with the
// physical table and column names they are stored under.
package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Field is a single model attribute and the column that stores it.
type Field struct {
	Name   string
	Column string
}

// Model is a logical model scoped by the application that declares it.
type Model struct {
	App    string
	Name   string
	Table  string
	PK     string
	Fields []Field
}

// Label returns the app-scoped model label, e.g. "shop.Stock".
func (m Model) Label() string {
	return m.App + "." + m.Name
}

// Field looks up a field by logical name.
func (m Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// PrimaryKey returns the field designated as primary key.
func (m Model) PrimaryKey() (Field, bool) {
	return m.Field(m.PK)
}

// Registry exposes a snapshot of all known models.
type Registry interface {
	Models() []Model
}

// Catalog is an in-memory Registry preserving insertion order.
type Catalog struct {
	mu     sync.RWMutex
	models []Model
	index  map[string]int
}

// ErrDuplicateModel reports a second model registered under the same label.
var ErrDuplicateModel = errors.New("models: duplicate model")

// NewCatalog builds a Catalog from the given models.
func NewCatalog(models ...Model) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(models))}
	for _, m := range models {
		if err := c.Add(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add validates and appends a model.
func (c *Catalog) Add(m Model) error {
	if err := validate(m); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index == nil {
		c.index = make(map[string]int)
	}
	label := m.Label()
	if _, exists := c.index[label]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, label)
	}
	m.Fields = append([]Field(nil), m.Fields...)
	c.index[label] = len(c.models)
	c.models = append(c.models, m)
	return nil
}

// Lookup returns the model registered under label.
func (c *Catalog) Lookup(label string) (Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[label]
	if !ok {
		return Model{}, false
	}
	return c.models[i], true
}

// Models implements Registry.
func (c *Catalog) Models() []Model {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}

// Len reports the number of registered models.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}

func validate(m Model) error {
	switch {
	case strings.TrimSpace(m.App) == "":
		return fmt.Errorf("models: model %q has no app", m.Name)
	case strings.TrimSpace(m.Name) == "":
		return fmt.Errorf("models: model in app %q has no name", m.App)
	case m.Table == "":
		return fmt.Errorf("models: %s has no table", m.Label())
	}

	seen := make(map[string]struct{}, len(m.Fields))
	for _, f := range m.Fields {
		if f.Name == "" || f.Column == "" {
			return fmt.Errorf("models: %s has a field without name or column", m.Label())
		}
		if f.Name == "pk" {
			return fmt.Errorf("models: %s: field name %q is reserved", m.Label(), f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("models: %s: duplicate field %q", m.Label(), f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	if _, ok := m.PrimaryKey(); !ok {
		return fmt.Errorf("models: %s: primary key %q is not a field", m.Label(), m.PK)
	}
	return nil
}
