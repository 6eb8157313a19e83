// Package names maps symbolic model references such as "shop.Stock.shelf" to
// the physical identifiers stored in the database and substitutes bracketed
// references in procedure source text.
package names

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/electwix/dbproc/internal/models"
)

// PKSuffix is the field segment that refers to a model's primary key.
const PKSuffix = "pk"

// ErrUnknownReference is matched by every UnknownReferenceError.
var ErrUnknownReference = errors.New("unknown reference")

// UnknownReferenceError reports a symbol with no entry in the mapping.
type UnknownReferenceError struct {
	Key string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown reference %q", e.Key)
}

// Is reports whether target is ErrUnknownReference.
func (e *UnknownReferenceError) Is(target error) bool {
	return target == ErrUnknownReference
}

// Quoter quotes a column identifier for the target database.
type Quoter func(ident string) string

// Mapper resolves symbolic references against a model registry. The mapping
// is built from a registry snapshot on first use and cached until Reset.
type Mapper struct {
	registry models.Registry
	quote    Quoter

	mu      sync.Mutex
	mapping map[string]string
}

// NewMapper creates a Mapper over registry. A nil quote leaves columns as is.
func NewMapper(registry models.Registry, quote Quoter) *Mapper {
	if quote == nil {
		quote = func(ident string) string { return ident }
	}
	return &Mapper{registry: registry, quote: quote}
}

// Resolve returns the physical identifier for symbol.
func (m *Mapper) Resolve(symbol string) (string, error) {
	mapping := m.load()
	ident, ok := mapping[symbol]
	if !ok {
		return "", &UnknownReferenceError{Key: symbol}
	}
	return ident, nil
}

// Mapping returns a copy of the full mapping, building it if needed.
func (m *Mapper) Mapping() map[string]string {
	return maps.Clone(m.load())
}

// Reset drops the cached mapping; the next lookup rebuilds it from the
// registry.
func (m *Mapper) Reset() {
	m.mu.Lock()
	m.mapping = nil
	m.mu.Unlock()
}

func (m *Mapper) load() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mapping == nil {
		m.mapping = m.build()
	}
	return m.mapping
}

func (m *Mapper) build() map[string]string {
	mapping := make(map[string]string)
	if m.registry == nil {
		return mapping
	}
	for _, model := range m.registry.Models() {
		label := model.Label()
		mapping[label] = model.Table
		if pk, ok := model.PrimaryKey(); ok {
			mapping[label+"."+PKSuffix] = m.quote(pk.Column)
		}
		for _, field := range model.Fields {
			mapping[label+"."+field.Name] = m.quote(field.Column)
		}
	}
	return mapping
}
