package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Factory is a function that creates an Engine instance.
type Factory func(opts Options) (Engine, error)

// ErrUnsupportedDialect is returned when no factory is registered for a dialect.
var ErrUnsupportedDialect = errors.New("unsupported database dialect")

// registry is the global engine registry instance.
var registry = NewRegistry()

// Registry manages engine factories for different database dialects.
// Dialect names are matched case-insensitively.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Factory)}
}

// Register adds an engine factory to the registry.
// Panics if the dialect is already registered.
func (r *Registry) Register(dialect string, factory Factory) {
	key := strings.ToLower(dialect)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[key]; exists {
		panic(fmt.Sprintf("engine: dialect %q already registered", dialect))
	}
	r.engines[key] = factory
}

// New creates an Engine for the specified dialect.
func (r *Registry) New(dialect string, opts Options) (Engine, error) {
	r.mu.RLock()
	factory, exists := r.engines[strings.ToLower(dialect)]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, dialect)
	}
	return factory(opts)
}

// List returns all registered dialect names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dialects := make([]string, 0, len(r.engines))
	for dialect := range r.engines {
		dialects = append(dialects, dialect)
	}
	slices.Sort(dialects)
	return dialects
}

// IsRegistered reports whether a dialect is registered.
func (r *Registry) IsRegistered(dialect string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.engines[strings.ToLower(dialect)]
	return exists
}

// Register allows external packages to register custom engines.
func Register(dialect string, factory Factory) {
	registry.Register(dialect, factory)
}

// ListRegistered returns all registered dialect names.
func ListRegistered() []string {
	return registry.List()
}

// IsDialectSupported reports whether a dialect is supported.
func IsDialectSupported(dialect string) bool {
	return registry.IsRegistered(dialect)
}
