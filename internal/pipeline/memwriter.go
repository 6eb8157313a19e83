package pipeline

import (
	"maps"
	"slices"
	"sync"
)

// MemoryWriter keeps rendered files in memory instead of on disk.
type MemoryWriter struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// WriteFile stores a copy of data under path.
func (m *MemoryWriter) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[path] = slices.Clone(data)
	return nil
}

// Read returns the content stored under path.
func (m *MemoryWriter) Read(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[path]
	return data, ok
}

// Paths returns the stored paths in sorted order.
func (m *MemoryWriter) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.files))
}

var _ Writer = (*MemoryWriter)(nil)
