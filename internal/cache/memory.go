package cache

import (
	"sync"
)

// Digests maps a procedure source path to the key of the SQL last installed
// from it. The zero value is not usable; call NewDigests.
type Digests struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewDigests creates an empty digest table.
func NewDigests() *Digests {
	return &Digests{
		items: make(map[string]string),
	}
}

// Get returns the key recorded for path.
func (d *Digests) Get(path string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	key, ok := d.items[path]
	return key, ok
}

// Set records key for path.
func (d *Digests) Set(path, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.items[path] = key
}

// Changed reports whether key differs from the one recorded for path.
// Paths without a record always count as changed.
func (d *Digests) Changed(path, key string) bool {
	prev, ok := d.Get(path)
	return !ok || prev != key
}

// Delete forgets path.
func (d *Digests) Delete(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.items, path)
}

// Clear forgets every path.
func (d *Digests) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.items = make(map[string]string)
}

// Len returns the number of recorded paths.
func (d *Digests) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.items)
}
