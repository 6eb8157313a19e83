package fileset

import (
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"
)

// MemoryResolver resolves and reads procedure sources held in memory.
type MemoryResolver struct {
	mu    sync.RWMutex
	files map[string][]byte // path -> content
	base  string
}

// NewMemoryResolver creates a new MemoryResolver with the given files.
// Files should be a map of relative, slash separated paths to content.
func NewMemoryResolver(base string, files map[string][]byte) *MemoryResolver {
	return &MemoryResolver{
		files: files,
		base:  base,
	}
}

// Base returns the directory the files are nominally relative to.
func (m *MemoryResolver) Base() string { return m.base }

// Resolve matches patterns against in-memory file paths. A "**/" prefix
// matches any number of leading directories. Results are sorted.
func (m *MemoryResolver) Resolve(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []string
	var missing []string

	for _, pattern := range patterns {
		matched := false
		for name := range m.files {
			ok, err := matchPattern(pattern, name)
			if err != nil {
				return nil, PatternError{Pattern: pattern, Err: err}
			}
			if ok {
				results = append(results, name)
				matched = true
			}
		}
		if !matched {
			missing = append(missing, pattern)
		}
	}

	if len(missing) > 0 {
		return nil, NoMatchError{Patterns: missing}
	}

	slices.Sort(results)
	return slices.Compact(results), nil
}

func matchPattern(pattern, name string) (bool, error) {
	rest, ok := strings.CutPrefix(pattern, "**/")
	if !ok {
		return path.Match(pattern, name)
	}
	for {
		if matched, err := path.Match(rest, name); err != nil || matched {
			return matched, err
		}
		_, tail, found := strings.Cut(name, "/")
		if !found {
			return false, nil
		}
		name = tail
	}
}

// ReadText returns the decoded content of an in-memory file.
func (m *MemoryResolver) ReadText(name string) (string, error) {
	m.mu.RLock()
	content, ok := m.files[name]
	m.mu.RUnlock()

	if !ok {
		return "", &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return DecodeText(name, content)
}

// AddFile adds a file to the resolver.
func (m *MemoryResolver) AddFile(name string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[name] = content
}

// RemoveFile removes a file from the resolver.
func (m *MemoryResolver) RemoveFile(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.files, name)
}

// FileCount returns the number of files.
func (m *MemoryResolver) FileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.files)
}
