// Package workdir holds the process-wide default directory for cargo runs.
package workdir

import "sync"

// Registry stores one optional directory. The zero value is empty and ready
// to use. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	path string
}

// New returns a Registry seeded with path, which may be empty.
func New(path string) *Registry {
	return &Registry{path: path}
}

// Get returns the current directory and whether one is set.
func (r *Registry) Get() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.path, r.path != ""
}

// Set replaces the directory and returns the new value. Set("") clears it.
func (r *Registry) Set(path string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.path = path
	return r.path
}

// Resolve returns override when it is non-empty, otherwise the registry value.
// An empty result means the process working directory.
func (r *Registry) Resolve(override string) string {
	if override != "" {
		return override
	}
	path, _ := r.Get()
	return path
}
