// Package preview keeps short-lived in-memory photo previews addressable
// by URL until their owner releases them.
package preview

import (
	"sync"

	"github.com/google/uuid"
)

// Handle is a revocable reference to a registered preview.
type Handle struct {
	ID  string
	URL string
}

// IsZero reports whether h refers to nothing.
func (h Handle) IsZero() bool {
	return h.ID == ""
}

type entry struct {
	data        []byte
	contentType string
}

// Registry holds previews in memory.
type Registry struct {
	prefix string

	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates a registry whose handle URLs start with prefix.
func NewRegistry(prefix string) *Registry {
	return &Registry{prefix: prefix, entries: make(map[string]entry)}
}

// Create registers data and returns a fresh handle for it.
func (r *Registry) Create(data []byte, contentType string) Handle {
	id := uuid.NewString()

	r.mu.Lock()
	r.entries[id] = entry{data: data, contentType: contentType}
	r.mu.Unlock()

	return Handle{ID: id, URL: r.prefix + id}
}

// Revoke releases a handle. Unknown and empty IDs are ignored.
func (r *Registry) Revoke(id string) {
	if id == "" {
		return
	}
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Open returns the preview registered under id.
func (r *Registry) Open(id string) (data []byte, contentType string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e.data, e.contentType, ok
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
