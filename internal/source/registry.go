package source

import (
	"fmt"
	"sync"
)

// Registry holds all registered source adapters keyed by name.
type Registry struct {
	mu      sync.RWMutex
	sources map[Name]Source
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[Name]Source),
	}
}

// Register adds a source to the registry.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name()] = s
}

// Get returns a source by name, or nil if not registered.
func (r *Registry) Get(name Name) Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[name]
}

// All returns all registered sources in a stable order.
func (r *Registry) All() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Source
	for _, name := range AllNames() {
		if s, ok := r.sources[name]; ok {
			result = append(result, s)
		}
	}
	return result
}

// Resolve maps a configured source list to registered sources in the
// configured order. The single entry "auto" selects every registered
// source in display order. Unknown names are an error.
func (r *Registry) Resolve(names []Name) ([]Source, error) {
	if len(names) == 1 && names[0] == "auto" {
		return r.All(), nil
	}
	out := make([]Source, 0, len(names))
	for _, n := range names {
		s := r.Get(n)
		if s == nil {
			return nil, fmt.Errorf("unknown source %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}
