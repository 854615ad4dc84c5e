package adapter

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the adapters the orchestrator can dispatch to, keyed by
// platform. Registration happens at wiring time; lookups are concurrent.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]PlatformAdapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]PlatformAdapter),
	}
}

// Register adds an adapter for a platform key. Registering the same key
// twice replaces the previous adapter.
func (r *Registry) Register(platformKey string, a PlatformAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[platformKey] = a
}

// Get returns the adapter for a platform key.
func (r *Registry) Get(platformKey string) (PlatformAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[platformKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platformKey)
	}
	return a, nil
}

// Keys returns the registered platform keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
