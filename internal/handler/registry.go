package handler

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps command names to their entries. The top-level registry is
// owned by the dispatcher; each group owns a nested one. Registration is
// expected during setup, but the map is guarded so an infrequent writer
// stays safe against concurrent dispatch reads.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Add registers an entry under its name. It fails with ErrDuplicateName
// when the name is already taken.
func (r *Registry) Add(entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := entry.Name()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("add command %q: %w", name, ErrDuplicateName)
	}
	r.entries[name] = entry
	return nil
}

// Remove unregisters and returns the entry for name. It fails with
// ErrNotRegistered when no such entry exists.
func (r *Registry) Remove(name string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[name]
	if !exists {
		return nil, fmt.Errorf("remove command %q: %w", name, ErrNotRegistered)
	}
	delete(r.entries, name)
	return entry, nil
}

// Get returns the entry registered under name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	return entry, ok
}

// Names returns all registered names in sorted order for enumeration.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve maps the name token and the following tokens to the entry to
// invoke and its arguments, descending into group subcommand trees.
func (r *Registry) Resolve(name string, rest []string) (Entry, []string, bool) {
	entry, ok := r.Get(name)
	if !ok {
		return nil, nil, false
	}
	if group, ok := entry.(*Group); ok {
		target, args := group.Resolve(rest)
		return target, args, true
	}
	return entry, rest, true
}
