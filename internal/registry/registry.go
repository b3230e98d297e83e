// Package registry is the static catalog mapping technique identifiers to
// module factories. A registry is built once at startup, sealed, and passed
// into the engine; tests construct their own isolated instances.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/elastic/dorothy/pkg/modules"
)

var (
	ErrUnknownModule   = errors.New("unknown module")
	ErrDuplicateModule = errors.New("duplicate module")
	ErrSealed          = errors.New("registry is sealed")
)

type Entry struct {
	Descriptor modules.Descriptor
	Factory    modules.Factory
}

type Registry struct {
	mu      sync.RWMutex
	sealed  bool
	entries map[modules.TechniqueID]Entry
}

func New() *Registry {
	return &Registry{
		entries: make(map[modules.TechniqueID]Entry),
	}
}

// Register adds a module to the catalog. Registration happens only during
// startup; once the registry is sealed it fails with ErrSealed.
func (r *Registry) Register(d modules.Descriptor, factory modules.Factory) error {
	if d.ID.Tactic == "" || d.ID.Name == "" {
		return fmt.Errorf("module descriptor has an incomplete identifier %q", d.ID)
	}
	if factory == nil {
		return fmt.Errorf("module %s registered without a factory", d.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register %s", ErrSealed, d.ID)
	}
	if _, exists := r.entries[d.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, d.ID)
	}

	r.entries[d.ID] = Entry{Descriptor: d, Factory: factory}
	return nil
}

// Seal freezes the catalog. No registration is permitted afterwards.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Resolve returns a fresh module instance for the identifier.
func (r *Registry) Resolve(id modules.TechniqueID) (modules.Module, error) {
	r.mu.RLock()
	entry, exists := r.entries[id]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	return entry.Factory(), nil
}

// Descriptor looks up a module's descriptor without instantiating it.
func (r *Registry) Descriptor(id modules.TechniqueID) (modules.Descriptor, error) {
	r.mu.RLock()
	entry, exists := r.entries[id]
	r.mu.RUnlock()

	if !exists {
		return modules.Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	return entry.Descriptor, nil
}

// List returns every descriptor ordered by tactic, then name, so output is
// deterministic.
func (r *Registry) List() []modules.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]modules.Descriptor, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.Descriptor)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID.Tactic != out[j].ID.Tactic {
			return out[i].ID.Tactic < out[j].ID.Tactic
		}
		return out[i].ID.Name < out[j].ID.Name
	})
	return out
}

// Tactics groups the descriptors by tactic for tree-style display.
func (r *Registry) Tactics() map[modules.Tactic][]modules.Descriptor {
	grouped := make(map[modules.Tactic][]modules.Descriptor)
	for _, d := range r.List() {
		grouped[d.ID.Tactic] = append(grouped[d.ID.Tactic], d)
	}
	return grouped
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
