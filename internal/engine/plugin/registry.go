// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

package plugin

import (
	"fmt"
	"sync"

	"kshark/internal/engine/kserr"
)

// Registry is the global, process-wide list of registered DPIs, owned by
// the session context. Re-registering the same name is a conflict, same as
// readout.Registry's data-format collision check (Design Note: the name
// conflict check is deliberately asymmetric — a DRI-only backend can't
// collide with a pure DPI by name; see DESIGN.md).
type Registry struct {
	mu   sync.RWMutex
	byName map[string]Interface
	order  []string
}

// NewRegistry returns an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Interface)}
}

// Register adds a DPI. Returns kserr.ErrConflict if the name is already
// registered.
func (r *Registry) Register(p Interface) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[p.Name]; exists {
		return fmt.Errorf("%w: plugin %q already registered", kserr.ErrConflict, p.Name)
	}
	r.byName[p.Name] = p
	r.order = append(r.order, p.Name)
	return nil
}

// Unregister removes a DPI by name. Existing attachments are unaffected;
// callers are expected to CLOSE attachments before unregistering.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byName, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Lookup finds a registered DPI by name.
func (r *Registry) Lookup(name string) (Interface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// Names returns the registered plugin names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
