// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

package readout

import (
	"fmt"
	"sync"

	"kshark/internal/engine/kserr"
)

// Registry holds the ordered list of registered DRI backends and the
// detection logic used by open(path) in §4.7.
type Registry struct {
	mu       sync.RWMutex
	backends []Interface
	byFormat map[string]Interface
}

// NewRegistry returns an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{byFormat: make(map[string]Interface)}
}

// Register adds a DRI backend. Registration rejects a data-format collision
// with an already-registered backend.
func (r *Registry) Register(in Interface) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tag := in.DataFormat()
	if len(tag) > 15 {
		return fmt.Errorf("%w: data_format %q exceeds 15 bytes", kserr.ErrInvalidFormat, tag)
	}
	if _, exists := r.byFormat[tag]; exists {
		return fmt.Errorf("%w: data_format %q already registered", kserr.ErrConflict, tag)
	}
	r.byFormat[tag] = in
	r.backends = append(r.backends, in)
	return nil
}

// Detect iterates registered backends newest-first and returns the first one
// whose CheckData accepts path.
func (r *Registry) Detect(path string) (Interface, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.backends) - 1; i >= 0; i-- {
		if r.backends[i].CheckData(path) {
			return r.backends[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no registered backend accepts %q", kserr.ErrInvalidFormat, path)
}

// ByFormat looks a backend up by its exact data_format tag (used by the
// session importer when re-opening a stream from a session document).
func (r *Registry) ByFormat(tag string) (Interface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.byFormat[tag]
	return in, ok
}
