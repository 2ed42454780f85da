// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

package stream

import (
	"sync"

	"kshark/internal/engine/kserr"
)

// Capacity bounds from §4.6: starts at 256, doubles on overflow, capped at
// 32768 (the i16 range minus reserved sentinels).
const (
	startCapacity = 256
	maxCapacity   = 32768
)

// slot is a registry entry: either a live stream or a free-list link to the
// next free index, expressed as a plain tagged struct rather than a
// pointer-tagged union (§9).
type slot struct {
	stream *Stream
	free   bool
	next   int
}

// Registry is the stream registry (component F): allocation, indexing and
// lifetime of up to ~32K streams behind stable ids.
type Registry struct {
	mu        sync.RWMutex
	slots     []slot
	nextFree  int
	maxIDUsed int // -1 means no id has ever been assigned
	nStreams  int
}

// NewRegistry returns a registry at the startup capacity (§4.12).
func NewRegistry() *Registry {
	return &Registry{slots: make([]slot, startCapacity), maxIDUsed: -1}
}

// Add allocates a slot for s, assigns s.ID and returns it. The allocation
// algorithm follows §4.6 exactly: grow when the free cursor runs off the
// end, otherwise assign sequentially until something has been freed, then
// thread through the in-slot free list.
func (r *Registry) Add(s *Stream) (int16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nextFree == len(r.slots) {
		if len(r.slots) >= maxCapacity {
			return 0, kserr.ErrExhausted
		}
		newCap := len(r.slots) * 2
		if newCap > maxCapacity {
			newCap = maxCapacity
		}
		grown := make([]slot, newCap)
		copy(grown, r.slots)
		r.slots = grown
	}

	var id int
	if r.nextFree > r.maxIDUsed {
		id = r.maxIDUsed + 1
		r.maxIDUsed++
		r.nextFree++
	} else {
		id = r.nextFree
		r.nextFree = r.slots[id].next
	}

	s.ID = int16(id)
	r.slots[id] = slot{stream: s}
	r.nStreams++
	return int16(id), nil
}

// Remove re-encodes the current free-list head into id's slot and makes id
// the new head, per §4.6.
func (r *Registry) Remove(id int16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := int(id)
	if i < 0 || i >= len(r.slots) || r.slots[i].free || r.slots[i].stream == nil {
		return kserr.ErrBadHandle
	}
	r.slots[i] = slot{free: true, next: r.nextFree}
	r.nextFree = i
	r.nStreams--
	return nil
}

// Get returns the live stream at id, or nil if id is out of range or the
// slot is free — the validity test from §4.6.
func (r *Registry) Get(id int16) *Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := int(id)
	if i < 0 || i >= len(r.slots) || r.slots[i].free {
		return nil
	}
	return r.slots[i].stream
}

// NStreams returns the number of currently live streams.
func (r *Registry) NStreams() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nStreams
}

// AllStreams returns an ascending array of currently-live stream ids.
func (r *Registry) AllStreams() []int16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int16, 0, r.nStreams)
	for i, sl := range r.slots {
		if !sl.free && sl.stream != nil {
			out = append(out, int16(i))
		}
	}
	return out
}

// CloseAll closes every live stream's plugin attachments and DRI handle,
// then removes it from the registry. Used by Context.Free (§4.12).
func (r *Registry) CloseAll() {
	for _, id := range r.AllStreams() {
		s := r.Get(id)
		if s == nil {
			continue
		}
		for _, a := range s.Plugins {
			a.Close()
		}
		if s.Interface != nil && s.Ops != nil {
			s.InputMu.Lock()
			s.Interface.Close(s.Ops)
			s.InputMu.Unlock()
		}
		r.Remove(id)
	}
}
