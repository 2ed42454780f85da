// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

package kshark

import "sort"

// containerInitialCap is the starting capacity; it doubles on overflow.
const containerInitialCap = 1024

// Field is a single (entry, derived int64 value) pair. Plugins use Container
// to attach per-entry derived numbers — latencies, field reads — without
// mutating the Entry itself.
type Field struct {
	Entry *Entry
	Value int64
}

// Container is an append-only, doubling-growth vector of Field, sortable by
// the referenced entry's timestamp.
type Container struct {
	fields []Field
	sorted bool
}

// NewContainer returns an empty container pre-sized to the default capacity.
func NewContainer() *Container {
	return &Container{fields: make([]Field, 0, containerInitialCap)}
}

// Append adds a field and clears the sorted flag.
func (c *Container) Append(e *Entry, value int64) {
	if len(c.fields) == cap(c.fields) {
		newCap := 2 * cap(c.fields)
		if newCap == 0 {
			newCap = containerInitialCap
		}
		grown := make([]Field, len(c.fields), newCap)
		copy(grown, c.fields)
		c.fields = grown
	}
	c.fields = append(c.fields, Field{Entry: e, Value: value})
	c.sorted = false
}

// Len returns the number of stored fields.
func (c *Container) Len() int {
	return len(c.fields)
}

// At returns the field at index i.
func (c *Container) At(i int) Field {
	return c.fields[i]
}

// Sorted reports whether Sort has been called since the last Append.
func (c *Container) Sorted() bool {
	return c.sorted
}

// Sort stable-orders the container by entry.TS and sets the sorted flag.
func (c *Container) Sort() {
	sort.SliceStable(c.fields, func(i, j int) bool {
		return c.fields[i].Entry.TS < c.fields[j].Entry.TS
	})
	c.sorted = true
}

// BSearchTime returns the index of the first field whose entry.TS >= ts, or
// len(fields) if none qualifies. The container must be sorted; callers must
// call Sort() first (see TimeSearch for the analogous entry-array variant).
func (c *Container) BSearchTime(ts int64) int {
	return sort.Search(len(c.fields), func(i int) bool {
		return c.fields[i].Entry.TS >= ts
	})
}
