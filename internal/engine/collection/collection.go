// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

// Package collection implements data collections: cached skip-interval
// indexes over a loaded entry array that accelerate repeated "next/previous
// matching entry" scans from O(N) to O(log #intervals).
package collection

import "kshark/pkg/kshark"

// Predicate is the matching condition a Collection indexes, mirroring the
// request predicate shape used by package search.
type Predicate func(streamID int16, e *kshark.Entry, values []int32) bool

// Collection is the minimal set of closed index intervals over an entry
// array such that any entry matching Pred lies inside some interval.
type Collection struct {
	StreamID int16
	Values   []int32
	Pred     Predicate
	Margin   int

	resume []int32
	brk    []int32
}

// Build scans entries linearly, recording each maximal run of matches as an
// interval extended by margin on each side (clamped to array bounds) and
// merging intervals that overlap after that extension.
func Build(entries []*kshark.Entry, streamID int16, values []int32, pred Predicate, margin int) *Collection {
	c := &Collection{StreamID: streamID, Values: values, Pred: pred, Margin: margin}
	n := len(entries)
	i := 0
	for i < n {
		if !pred(streamID, entries[i], values) {
			i++
			continue
		}
		start := i
		for i < n && pred(streamID, entries[i], values) {
			i++
		}
		end := i - 1

		lo := start - margin
		if lo < 0 {
			lo = 0
		}
		hi := end + margin
		if hi > n-1 {
			hi = n - 1
		}

		if len(c.resume) > 0 && lo <= int(c.brk[len(c.brk)-1]) {
			if int32(hi) > c.brk[len(c.brk)-1] {
				c.brk[len(c.brk)-1] = int32(hi)
			}
		} else {
			c.resume = append(c.resume, int32(lo))
			c.brk = append(c.brk, int32(hi))
		}
	}
	return c
}

// Size returns the number of disjoint intervals.
func (c *Collection) Size() int { return len(c.resume) }

// Interval returns the [resume, break] bounds of interval i.
func (c *Collection) Interval(i int) (int32, int32) { return c.resume[i], c.brk[i] }

// IntervalContaining returns the index of the interval containing index idx,
// or the first interval starting after idx if none contains it, or -1 if
// idx is past every interval. The binary search here is what turns a linear
// "next matching entry" scan into an O(log #intervals) jump.
func (c *Collection) IntervalContaining(idx int) int {
	lo, hi := 0, len(c.resume)
	for lo < hi {
		mid := (lo + hi) / 2
		if int(c.brk[mid]) < idx {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo >= len(c.resume) {
		return -1
	}
	return lo
}

// Fingerprint identifies what a Collection was built over, used by
// Context.RegisterCollection to decide whether a matching collection should
// be reset rather than re-registered.
type Fingerprint struct {
	StreamID int16
	Key      string
}

// Reset overwrites c's contents with other's, keeping c's pointer identity.
// Context.RegisterCollection uses this when a newly built collection shares
// the fingerprint of one already registered (§4.9: "matching fingerprint
// found → reset rather than re-register") — any outstanding reference to
// the old *Collection (e.g. a search.Request built against it) observes the
// rebuilt intervals without needing to re-fetch it from the context.
func (c *Collection) Reset(other *Collection) {
	c.StreamID = other.StreamID
	c.Values = other.Values
	c.Pred = other.Pred
	c.Margin = other.Margin
	c.resume = other.resume
	c.brk = other.brk
}
