// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

// Package search implements time binary-search and the forward/backward
// entry request scans of §4.10, optionally accelerated by a data
// collection (package collection).
package search

import (
	"kshark/internal/engine/collection"
	"kshark/pkg/kshark"
)

// Sentinels for TimeSearch, distinct from kshark.EmptyBin/FilteredBin which
// are request-scan results.
const (
	AllGreater = -3
	AllSmaller = -4
)

// TimeSearch returns ALL_GREATER if arr[lo].TS > target, ALL_SMALLER if
// arr[hi].TS < target, else the index in [lo,hi] of the first entry with
// ts >= target (classical lower-bound binary search, §4.10).
func TimeSearch(entries []*kshark.Entry, lo, hi int, target int64) int {
	if entries[lo].TS > target {
		return AllGreater
	}
	if entries[hi].TS < target {
		return AllSmaller
	}
	l, h := lo, hi+1
	for l < h {
		mid := l + (h-l)/2
		if entries[mid].TS >= target {
			h = mid
		} else {
			l = mid + 1
		}
	}
	return l
}

// Predicate is the matching condition an entry request tests.
type Predicate func(streamID int16, e *kshark.Entry, values []int32) bool

// Request carries the parameters of one forward or backward scan (§4.10). It
// may be chained via Next so a consumer can compose per-cpu or per-stream
// requests.
type Request struct {
	Start    int
	Count    int
	Pred     Predicate
	StreamID int16
	Values   []int32
	VisOnly  bool
	VisMask  uint8
	Next     *Request

	// Collection, if set, accelerates the scan by skipping over index
	// ranges known not to contain a match.
	Collection *collection.Collection
}

// GetFront scans entries forward from req.Start for exactly req.Count
// positions (or until the slice ends), per §4.10's behavior table.
func GetFront(entries []*kshark.Entry, req *Request) (*kshark.Entry, int) {
	filteredSeen := false
	steps := 0
	idx := req.Start
	if req.Collection != nil {
		if ci := req.Collection.IntervalContaining(idx); ci >= 0 {
			lo, _ := req.Collection.Interval(ci)
			if int(lo) > idx {
				steps += int(lo) - idx
				idx = int(lo)
			}
		} else if req.Collection.Size() > 0 {
			idx = len(entries) // nothing ahead matches; short-circuit the scan
		}
	}
	for steps < req.Count && idx < len(entries) {
		e := entries[idx]
		if req.Pred(req.StreamID, e, req.Values) {
			if req.VisOnly && e.Visible&req.VisMask == 0 {
				filteredSeen = true
			} else {
				return e, idx
			}
		}
		idx++
		steps++
	}
	if filteredSeen {
		return kshark.Dummy(), kshark.FilteredBin
	}
	return nil, kshark.EmptyBin
}

// GetBack scans entries backward from req.Start for exactly req.Count
// positions.
func GetBack(entries []*kshark.Entry, req *Request) (*kshark.Entry, int) {
	filteredSeen := false
	steps := 0
	idx := req.Start
	for steps < req.Count && idx >= 0 {
		e := entries[idx]
		if req.Pred(req.StreamID, e, req.Values) {
			if req.VisOnly && e.Visible&req.VisMask == 0 {
				filteredSeen = true
			} else {
				return e, idx
			}
		}
		idx--
		steps++
	}
	if filteredSeen {
		return kshark.Dummy(), kshark.FilteredBin
	}
	return nil, kshark.EmptyBin
}
