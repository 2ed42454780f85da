// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kshark/internal/engine/collection"
	"kshark/pkg/kshark"
)

func tsEntries(ts ...int64) []*kshark.Entry {
	out := make([]*kshark.Entry, len(ts))
	for i, v := range ts {
		out[i] = &kshark.Entry{TS: v, Visible: kshark.VisAll}
	}
	return out
}

func TestTimeSearchSentinels(t *testing.T) {
	entries := tsEntries(10, 20, 30, 40)
	assert.Equal(t, AllGreater, TimeSearch(entries, 0, 3, 5))
	assert.Equal(t, AllSmaller, TimeSearch(entries, 0, 3, 50))
}

func TestTimeSearchLowerBound(t *testing.T) {
	entries := tsEntries(10, 20, 20, 30, 40)
	assert.Equal(t, 0, TimeSearch(entries, 0, 4, 10))
	assert.Equal(t, 1, TimeSearch(entries, 0, 4, 15), "first entry with ts >= target")
	assert.Equal(t, 1, TimeSearch(entries, 0, 4, 20), "first of a run of equal timestamps")
	assert.Equal(t, 4, TimeSearch(entries, 0, 4, 40))
}

func pidPredicate() Predicate {
	return func(_ int16, e *kshark.Entry, values []int32) bool { return e.PID == values[0] }
}

func TestGetFrontEmptyBin(t *testing.T) {
	entries := tsEntries(10, 20, 30)
	req := &Request{Start: 0, Count: len(entries), Pred: pidPredicate(), Values: []int32{999}}
	e, idx := GetFront(entries, req)
	assert.Nil(t, e)
	assert.Equal(t, kshark.EmptyBin, idx)
}

func TestGetFrontFindsMatch(t *testing.T) {
	entries := tsEntries(10, 20, 30)
	entries[2].PID = 7
	req := &Request{Start: 0, Count: len(entries), Pred: pidPredicate(), Values: []int32{7}}
	e, idx := GetFront(entries, req)
	require.NotNil(t, e)
	assert.Equal(t, 2, idx)
}

func TestGetFrontFilteredBin(t *testing.T) {
	entries := tsEntries(10, 20, 30)
	entries[1].PID = 7
	entries[1].Visible = 0 // matches the predicate but is filtered out of this view
	req := &Request{
		Start: 0, Count: len(entries), Pred: pidPredicate(), Values: []int32{7},
		VisOnly: true, VisMask: kshark.VisAll,
	}
	e, idx := GetFront(entries, req)
	assert.Equal(t, kshark.FilteredBin, idx)
	assert.Equal(t, kshark.Dummy(), e)
}

func TestGetBackScansBackward(t *testing.T) {
	entries := tsEntries(10, 20, 30, 40)
	entries[1].PID = 7
	req := &Request{Start: len(entries) - 1, Count: len(entries), Pred: pidPredicate(), Values: []int32{7}}
	e, idx := GetBack(entries, req)
	require.NotNil(t, e)
	assert.Equal(t, 1, idx)
}

func TestGetFrontHonorsCollectionAcceleration(t *testing.T) {
	entries := tsEntries(10, 20, 30, 40, 50)
	entries[3].PID = 7

	col := collection.Build(entries, 0, []int32{7}, collection.Predicate(pidPredicate()), 0)
	req := &Request{Start: 0, Count: len(entries), Pred: pidPredicate(), Values: []int32{7}, Collection: col}

	e, idx := GetFront(entries, req)
	require.NotNil(t, e)
	assert.Equal(t, 3, idx)
}

func TestGetFrontCollectionShortCircuitsPastLastInterval(t *testing.T) {
	entries := tsEntries(10, 20, 30, 40, 50)
	entries[0].PID = 7

	col := collection.Build(entries, 0, []int32{7}, collection.Predicate(pidPredicate()), 0)
	req := &Request{Start: 1, Count: len(entries), Pred: pidPredicate(), Values: []int32{7}, Collection: col}

	_, idx := GetFront(entries, req)
	assert.Equal(t, kshark.EmptyBin, idx, "no interval covers index>=1, scan must short-circuit")
}

func TestGetFrontStopsAfterCount(t *testing.T) {
	entries := tsEntries(10, 20, 30)
	entries[2].PID = 7
	req := &Request{Start: 0, Count: 2, Pred: pidPredicate(), Values: []int32{7}}
	_, idx := GetFront(entries, req)
	assert.Equal(t, kshark.EmptyBin, idx, "match at index 2 is out of the requested window")
}
