// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

package kshark

import "testing"

func TestHashIDAddFindRemove(t *testing.T) {
	h := NewHashID(FilterTableBits)

	if !h.Add(314) {
		t.Fatal("expected first add of 314 to report inserted")
	}
	if h.Add(314) {
		t.Fatal("expected second add of 314 to report already-present")
	}
	if !h.Find(314) {
		t.Fatal("expected Find(314) true after Add")
	}
	if h.Count() != 1 {
		t.Fatalf("count = %d, want 1", h.Count())
	}

	if !h.Remove(314) {
		t.Fatal("expected Remove(314) to report removed")
	}
	if h.Find(314) {
		t.Fatal("expected Find(314) false after Remove")
	}
	if h.Count() != 0 {
		t.Fatalf("count = %d, want 0", h.Count())
	}
}

func TestHashIDIDsAscending(t *testing.T) {
	h := NewHashID(FilterTableBits)
	for _, id := range []int32{42, 314, 7, 1000, 1} {
		h.Add(id)
	}
	ids := h.IDs()
	want := []int32{1, 7, 42, 314, 1000}
	if len(ids) != len(want) {
		t.Fatalf("len(ids) = %d, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids[%d] = %d, want %d (ids=%v)", i, ids[i], want[i], ids)
		}
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("ids not strictly ascending: %v", ids)
		}
	}
}

func TestHashIDEmptyAndClear(t *testing.T) {
	h := NewHashID(FilterTableBits)
	if !h.Empty() {
		t.Fatal("expected new set to be empty")
	}
	h.Add(1)
	h.Add(2)
	if h.Empty() {
		t.Fatal("expected non-empty set after adds")
	}
	h.Clear()
	if !h.Empty() || h.Count() != 0 {
		t.Fatal("expected Clear to reset count to 0")
	}
	if len(h.IDs()) != 0 {
		t.Fatal("expected no ids after Clear")
	}
}

func TestHashIDAddRemoveRoundTrip(t *testing.T) {
	h := NewHashID(FilterTableBits)
	for _, id := range []int32{1, 2, 3, 4, 5} {
		h.Add(id)
	}
	before := h.Count()
	h.Add(6)
	h.Remove(6)
	if h.Count() != before {
		t.Fatalf("count after add/remove pair = %d, want %d", h.Count(), before)
	}
}
