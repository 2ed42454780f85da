// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

package kshark

import "testing"

func TestContainerSortAndSearch(t *testing.T) {
	c := NewContainer()
	ts := []int64{50, 10, 30, 20, 40}
	for _, v := range ts {
		c.Append(&Entry{TS: v}, v*2)
	}
	if c.Sorted() {
		t.Fatal("expected sorted=false before Sort")
	}
	c.Sort()
	if !c.Sorted() {
		t.Fatal("expected sorted=true after Sort")
	}
	for i := 1; i < c.Len(); i++ {
		if c.At(i-1).Entry.TS > c.At(i).Entry.TS {
			t.Fatalf("container not sorted at %d: %v", i, c.fields)
		}
	}

	idx := c.BSearchTime(25)
	if c.At(idx).Entry.TS != 30 {
		t.Fatalf("BSearchTime(25) -> entry.TS=%d, want 30", c.At(idx).Entry.TS)
	}

	idx = c.BSearchTime(100)
	if idx != c.Len() {
		t.Fatalf("BSearchTime(100) -> %d, want %d (no match)", idx, c.Len())
	}
}

func TestContainerAppendClearsSorted(t *testing.T) {
	c := NewContainer()
	c.Append(&Entry{TS: 1}, 1)
	c.Append(&Entry{TS: 2}, 2)
	c.Sort()
	c.Append(&Entry{TS: 0}, 0)
	if c.Sorted() {
		t.Fatal("expected Append to clear sorted flag")
	}
}
