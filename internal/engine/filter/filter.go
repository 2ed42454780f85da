// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

// Package filter implements the per-stream, six-named-set filter registry
// and the global visibility mask policy described in the data engine's
// filtering model.
package filter

import "kshark/pkg/kshark"

// Mask bits, persisted to JSON as a single integer 0..255.
const (
	MaskText  uint8 = 1 << 0
	MaskGraph uint8 = 1 << 1
	MaskEvent uint8 = 1 << 2

	MaskReservedBits uint8 = 0x78 // bits 3-6, must be zero on export
	MaskUntouched    uint8 = 1 << 7
)

// Dimension identifies one of the three filterable entry fields.
type Dimension int

const (
	DimEvent Dimension = iota
	DimTask
	DimCPU
)

// Names used both internally and as the contractual JSON keys (§4.3): these
// must match exactly, they are serialized verbatim in session documents.
const (
	NameShowEvent = "show_event"
	NameHideEvent = "hide_event"
	NameShowTask  = "show_task"
	NameHideTask  = "hide_task"
	NameShowCPU   = "show_cpu"
	NameHideCPU   = "hide_cpu"
)

// Registry holds the six named id-sets for one stream. The zero value is not
// usable; construct with New.
type Registry struct {
	ShowEvent *kshark.HashID
	HideEvent *kshark.HashID
	ShowTask  *kshark.HashID
	HideTask  *kshark.HashID
	ShowCPU   *kshark.HashID
	HideCPU   *kshark.HashID

	// Advanced is an optional backend-specific predicate over raw records;
	// opaque to this package, stored only to expose IsSet/Dirty bookkeeping.
	Advanced      string
	AdvancedDirty bool
}

// New constructs a Registry with filter-sized (8-bit) hash tables.
func New() *Registry {
	return &Registry{
		ShowEvent: kshark.NewHashID(kshark.FilterTableBits),
		HideEvent: kshark.NewHashID(kshark.FilterTableBits),
		ShowTask:  kshark.NewHashID(kshark.FilterTableBits),
		HideTask:  kshark.NewHashID(kshark.FilterTableBits),
		ShowCPU:   kshark.NewHashID(kshark.FilterTableBits),
		HideCPU:   kshark.NewHashID(kshark.FilterTableBits),
	}
}

// IsSet reports whether at least one of the six id-sets is non-empty, or an
// advanced filter expression has been compiled.
func (r *Registry) IsSet() bool {
	return !r.ShowEvent.Empty() || !r.HideEvent.Empty() ||
		!r.ShowTask.Empty() || !r.HideTask.Empty() ||
		!r.ShowCPU.Empty() || !r.HideCPU.Empty() ||
		r.Advanced != ""
}

func (r *Registry) sets(d Dimension) (show, hide *kshark.HashID) {
	switch d {
	case DimEvent:
		return r.ShowEvent, r.HideEvent
	case DimTask:
		return r.ShowTask, r.HideTask
	default:
		return r.ShowCPU, r.HideCPU
	}
}

// Apply runs the §4.3 policy for one entry given its event/task/cpu values
// and the context-wide mask, returning the resulting visibility byte. The
// caller passes the entry's current visibility so the untouched bit (cleared
// by plugin hooks, never by filtering) is carried through unchanged.
//
//  1. Start with visible = 0xFF (callers do this before loading, this
//     function only ever clears bits).
//  2. For each dimension: show-set non-empty and value not in it clears
//     visibility; hide-set non-empty and value in it clears visibility.
//  3. The event-dimension clear only ever removes MaskEvent; task/cpu clears
//     remove whatever bits are set in globalMask (bits 0-2 only — bit 7 is
//     never touched by filtering).
func Apply(visible uint8, globalMask uint8, r *Registry, eventID, pid, cpu int32) uint8 {
	out := visible
	clearEvent := false
	clearOther := false

	if show, hide := r.ShowEvent, r.HideEvent; !show.Empty() && !show.Find(eventID) {
		clearEvent = true
	} else if !hide.Empty() && hide.Find(eventID) {
		clearEvent = true
	}
	if show, hide := r.ShowTask, r.HideTask; !show.Empty() && !show.Find(pid) {
		clearOther = true
	} else if !hide.Empty() && hide.Find(pid) {
		clearOther = true
	}
	if show, hide := r.ShowCPU, r.HideCPU; !show.Empty() && !show.Find(cpu) {
		clearOther = true
	} else if !hide.Empty() && hide.Find(cpu) {
		clearOther = true
	}

	if clearEvent {
		out &^= MaskEvent
	}
	if clearOther {
		out &^= globalMask &^ MaskUntouched
	}
	return out
}

// Clear resets all six id-sets and the advanced filter, leaving the registry
// usable (bucket arrays are retained, per kshark.HashID.Clear).
func (r *Registry) Clear() {
	r.ShowEvent.Clear()
	r.HideEvent.Clear()
	r.ShowTask.Clear()
	r.HideTask.Clear()
	r.ShowCPU.Clear()
	r.HideCPU.Clear()
	r.Advanced = ""
	r.AdvancedDirty = false
}
