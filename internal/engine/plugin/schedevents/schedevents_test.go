// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

package schedevents

import (
	"testing"

	"kshark/internal/engine/plugin"
	"kshark/internal/engine/readout"
	"kshark/pkg/kshark"
)

type fakeOps struct{ ids map[string]int16 }

func (f fakeOps) GetPID(*kshark.Entry) int32                               { return 0 }
func (f fakeOps) GetTask(*kshark.Entry) string                             { return "" }
func (f fakeOps) GetEventID(*kshark.Entry) int16                          { return 0 }
func (f fakeOps) GetEventName(*kshark.Entry) string                       { return "" }
func (f fakeOps) GetInfo(*kshark.Entry) string                            { return "" }
func (f fakeOps) AuxInfo(*kshark.Entry) string                             { return "" }
func (f fakeOps) FindEventID(name string) (int16, bool)                   { id, ok := f.ids[name]; return id, ok }
func (f fakeOps) GetAllEventIDs() []int16                                 { return nil }
func (f fakeOps) GetAllEventFieldNames(*kshark.Entry) []string            { return nil }
func (f fakeOps) GetEventFieldType(*kshark.Entry, string) readout.FieldKind {
	return readout.FieldInvalid
}
func (f fakeOps) ReadEventFieldInt64(*kshark.Entry, string) (int64, error) { return 0, nil }
func (f fakeOps) DumpEntry(*kshark.Entry) string                          { return "" }
func (f fakeOps) LoadEntries() ([]*kshark.Entry, error)                   { return nil, nil }
func (f fakeOps) LoadMatrix() (readout.Matrix, error)                     { return readout.Matrix{}, nil }

type fakeReader struct {
	next      int32
	prevState int64
	waking    int32
}

func (r fakeReader) NextPID(raw []byte) (int32, bool)    { return r.next, true }
func (r fakeReader) PrevState(raw []byte) (int64, bool)  { return r.prevState, true }
func (r fakeReader) WakingPID(raw []byte) (int32, bool)  { return r.waking, true }

func TestPackUnpackRoundTrip(t *testing.T) {
	field := PackField(321, 2)
	if got := UnpackPID(field); got != 321 {
		t.Fatalf("UnpackPID = %d, want 321", got)
	}
	if got := UnpackPrevState(field); got != 2 {
		t.Fatalf("UnpackPrevState = %d, want 2", got)
	}
}

func TestInitRewritesPIDAndStashesPrevState(t *testing.T) {
	ops := fakeOps{ids: map[string]int16{"sched_switch": 10, "sched_waking": 11}}
	reader := fakeReader{next: 777, prevState: 3, waking: 55}
	p := New(reader, nil)

	a := plugin.NewAttachment(p, 0, ops)
	if a.Init(); a.Status&plugin.Loaded == 0 {
		t.Fatal("expected Init to succeed")
	}

	e := &kshark.Entry{EventID: 10, PID: 42, Visible: kshark.VisAll}
	a.RunEventHooks(nil, e)

	if e.PID != 777 {
		t.Fatalf("e.PID = %d, want 777 (next_pid)", e.PID)
	}
	if a.Container == nil || a.Container.Len() != 1 {
		t.Fatalf("expected one stashed field, got %+v", a.Container)
	}
	field := a.Container.At(0)
	if UnpackPID(field.Value) != 42 {
		t.Fatalf("stashed pid = %d, want 42 (pre-rewrite)", UnpackPID(field.Value))
	}
	if UnpackPrevState(field.Value) != 3 {
		t.Fatalf("stashed prev_state = %d, want 3", UnpackPrevState(field.Value))
	}

	w := &kshark.Entry{EventID: 11, PID: 42, Visible: kshark.VisAll}
	a.RunEventHooks(nil, w)
	if a.Container.Len() != 2 {
		t.Fatalf("expected waking hook to append a second field, got %d", a.Container.Len())
	}
	if a.Container.At(1).Value != 55 {
		t.Fatalf("waking field = %d, want 55", a.Container.At(1).Value)
	}
}

func TestInitFailsWithoutEventID(t *testing.T) {
	ops := fakeOps{ids: map[string]int16{}}
	p := New(fakeReader{}, nil)
	a := plugin.NewAttachment(p, 0, ops)
	a.Init()
	if a.Status&plugin.Failed == 0 {
		t.Fatal("expected Init to fail when sched_switch is not registered")
	}
}
