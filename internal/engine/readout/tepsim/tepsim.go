// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

// Package tepsim is a small synthetic multi-CPU DRI backend used by tests
// and demos. It models original_source/tests/test-input.c: a deterministic,
// in-memory "trace" generator, so the engine's own test suite does not
// depend on a real tracepoint-format parser.
package tepsim

import (
	"encoding/json"
	"strings"

	"kshark/internal/engine/readout"
	"kshark/pkg/kshark"
)

// DataFormat is the tag this backend registers under.
const DataFormat = "tep.sim"

// Spec describes the synthetic stream to generate. A path registered via
// Register opens with its Spec; any other path (CheckData also accepts a
// "tepsim:" prefix) opens with DefaultSpec — the path itself is not parsed.
type Spec struct {
	NCPUs          int
	EventsPerCPU   int
	EventNames     []string // cycled across generated records
	MissedAtCPU    int      // cpu on which to inject one missed-events gap, -1 for none
	MissedAtRecord int      // record index (within that cpu) before which the gap occurs
	MissedCount    int64
}

// DefaultSpec mirrors the shape of original test-input.c: 8 cpus, a handful
// of sched/irq style events, one missed-events gap.
func DefaultSpec() Spec {
	return Spec{
		NCPUs:          8,
		EventsPerCPU:   16,
		EventNames:     []string{"sched/sched_switch", "sched/sched_wakeup", "irq/irq_handler_entry", "irq/irq_handler_exit"},
		MissedAtCPU:    1,
		MissedAtRecord: 4,
		MissedCount:    3,
	}
}

// Backend implements readout.Interface over an in-memory Spec registry,
// keyed by the "path" string passed to Init/CheckData.
type Backend struct {
	specs map[string]Spec
}

// New returns an empty tepsim backend; call Register to add a named spec
// before opening it by that name.
func New() *Backend {
	return &Backend{specs: make(map[string]Spec)}
}

// Register makes a named synthetic stream openable via Init(name).
func (b *Backend) Register(name string, s Spec) {
	b.specs[name] = s
}

func (b *Backend) DataFormat() string { return DataFormat }

func (b *Backend) CheckData(path string) bool {
	if strings.HasPrefix(path, "tepsim:") {
		return true
	}
	_, ok := b.specs[path]
	return ok
}

func (b *Backend) Init(path string) (readout.Meta, readout.StreamOps, error) {
	spec, ok := b.specs[path]
	if !ok {
		spec = DefaultSpec()
	}
	ops := &streamOps{spec: spec}
	ops.generate()
	return readout.Meta{
		NCPUs:   spec.NCPUs,
		NEvents: len(spec.EventNames),
		IdlePID: 0,
	}, ops, nil
}

func (b *Backend) Close(readout.StreamOps) error { return nil }

type genRecord struct {
	cpu    int16
	pid    int32
	ts     int64
	event  int16
	missed int64

	// Synthetic sched_switch/sched_waking fields, read back out via
	// RawRecord by tests exercising a FieldReader-consuming DPI end to end
	// (see schedevents.FieldReader).
	nextPID   int32
	prevState int64
	wakingPID int32
}

type streamOps struct {
	spec    Spec
	records []genRecord
}

func (s *streamOps) generate() {
	var out []genRecord
	for c := 0; c < s.spec.NCPUs; c++ {
		ts := int64(1000 + c*17)
		for i := 0; i < s.spec.EventsPerCPU; i++ {
			rec := genRecord{
				cpu:       int16(c),
				pid:       int32(100 + (c*31+i)%7),
				ts:        ts,
				event:     int16(i % len(s.spec.EventNames)),
				nextPID:   int32(1000 + (c*31+i)%7),
				prevState: int64(i % 8),
				wakingPID: int32(2000 + (c*31+i)%7),
			}
			if c == s.spec.MissedAtCPU && i == s.spec.MissedAtRecord {
				rec.missed = s.spec.MissedCount
			}
			out = append(out, rec)
			ts += int64(50 + (i%5)*10)
		}
	}
	s.records = out
}

func (s *streamOps) eventName(id int16) string {
	if int(id) < len(s.spec.EventNames) && id >= 0 {
		return s.spec.EventNames[id]
	}
	return ""
}

func (s *streamOps) GetPID(e *kshark.Entry) int32     { return e.PID }
func (s *streamOps) GetTask(e *kshark.Entry) string    { return "" }
func (s *streamOps) GetEventID(e *kshark.Entry) int16  { return e.EventID }
func (s *streamOps) GetEventName(e *kshark.Entry) string {
	return s.eventName(e.EventID)
}
func (s *streamOps) GetInfo(e *kshark.Entry) string { return "" }
func (s *streamOps) AuxInfo(e *kshark.Entry) string { return "" }

func (s *streamOps) FindEventID(name string) (int16, bool) {
	for i, n := range s.spec.EventNames {
		if n == name {
			return int16(i), true
		}
	}
	return 0, false
}

func (s *streamOps) GetAllEventIDs() []int16 {
	ids := make([]int16, len(s.spec.EventNames))
	for i := range ids {
		ids[i] = int16(i)
	}
	return ids
}

func (s *streamOps) GetAllEventFieldNames(e *kshark.Entry) []string {
	return []string{"cpu", "pid", "ts", "event"}
}

func (s *streamOps) GetEventFieldType(e *kshark.Entry, field string) readout.FieldKind {
	return readout.FieldInteger
}

func (s *streamOps) ReadEventFieldInt64(e *kshark.Entry, field string) (int64, error) {
	switch field {
	case "cpu":
		return int64(e.CPU), nil
	case "pid":
		return int64(e.PID), nil
	case "ts":
		return e.TS, nil
	default:
		return int64(e.EventID), nil
	}
}

func (s *streamOps) DumpEntry(e *kshark.Entry) string { return s.eventName(e.EventID) }

func (s *streamOps) LoadEntries() ([]*kshark.Entry, error) {
	out := make([]*kshark.Entry, 0, len(s.records))
	for i, r := range s.records {
		out = append(out, &kshark.Entry{
			Visible: kshark.VisAll,
			EventID: r.event,
			CPU:     r.cpu,
			PID:     r.pid,
			Offset:  int64(i),
			TS:      r.ts,
		})
	}
	return out, nil
}

func (s *streamOps) LoadMatrix() (readout.Matrix, error) {
	entries, _ := s.LoadEntries()
	m := readout.Matrix{
		EventID: make([]int16, len(entries)),
		CPU:     make([]int16, len(entries)),
		PID:     make([]int32, len(entries)),
		Offset:  make([]int64, len(entries)),
		TS:      make([]int64, len(entries)),
	}
	for i, e := range entries {
		m.EventID[i] = e.EventID
		m.CPU[i] = e.CPU
		m.PID[i] = e.PID
		m.Offset[i] = e.Offset
		m.TS[i] = e.TS
	}
	return m, nil
}

// MissedAt reports the missed-events count recorded just before record index
// i, mirroring jsontrace's MissedAt.
func (s *streamOps) MissedAt(i int) int64 {
	if i < 0 || i >= len(s.records) {
		return 0
	}
	return s.records[i].missed
}

// RawRecord implements readout.RawRecordProvider over a small JSON encoding
// of the generated record's sched fields, so tests can attach a
// FieldReader-consuming DPI (schedevents) against this backend and observe
// it actually firing off the raw record the loader threads through, not a
// nil stand-in.
func (s *streamOps) RawRecord(e *kshark.Entry) []byte {
	if e.Offset < 0 || int(e.Offset) >= len(s.records) {
		return nil
	}
	r := s.records[e.Offset]
	raw, err := json.Marshal(struct {
		NextPID   int32 `json:"next_pid"`
		PrevState int64 `json:"prev_state"`
		WakingPID int32 `json:"waking_pid"`
	}{r.nextPID, r.prevState, r.wakingPID})
	if err != nil {
		return nil
	}
	return raw
}

// SchedFieldReader implements schedevents.FieldReader over RawRecord's
// encoding.
type SchedFieldReader struct{}

func (SchedFieldReader) NextPID(raw []byte) (int32, bool) {
	var r struct {
		NextPID int32 `json:"next_pid"`
	}
	if json.Unmarshal(raw, &r) != nil {
		return 0, false
	}
	return r.NextPID, true
}

func (SchedFieldReader) PrevState(raw []byte) (int64, bool) {
	var r struct {
		PrevState int64 `json:"prev_state"`
	}
	if json.Unmarshal(raw, &r) != nil {
		return 0, false
	}
	return r.PrevState, true
}

func (SchedFieldReader) WakingPID(raw []byte) (int32, bool) {
	var r struct {
		WakingPID int32 `json:"waking_pid"`
	}
	if json.Unmarshal(raw, &r) != nil {
		return 0, false
	}
	return r.WakingPID, true
}
