// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

// Package jsontrace implements a reference DRI backend (see readout.Interface)
// over the engine's canonical JSON-Lines trace dump: one JSON object per
// record. It plays the role the tep-data backend plays for real ftrace
// data, but needs no external parsing library — a thin, dependency-free
// adapter behind the same Interface real backends implement.
package jsontrace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"kshark/internal/engine/readout"
	"kshark/pkg/kshark"
)

// DataFormat is the tag this backend registers under.
const DataFormat = "json.trace"

// record is one line of the trace file.
type record struct {
	CPU    int16  `json:"cpu"`
	PID    int32  `json:"pid"`
	TS     int64  `json:"ts"`
	Event  int16  `json:"event"`
	Name   string `json:"name"`
	Task   string `json:"task"`
	Info   string `json:"info"`
	Offset int64  `json:"offset"`
	// Missed, when > 0, reports a hole of Missed records before this one on
	// the same cpu — triggers the synthetic missed-events entry in §4.7.
	Missed int64 `json:"missed,omitempty"`
	// NextPID, PrevState and WakingPID are the sched_switch/sched_waking
	// fields the built-in sched_events DPI reads out of the raw record
	// (see SchedFieldReader); absent from non-scheduler records.
	NextPID   int32 `json:"next_pid,omitempty"`
	PrevState int64 `json:"prev_state,omitempty"`
	WakingPID int32 `json:"waking_pid,omitempty"`
}

// Backend implements readout.Interface.
type Backend struct{}

// New returns a Backend value; there is no per-backend state.
func New() Backend { return Backend{} }

func (Backend) DataFormat() string { return DataFormat }

// CheckData sniffs for a ".jtrace" extension, the cheap file-type check
// described in §4.4.
func (Backend) CheckData(path string) bool {
	return strings.HasSuffix(path, ".jtrace")
}

func (b Backend) Init(path string) (readout.Meta, readout.StreamOps, error) {
	recs, err := readFile(path)
	if err != nil {
		return readout.Meta{}, nil, err
	}
	cpus := map[int16]bool{}
	events := map[int16]bool{}
	names := map[int16]string{}
	for _, r := range recs {
		cpus[r.CPU] = true
		events[r.Event] = true
		names[r.Event] = r.Name
	}
	ops := &streamOps{records: recs, names: names}
	return readout.Meta{
		NCPUs:   len(cpus),
		NEvents: len(events),
		IdlePID: 0,
	}, ops, nil
}

func (Backend) Close(readout.StreamOps) error { return nil }

func readFile(path string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var recs []record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var r record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return nil, fmt.Errorf("json.trace: %w", err)
		}
		recs = append(recs, r)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

type streamOps struct {
	records []record
	names   map[int16]string
}

func (s *streamOps) GetPID(e *kshark.Entry) int32 { return e.PID }

func (s *streamOps) GetTask(e *kshark.Entry) string {
	if int(e.Offset) < len(s.records) && e.Offset >= 0 {
		return s.records[e.Offset].Task
	}
	return ""
}

func (s *streamOps) GetEventID(e *kshark.Entry) int16 { return e.EventID }

func (s *streamOps) GetEventName(e *kshark.Entry) string {
	if name, ok := s.names[e.EventID]; ok {
		return name
	}
	return ""
}

func (s *streamOps) GetInfo(e *kshark.Entry) string {
	if int(e.Offset) < len(s.records) && e.Offset >= 0 {
		return s.records[e.Offset].Info
	}
	return ""
}

func (s *streamOps) AuxInfo(e *kshark.Entry) string { return "" }

func (s *streamOps) FindEventID(name string) (int16, bool) {
	for id, n := range s.names {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

func (s *streamOps) GetAllEventIDs() []int16 {
	ids := make([]int16, 0, len(s.names))
	for id := range s.names {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *streamOps) GetAllEventFieldNames(e *kshark.Entry) []string {
	return []string{"cpu", "pid", "ts", "event", "task", "info"}
}

func (s *streamOps) GetEventFieldType(e *kshark.Entry, field string) readout.FieldKind {
	switch field {
	case "cpu", "pid", "ts", "event":
		return readout.FieldInteger
	default:
		return readout.FieldInvalid
	}
}

func (s *streamOps) ReadEventFieldInt64(e *kshark.Entry, field string) (int64, error) {
	switch field {
	case "cpu":
		return int64(e.CPU), nil
	case "pid":
		return int64(e.PID), nil
	case "ts":
		return e.TS, nil
	case "event":
		return int64(e.EventID), nil
	default:
		return 0, fmt.Errorf("json.trace: unknown field %q", field)
	}
}

func (s *streamOps) DumpEntry(e *kshark.Entry) string {
	return fmt.Sprintf("cpu=%d pid=%d ts=%d event=%s", e.CPU, e.PID, e.TS, s.GetEventName(e))
}

// LoadEntries returns entries grouped by CPU and sorted by ts within each
// CPU — the shape merge.KWayByCPU expects. StreamID is left 0; the loader fills
// it in after Init.
func (s *streamOps) LoadEntries() ([]*kshark.Entry, error) {
	byCPU := map[int16][]*kshark.Entry{}
	for i, r := range s.records {
		byCPU[r.CPU] = append(byCPU[r.CPU], &kshark.Entry{
			Visible:  kshark.VisAll,
			EventID:  r.Event,
			CPU:      r.CPU,
			PID:      r.PID,
			Offset:   int64(i),
			TS:       r.TS,
		})
	}
	var out []*kshark.Entry
	cpus := make([]int16, 0, len(byCPU))
	for c := range byCPU {
		cpus = append(cpus, c)
	}
	sort.Slice(cpus, func(i, j int) bool { return cpus[i] < cpus[j] })
	for _, c := range cpus {
		es := byCPU[c]
		sort.SliceStable(es, func(i, j int) bool { return es[i].TS < es[j].TS })
		out = append(out, es...)
	}
	return out, nil
}

func (s *streamOps) LoadMatrix() (readout.Matrix, error) {
	entries, err := s.LoadEntries()
	if err != nil {
		return readout.Matrix{}, err
	}
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

// MissedAt reports the missed-event count recorded just before record index
// i (by file order), used by the loader to synthesize the §4.7 entry.
func (s *streamOps) MissedAt(i int) int64 {
	if i < 0 || i >= len(s.records) {
		return 0
	}
	return s.records[i].Missed
}

// RawRecord implements readout.RawRecordProvider: the raw record behind e is
// just its backing JSON line, re-marshaled, so a DPI's event hook can read
// fields (e.g. next_pid) that never made it into the normalized Entry.
func (s *streamOps) RawRecord(e *kshark.Entry) []byte {
	if e.Offset < 0 || int(e.Offset) >= len(s.records) {
		return nil
	}
	raw, err := json.Marshal(s.records[e.Offset])
	if err != nil {
		return nil
	}
	return raw
}

// SchedFieldReader implements schedevents.FieldReader over this backend's
// RawRecord encoding, letting the built-in sched_events DPI function against
// real json.trace input (see cmd/kshark-cli/internal/app.registerBuiltins).
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
