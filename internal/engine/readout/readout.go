// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

// Package readout defines the Data Readout Interface (DRI): a pluggable
// file-format backend that can detect, open and enumerate a trace file's
// streams. Multiple backends can be registered against a Registry, the same
// detect-then-dispatch shape the agent's receiver/exporter components use to
// let several backends compete for one input without the caller knowing
// which one will claim it.
package readout

import "kshark/pkg/kshark"

// FieldKind is the result of probing an event field's type.
type FieldKind int

const (
	FieldInvalid FieldKind = iota
	FieldInteger
	FieldFloat
)

// Meta is what Init populates about a newly opened stream.
type Meta struct {
	NCPUs   int
	NEvents int
	IdlePID int32
}

// StreamOps is the generic per-stream interface a DRI attaches during Init.
// Every method is optional: callers must check for a nil StreamOps or
// individually absent capability (the interface is intentionally monolithic
// rather than split into one-method interfaces, matching a backend's single
// dispatch table per stream).
//
// Ownership: any string returned by these methods is a fresh allocation
// owned by the caller.
type StreamOps interface {
	GetPID(e *kshark.Entry) int32
	GetTask(e *kshark.Entry) string
	GetEventID(e *kshark.Entry) int16
	GetEventName(e *kshark.Entry) string
	GetInfo(e *kshark.Entry) string
	AuxInfo(e *kshark.Entry) string
	FindEventID(name string) (int16, bool)
	GetAllEventIDs() []int16
	GetAllEventFieldNames(e *kshark.Entry) []string
	GetEventFieldType(e *kshark.Entry, field string) FieldKind
	ReadEventFieldInt64(e *kshark.Entry, field string) (int64, error)
	DumpEntry(e *kshark.Entry) string

	// LoadEntries loads the stream's records as normalized entries, per-CPU
	// sorted by ts but not yet merged across CPUs (merge.KWayByCPU does that).
	LoadEntries() ([]*kshark.Entry, error)

	// LoadMatrix loads the same data as five parallel columnar arrays, for
	// callers that prefer columnar access over an Entry slice.
	LoadMatrix() (Matrix, error)
}

// Matrix is the columnar load result described in §4.7.
type Matrix struct {
	EventID []int16
	CPU     []int16
	PID     []int32
	Offset  []int64
	TS      []int64
}

// Len returns the number of rows (columns are expected to share length).
func (m Matrix) Len() int {
	return len(m.TS)
}

// MissedReporter is an optional capability a StreamOps may implement to
// report a hole of missed records immediately preceding a given record
// index, feeding the §4.7 synthetic "missed events" entry.
type MissedReporter interface {
	MissedAt(recordIndex int) int64
}

// RawRecordProvider is an optional capability a StreamOps may implement when
// it can recover the backend-defined raw record an already-produced Entry
// came from (typically by its Offset). The loader uses it to pass the real
// raw_record into event hooks, per §4.5's callback(stream, raw_record,
// entry) — without it, hooks still run but always see a nil raw record, so
// a plugin that needs fields beyond Entry itself (e.g. schedevents) cannot
// function. Returns nil if no raw record is available for e.
type RawRecordProvider interface {
	RawRecord(e *kshark.Entry) []byte
}

// Interface is the DRI method-table: detect, open, release.
type Interface interface {
	// DataFormat is a <=15 byte tag, globally unique across registered
	// inputs.
	DataFormat() string

	// CheckData is a cheap file-type sniff.
	CheckData(path string) bool

	// Init opens path, populates Meta and returns a StreamOps bound to the
	// opened stream (or nil, err on failure).
	Init(path string) (Meta, StreamOps, error)

	// Close releases any backend state associated with ops.
	Close(ops StreamOps) error
}
