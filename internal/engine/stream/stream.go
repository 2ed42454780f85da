// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

// Package stream defines the per-file-buffer DataStream object (§3) and the
// registry that allocates, indexes and recycles stream ids (§4.6).
package stream

import (
	"sync"

	"kshark/internal/engine/filter"
	"kshark/internal/engine/plugin"
	"kshark/internal/engine/readout"
	"kshark/pkg/kshark"
)

// TopBufferName is the sentinel name a top-level buffer stream carries; it
// is exactly one non-printable byte (§3, §6).
const TopBufferName = "\x1b"

// Calibration is the stream-level timestamp transform applied in-place as
// each entry is produced (§4.8). Array holds the constants Apply is called
// with, kept alongside so the pair round-trips through a session document
// without embedding a closure.
type Calibration struct {
	Name  string // "offset" is the only builtin kind; opaque otherwise
	Array []int64
	Apply func(ts int64, constants []int64) int64
}

// OffsetCalibration returns the canonical "add a constant" calibration
// described in §4.8.
func OffsetCalibration(offsetNS int64) Calibration {
	return Calibration{
		Name:  "offset",
		Array: []int64{offsetNS},
		Apply: func(ts int64, c []int64) int64 { return ts + c[0] },
	}
}

// Stream is one per-file-buffer object (component F/§3's DataStream).
// Mutation only ever happens through its Filters, Plugins and the DRI
// methods behind Ops; InputMu serializes those DRI calls, matching the
// single dispatch-per-stream contract in §4.4/§5.
type Stream struct {
	ID         int16
	File       string
	Name       string
	DataFormat string
	NCPUs      int
	NEvents    int
	IdlePID    int32
	IdleCPUs   *kshark.HashID
	Tasks      *kshark.HashID
	Filters    *filter.Registry
	Interface  readout.Interface
	Ops        readout.StreamOps
	Plugins    []*plugin.Attachment
	Calib      *Calibration

	InputMu sync.Mutex
}

// New returns a Stream with its id-sets and filter registry initialized.
// The caller (the loader's open path) fills File/Name/DataFormat/Interface
// /Ops/NCPUs/NEvents/IdlePID once the owning DRI has been detected.
func New() *Stream {
	return &Stream{
		IdleCPUs: kshark.NewHashID(kshark.TaskTableBits),
		Tasks:    kshark.NewHashID(kshark.TaskTableBits),
		Filters:  filter.New(),
		Name:     TopBufferName,
	}
}

// IsTopBuffer reports whether this stream is the top-level buffer of its
// file, i.e. carries the sentinel name.
func (s *Stream) IsTopBuffer() bool { return s.Name == TopBufferName }

// Attachment looks up this stream's attachment for a plugin by name.
func (s *Stream) Attachment(name string) (*plugin.Attachment, bool) {
	for _, a := range s.Plugins {
		if a.Plugin.Name == name {
			return a, true
		}
	}
	return nil, false
}

// AttachPlugin attaches p to the stream in the Enabled state. Per §4.5, if p
// is already attached and LOADED, the existing instance is first CLOSEd so
// re-attaching always yields a clean re-initialization.
func (s *Stream) AttachPlugin(p plugin.Interface) *plugin.Attachment {
	if existing, ok := s.Attachment(p.Name); ok {
		existing.Close()
		existing.Enable()
		return existing
	}
	a := plugin.NewAttachment(p, s.ID, s.Ops)
	s.Plugins = append(s.Plugins, a)
	return a
}

// DetachPlugin closes and removes the named plugin's attachment, if any.
func (s *Stream) DetachPlugin(name string) {
	for i, a := range s.Plugins {
		if a.Plugin.Name == name {
			a.Close()
			s.Plugins = append(s.Plugins[:i], s.Plugins[i+1:]...)
			return
		}
	}
}

// FilterIsSet reports whether any id filter or the advanced filter is set
// on this stream (§4.3).
func (s *Stream) FilterIsSet() bool { return s.Filters.IsSet() }
