// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

// Package loader drives a stream's DRI backend to produce the normalized,
// merged, filtered entry array described in §4.7: stream_id assignment,
// calibration, event hooks, id filtering, task/idle-cpu tracking and the
// synthetic "missed events" entry. The stream's advanced filter string is not
// evaluated during load.
package loader

import (
	"fmt"

	"kshark/internal/engine/filter"
	"kshark/internal/engine/kserr"
	"kshark/internal/engine/merge"
	"kshark/internal/engine/plugin"
	"kshark/internal/engine/readout"
	"kshark/internal/engine/stream"
	"kshark/pkg/kshark"
)

// missedEventsGapNS is the fixed offset the synthetic "missed events" entry
// is placed before the record it precedes (§4.7).
const missedEventsGapNS = 10

// Open detects a DRI via readouts, allocates a stream slot and initializes
// it against path (§4.7's open(path)). On failure no slot stays allocated
// and an error is returned.
func Open(path string, streams *stream.Registry, readouts *readout.Registry) (int16, error) {
	dri, err := readouts.Detect(path)
	if err != nil {
		return 0, err
	}
	return OpenWith(path, dri, streams)
}

// OpenWith is Open with the DRI already chosen — used by the session
// importer, which knows the data_format recorded in the document and must
// re-open through that exact backend rather than re-running detection.
func OpenWith(path string, dri readout.Interface, streams *stream.Registry) (int16, error) {
	s := stream.New()
	id, err := streams.Add(s)
	if err != nil {
		return 0, err
	}
	meta, ops, err := dri.Init(path)
	if err != nil {
		streams.Remove(id)
		return 0, fmt.Errorf("%w: %v", kserr.ErrBackend, err)
	}
	s.File = path
	s.DataFormat = dri.DataFormat()
	s.Interface = dri
	s.Ops = ops
	s.NCPUs = meta.NCPUs
	s.NEvents = meta.NEvents
	s.IdlePID = meta.IdlePID
	return id, nil
}

// Close runs the stream's DRI Close and removes it from the registry,
// rolling back a stream's resources in one step (used both by a normal
// stream_close and by a failed compound open).
func Close(s *stream.Stream, streams *stream.Registry) error {
	for _, a := range s.Plugins {
		a.Close()
	}
	if s.Interface != nil && s.Ops != nil {
		s.InputMu.Lock()
		err := s.Interface.Close(s.Ops)
		s.InputMu.Unlock()
		if err != nil {
			return fmt.Errorf("%w: %v", kserr.ErrBackend, err)
		}
	}
	return streams.Remove(s.ID)
}

// Load drives s's backend end to end: LoadEntries, missed-events synthesis,
// the per-cpu k-way merge, stream_id assignment, calibration, event hooks
// and id filtering, in the order §4.7 specifies; s.Filters.Advanced is not
// applied. globalMask is the context-wide visibility mask (§4.3 step 3).
func Load(s *stream.Stream, globalMask uint8) ([]*kshark.Entry, error) {
	if s.Ops == nil {
		return nil, fmt.Errorf("%w: stream %d has no attached interface", kserr.ErrBackend, s.ID)
	}

	s.InputMu.Lock()
	raw, err := s.Ops.LoadEntries()
	s.InputMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kserr.ErrBackend, err)
	}
	if len(raw) == 0 {
		return nil, kserr.ErrNoData
	}

	raw = injectMissedEvents(s, raw)
	merged := merge.KWayByCPU(raw)

	rawProvider, _ := s.Ops.(readout.RawRecordProvider)

	seenCPU := make(map[int16]bool, s.NCPUs)
	for _, e := range merged {
		e.StreamID = s.ID
		if s.Calib != nil {
			e.TS = s.Calib.Apply(e.TS, s.Calib.Array)
		}
		var record []byte
		if rawProvider != nil && e.EventID != kshark.EventOverflow {
			record = rawProvider.RawRecord(e)
		}
		for _, a := range s.Plugins {
			if a.Status&plugin.Loaded != 0 {
				a.RunEventHooks(record, e)
			}
		}
		e.Visible = filter.Apply(e.Visible, globalMask, s.Filters, int32(e.EventID), e.PID, int32(e.CPU))

		if e.EventID != kshark.EventOverflow {
			s.Tasks.Add(e.PID)
		}
		seenCPU[e.CPU] = true
	}
	for c := 0; c < s.NCPUs; c++ {
		if !seenCPU[int16(c)] {
			s.IdleCPUs.Add(int32(c))
		}
	}
	return merged, nil
}

// LoadMatrix is LoadEntries's columnar counterpart (§4.7): it applies the
// same calibration but not hooks/filters, since columnar access is for
// callers working directly with raw fields rather than Entry values.
func LoadMatrix(s *stream.Stream) (readout.Matrix, error) {
	if s.Ops == nil {
		return readout.Matrix{}, fmt.Errorf("%w: stream %d has no attached interface", kserr.ErrBackend, s.ID)
	}
	s.InputMu.Lock()
	m, err := s.Ops.LoadMatrix()
	s.InputMu.Unlock()
	if err != nil {
		return readout.Matrix{}, fmt.Errorf("%w: %v", kserr.ErrBackend, err)
	}
	if s.Calib != nil {
		for i, ts := range m.TS {
			m.TS[i] = s.Calib.Apply(ts, s.Calib.Array)
		}
	}
	return m, nil
}

// injectMissedEvents walks entries in their as-loaded (per-cpu, file) order
// and, for every record the backend reports a preceding gap for, inserts the
// synthetic entry described in §4.7 immediately before it.
func injectMissedEvents(s *stream.Stream, entries []*kshark.Entry) []*kshark.Entry {
	reporter, ok := s.Ops.(readout.MissedReporter)
	if !ok {
		return entries
	}
	out := make([]*kshark.Entry, 0, len(entries))
	for _, e := range entries {
		if n := reporter.MissedAt(int(e.Offset)); n > 0 {
			out = append(out, &kshark.Entry{
				Visible:  kshark.VisAll,
				StreamID: s.ID,
				EventID:  kshark.EventOverflow,
				CPU:      e.CPU,
				PID:      -1,
				Offset:   n,
				TS:       e.TS - missedEventsGapNS,
			})
		}
		out = append(out, e)
	}
	return out
}
