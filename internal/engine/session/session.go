// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

package session

import (
	"fmt"
	"strconv"

	"github.com/spf13/afero"

	"kshark/internal/engine/filter"
	"kshark/internal/engine/kserr"
	"kshark/internal/engine/loader"
	"kshark/internal/engine/plugin"
	"kshark/internal/engine/readout"
	"kshark/internal/engine/stream"
	"kshark/pkg/kshark"
)

// ExportStream builds one stream's StreamDoc (§4.11). mask is the
// context-wide filter mask, stamped into the stream's FilterDoc.
func ExportStream(s *stream.Stream, fs afero.Fs, mask uint8) (StreamDoc, error) {
	info, err := fs.Stat(s.File)
	if err != nil {
		return StreamDoc{}, fmt.Errorf("%w: %s: %v", kserr.ErrNotFound, s.File, err)
	}
	doc := StreamDoc{
		Type:     TypeStream,
		StreamID: s.ID,
		Data: DataRef{
			Type: TypeData,
			File: s.File,
			Name: s.Name,
			Time: info.ModTime().Unix(),
		},
		Filters: exportFilters(s),
		Plugins: exportPlugins(s),
	}
	doc.Filters.FilterMask = mask &^ filter.MaskReservedBits
	if s.Calib != nil {
		doc.CalibArray = append([]int64(nil), s.Calib.Array...)
	}
	return doc, nil
}

// ExportSession builds the full session document (§4.11, §6).
func ExportSession(streams []*stream.Stream, fs afero.Fs, mask uint8, model *ModelDoc, markers *MarkersDoc, userPlugins []GlobalPluginRef) (Doc, error) {
	doc := Doc{Type: TypeSession, Model: model, Markers: markers, UserPlugins: userPlugins}
	for _, s := range streams {
		sd, err := ExportStream(s, fs, mask)
		if err != nil {
			return Doc{}, err
		}
		doc.DataStreams = append(doc.DataStreams, sd)
	}
	return doc, nil
}

// ImportSession reconstructs context state from doc, re-opening every
// stream's data file (§4.11). No plugin is loaded here: each stream's
// plugin refs are looked up in the already-populated globalPlugins and
// attached once that stream is open, and doc.UserPlugins is not read.
// Filters are applied only after each stream exists. On any failure, every
// stream opened so far in this import is closed and a precise, wrapped error
// identifying the failing sub-document is returned — the context is left
// exactly as it was before Import was called for state committed by the
// caller (see kscontext.Context.LoadSession).
func ImportSession(doc Doc, fs afero.Fs, streams *stream.Registry, readouts *readout.Registry, globalPlugins *plugin.Registry) (uint8, *ModelDoc, *MarkersDoc, error) {
	if doc.Type != "" && doc.Type != TypeSession {
		return 0, nil, nil, fmt.Errorf("%w: expected %s, got %q", kserr.ErrInvalidFormat, TypeSession, doc.Type)
	}

	var mask uint8
	opened := make([]*stream.Stream, 0, len(doc.DataStreams))
	rollback := func() {
		for _, s := range opened {
			_ = loader.Close(s, streams)
		}
	}

	for _, sd := range doc.DataStreams {
		info, err := fs.Stat(sd.Data.File)
		if err != nil {
			rollback()
			return 0, nil, nil, fmt.Errorf("%w: %s: %v", kserr.ErrNotFound, sd.Data.File, err)
		}
		if info.ModTime().Unix() != sd.Data.Time {
			rollback()
			return 0, nil, nil, fmt.Errorf("%w: %s: stale mtime, refusing to open", kserr.ErrInvalidFormat, sd.Data.File)
		}

		id, err := loader.Open(sd.Data.File, streams, readouts)
		if err != nil {
			rollback()
			return 0, nil, nil, err
		}
		s := streams.Get(id)
		s.Name = sd.Data.Name
		opened = append(opened, s)

		applyFilters(s, sd.Filters)
		mask = sd.Filters.FilterMask

		if len(sd.CalibArray) > 0 {
			calib := stream.OffsetCalibration(0)
			calib.Array = append([]int64(nil), sd.CalibArray...)
			s.Calib = &calib
		}

		for _, ref := range sd.Plugins {
			p, ok := globalPlugins.Lookup(ref.Name)
			if !ok {
				continue // not linked into this binary: best-effort, see DESIGN.md
			}
			a := s.AttachPlugin(p)
			if ref.Enabled {
				a.Enable()
			} else {
				a.Disable()
			}
			a.Init()
		}
	}

	return mask, doc.Model, doc.Markers, nil
}

func exportPlugins(s *stream.Stream) []StreamPluginRef {
	out := make([]StreamPluginRef, 0, len(s.Plugins))
	for _, a := range s.Plugins {
		out = append(out, StreamPluginRef{Name: a.Plugin.Name, Enabled: a.Status&plugin.Enabled != 0})
	}
	return out
}

func exportFilters(s *stream.Stream) FilterDoc {
	doc := FilterDoc{
		Type:            TypeFilter,
		ShowEventFilter: eventNames(s, s.Filters.ShowEvent),
		HideEventFilter: eventNames(s, s.Filters.HideEvent),
		ShowTaskFilter:  s.Filters.ShowTask.IDs(),
		HideTaskFilter:  s.Filters.HideTask.IDs(),
		ShowCPUFilter:   s.Filters.ShowCPU.IDs(),
		HideCPUFilter:   s.Filters.HideCPU.IDs(),
	}
	if s.Filters.Advanced != "" {
		name, cond := splitAdvanced(s.Filters.Advanced)
		doc.AdvEventFilter = []AdvFilterTerm{{Name: name, Condition: cond}}
	}
	return doc
}

func applyFilters(s *stream.Stream, doc FilterDoc) {
	for _, id := range resolveEventIDs(s.Ops, doc.ShowEventFilter) {
		s.Filters.ShowEvent.Add(id)
	}
	for _, id := range resolveEventIDs(s.Ops, doc.HideEventFilter) {
		s.Filters.HideEvent.Add(id)
	}
	for _, v := range doc.ShowTaskFilter {
		s.Filters.ShowTask.Add(v)
	}
	for _, v := range doc.HideTaskFilter {
		s.Filters.HideTask.Add(v)
	}
	for _, v := range doc.ShowCPUFilter {
		s.Filters.ShowCPU.Add(v)
	}
	for _, v := range doc.HideCPUFilter {
		s.Filters.HideCPU.Add(v)
	}
	if len(doc.AdvEventFilter) > 0 {
		t := doc.AdvEventFilter[0]
		if t.Name != "" {
			s.Filters.Advanced = t.Name + ":" + t.Condition
		} else {
			s.Filters.Advanced = t.Condition
		}
		s.Filters.AdvancedDirty = true
	}
}

func splitAdvanced(expr string) (name, condition string) {
	for i := 0; i < len(expr); i++ {
		if expr[i] == ':' {
			return expr[:i], expr[i+1:]
		}
	}
	return "", expr
}

func eventNames(s *stream.Stream, ids *kshark.HashID) []string {
	out := make([]string, 0, ids.Count())
	for _, id := range ids.IDs() {
		if s.Ops != nil {
			if name := s.Ops.GetEventName(&kshark.Entry{EventID: int16(id)}); name != "" {
				out = append(out, name)
				continue
			}
		}
		out = append(out, strconv.Itoa(int(id)))
	}
	return out
}

func resolveEventIDs(ops readout.StreamOps, names []string) []int32 {
	out := make([]int32, 0, len(names))
	for _, n := range names {
		if ops != nil {
			if id, ok := ops.FindEventID(n); ok {
				out = append(out, int32(id))
				continue
			}
		}
		if v, err := strconv.Atoi(n); err == nil {
			out = append(out, int32(v))
		}
	}
	return out
}
