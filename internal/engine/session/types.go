// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

// Package session implements the session serializer (§4.11): typed
// documents that round-trip streams, filters, plugins and model state to
// and from a JSON session file. Every persisted subtree carries a `type`
// string starting with "kshark.config." (§4.11, §6).
package session

// Type discriminators, contractual — these strings are part of the on-disk
// format and must not change.
const (
	TypeSession = "kshark.config.session"
	TypeStream  = "kshark.config.stream"
	TypeFilter  = "kshark.config.filter"
	TypeData    = "kshark.config.data"
	TypePlugins = "kshark.config.plugins"
	TypeModel   = "kshark.config.model"
	TypeLibrary = "kshark.config.library"
	TypeMarkers = "kshark.config.markers"
)

// DataRef is the data-file-reference sub-document (§4.11): the file a
// stream was opened from, its buffer name and the mtime recorded at export
// time. Import refuses to re-open the stream if the file's mtime no longer
// matches.
type DataRef struct {
	Type string `json:"type"`
	File string `json:"file"`
	Name string `json:"name"`
	Time int64  `json:"time"`
}

// AdvFilterTerm is one `{name, condition}` clause of the advanced filter
// (§4.11); terms are reconstructed by concatenation into "name:condition"
// and handed to the backend.
type AdvFilterTerm struct {
	Name      string `json:"name"`
	Condition string `json:"condition"`
}

// FilterDoc is one stream's six named id-sets plus the advanced filter and
// mask (§4.3, §6). Event filters serialize as event *names* (resolved
// through the stream's DRI); task/cpu filters serialize as raw integers.
type FilterDoc struct {
	Type            string          `json:"type"`
	ShowEventFilter []string        `json:"show event filter"`
	HideEventFilter []string        `json:"hide event filter"`
	ShowTaskFilter  []int32         `json:"show task filter"`
	HideTaskFilter  []int32         `json:"hide task filter"`
	ShowCPUFilter   []int32         `json:"show cpu filter"`
	HideCPUFilter   []int32         `json:"hide cpu filter"`
	AdvEventFilter  []AdvFilterTerm `json:"adv event filter"`
	FilterMask      uint8           `json:"filter mask"`
}

// StreamPluginRef is one `[name, enabled]` pair in a stream's "plugins"
// list (§4.11). It marshals as a two-element JSON array, not an object.
type StreamPluginRef struct {
	Name    string
	Enabled bool
}

// MarshalJSON encodes the pair as the contractual `[name, enabled]` tuple.
func (r StreamPluginRef) MarshalJSON() ([]byte, error) {
	return marshalTuple(r.Name, r.Enabled)
}

// UnmarshalJSON decodes the `[name, enabled]` tuple.
func (r *StreamPluginRef) UnmarshalJSON(b []byte) error {
	name, enabled, err := unmarshalTuple(b)
	if err != nil {
		return err
	}
	r.Name, r.Enabled = name, enabled
	return nil
}

// GlobalPluginRef is one entry of the session-wide plugin object-file list
// (§4.11): name, absolute path and mtime.
type GlobalPluginRef struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Path string `json:"path"`
	Time int64  `json:"mtime"`
}

// StreamDoc is one stream's full persisted state (§4.11, §6): stream id,
// data reference, filters, attached plugins and (for a calibrated stream)
// the calibration constants.
type StreamDoc struct {
	Type       string            `json:"type"`
	StreamID   int16             `json:"stream id"`
	Data       DataRef           `json:"data"`
	Filters    FilterDoc         `json:"filters"`
	Plugins    []StreamPluginRef `json:"plugins"`
	CalibArray []int64           `json:"calib. array,omitempty"`
}

// Mark is one of a session's two navigation markers (§6).
type Mark struct {
	IsSet bool `json:"isSet"`
	Row   int  `json:"row"`
}

// MarkersDoc is the optional marker sub-document (§6).
type MarkersDoc struct {
	Type   string `json:"type"`
	MarkA  Mark   `json:"markA"`
	MarkB  Mark   `json:"markB"`
	Active string `json:"Active"`
}

// ModelDoc is the optional GUI histogram-model sub-document (§4.11): it is
// round-tripped by the core but consumed only by the GUI collaborator.
type ModelDoc struct {
	Type  string   `json:"type"`
	Range [2]int64 `json:"range"`
	Bins  int      `json:"bins"`
}

// Doc is the session root document (§4.11, §6): the array of streams under
// "data streams", plus the optional global sub-documents. Import attaches
// each stream's plugins and applies its filters after that stream is open,
// independent of field order here; it does not act on UserPlugins.
type Doc struct {
	Type         string            `json:"type"`
	DataStreams  []StreamDoc       `json:"data streams"`
	Model        *ModelDoc         `json:"model,omitempty"`
	Markers      *MarkersDoc       `json:"markers,omitempty"`
	UserPlugins  []GlobalPluginRef `json:"user plugins,omitempty"`
	SplitterSize []int             `json:"splitter size,omitempty"`
	WindowSize   []int             `json:"window size,omitempty"`
	ColorScheme  string            `json:"color scheme,omitempty"`
}
