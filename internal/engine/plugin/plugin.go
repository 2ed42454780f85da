// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

// Package plugin defines the Data-Processing Interface (DPI): a pluggable
// per-stream event/draw hook bundle with a small lifecycle, and the
// attachment bookkeeping (enabled/loaded/failed bits) a stream keeps per
// plugin. The shape mirrors the component def/impl pattern used across the
// agent's comp/ tree: a narrow interface the host calls, registered once
// against a registry, instantiated per attachment.
package plugin

import (
	"kshark/internal/engine/readout"
	"kshark/pkg/kshark"
)

// Status bits for one plugin attachment.
type Status uint8

const (
	Enabled Status = 1 << iota
	Loaded
	Failed
)

// Interface is the DPI method-table a plugin registers globally.
type Interface struct {
	Name string
	// Init is called once per attachment with the attachment itself as the
	// host: it exposes StreamID, Ops (the stream's readout.StreamOps, for
	// event-id lookups) and the Register{Event,Draw}Hook methods a plugin
	// uses to wire itself up. A return > 0 means success.
	Init func(a *Attachment) int
	// Close releases any per-stream state the plugin holds.
	Close func(a *Attachment)
}

// EventHook is invoked for every matching entry during load. It may mutate
// any field of e; RunEventHooks clears the untouched bit once any matching
// hook has run.
type EventHook struct {
	EventID  int16
	Callback func(streamID int16, raw []byte, e *kshark.Entry)
}

// DrawAction identifies what a draw hook is being asked to do; the core only
// stores draw hooks for the GUI collaborator, it never interprets Action.
type DrawAction int

// DrawHook is invoked by the GUI collaborator; the core merely stores it.
type DrawHook struct {
	Callback func(argv []interface{}, streamID int16, val int64, action DrawAction)
}

// Attachment is one plugin's state on one stream. Ops exposes the stream's
// DRI-bound read operations (event-id lookup, field introspection) so a
// plugin's Init can wire itself up without the host reaching back into
// stream internals.
type Attachment struct {
	Plugin      Interface
	StreamID    int16
	Ops         readout.StreamOps
	Status      Status
	EventHooks  []EventHook
	DrawHooks   []DrawHook
	Container   *kshark.Container
	MenuControl func()
}

// NewAttachment attaches plugin to streamID in the Enabled state (not yet
// INIT'd — the lifecycle verbs in attachment.go take it from there). ops may
// be nil for plugins that don't need stream introspection.
func NewAttachment(p Interface, streamID int16, ops readout.StreamOps) *Attachment {
	return &Attachment{Plugin: p, StreamID: streamID, Ops: ops, Status: Enabled}
}

// RegisterEventHook appends an event hook fired for EventID during load.
func (a *Attachment) RegisterEventHook(h EventHook) {
	a.EventHooks = append(a.EventHooks, h)
}

// RegisterDrawHook appends a draw hook the GUI collaborator may later
// invoke.
func (a *Attachment) RegisterDrawHook(h DrawHook) {
	a.DrawHooks = append(a.DrawHooks, h)
}

// RunEventHooks invokes every hook matching e.EventID, in registration
// order, clearing the untouched bit on e if any hook actually ran.
func (a *Attachment) RunEventHooks(raw []byte, e *kshark.Entry) {
	ran := false
	for _, h := range a.EventHooks {
		if h.EventID == e.EventID {
			h.Callback(a.StreamID, raw, e)
			ran = true
		}
	}
	if ran {
		e.MarkTouched()
	}
}
