// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

// Package schedevents is the built-in DPI for scheduler events, grounded on
// sched_events.c: on sched_switch it rewrites the entry's PID from the
// "prev" task (the id the reader naturally associates with the raw record)
// to the "next" task, since a sched_switch event is drawn as belonging to
// the task being switched IN, and stashes the pre-rewrite PID plus the
// packed "prev_state" field into a container so the GUI collaborator can
// still recover what actually happened. On sched_waking it appends the
// event's "pid" field to that same container.
package schedevents

import (
	"kshark/internal/engine/plugin"
	"kshark/pkg/kshark"
)

// Name is the registration name, matched against "plugins" entries in a
// session document.
const Name = "sched_events"

const (
	prevStateShift = 8
	prevStateMask  = 0xff
)

// PackField combines the pre-rewrite PID and the raw prev_state value into
// the single int64 the sched_switch container stores per entry, mirroring
// plugin_sched_set_pid/plugin_sched_set_prev_state's single ks_num_field_t.
func PackField(pid int32, prevState int64) int64 {
	return int64(pid)<<prevStateShift | (prevState & prevStateMask)
}

// UnpackPID recovers the pre-rewrite PID from a packed sched_switch field.
func UnpackPID(field int64) int32 {
	return int32(field >> prevStateShift)
}

// UnpackPrevState recovers the prev_state value from a packed sched_switch
// field.
func UnpackPrevState(field int64) int64 {
	return field & prevStateMask
}

// FieldReader resolves the two numeric fields this plugin needs out of a raw
// record; a DRI backend that wants sched_events to function must provide
// one when registering the event hooks (DRI backends that never carry
// scheduler traces simply never call New).
type FieldReader interface {
	// NextPID returns the sched_switch "next_pid" field.
	NextPID(raw []byte) (int32, bool)
	// PrevState returns the sched_switch "prev_state" field.
	PrevState(raw []byte) (int64, bool)
	// WakingPID returns the sched_waking "pid" field.
	WakingPID(raw []byte) (int32, bool)
}

// New returns the built-in sched_events DPI bound to reader. draw is passed
// through to the GUI collaborator unchanged.
func New(reader FieldReader, draw func(argv []interface{}, streamID int16, val int64, action plugin.DrawAction)) plugin.Interface {
	return plugin.Interface{
		Name: Name,
		Init: func(a *plugin.Attachment) int {
			if a.Ops == nil || reader == nil {
				return 0
			}
			switchID, ok := a.Ops.FindEventID("sched_switch")
			if !ok {
				return 0
			}
			a.Container = kshark.NewContainer()

			a.RegisterEventHook(plugin.EventHook{
				EventID: switchID,
				Callback: func(streamID int16, raw []byte, e *kshark.Entry) {
					nextPID, ok := reader.NextPID(raw)
					if !ok || nextPID < 0 {
						return
					}
					prevState, _ := reader.PrevState(raw)
					a.Container.Append(e, PackField(e.PID, prevState))
					e.PID = nextPID
				},
			})

			if wakingID, ok := a.Ops.FindEventID("sched_waking"); ok {
				a.RegisterEventHook(plugin.EventHook{
					EventID: wakingID,
					Callback: func(streamID int16, raw []byte, e *kshark.Entry) {
						pid, ok := reader.WakingPID(raw)
						if !ok {
							return
						}
						a.Container.Append(e, int64(pid))
					},
				})
			}

			a.RegisterDrawHook(plugin.DrawHook{Callback: draw})
			return 1
		},
		Close: func(a *plugin.Attachment) {
			a.Container = nil
			a.EventHooks = nil
			a.DrawHooks = nil
		},
	}
}
