// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

// Package missedevents is the built-in DPI that draws the synthetic
// "missed events" marker the loader (§4.7) inserts whenever a DRI backend
// reports a ring-buffer overflow gap. Unlike schedevents, it never touches
// entries during load: it is draw-only, mirroring missed_events.c exactly —
// the only thing it registers is a draw handler.
package missedevents

import "kshark/internal/engine/plugin"

// Name is the registration name, matched against "plugins" entries in a
// session document.
const Name = "missed_events"

// New returns the built-in missed-events DPI. draw is the GUI collaborator's
// draw callback; the core only stores it, same contract as plugin.DrawHook.
func New(draw func(argv []interface{}, streamID int16, val int64, action plugin.DrawAction)) plugin.Interface {
	return plugin.Interface{
		Name: Name,
		Init: func(a *plugin.Attachment) int {
			a.RegisterDrawHook(plugin.DrawHook{Callback: draw})
			return 1
		},
		Close: func(a *plugin.Attachment) {
			a.DrawHooks = nil
		},
	}
}
