// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

package plugin

// Init runs the INIT verb (§4.5): requires Enabled, calls Plugin.Init, and
// sets Loaded/Failed from its return. Init failures are non-fatal: the
// stream stays usable, the attachment is simply marked Failed.
func (a *Attachment) Init() {
	if a.Status&Enabled == 0 {
		return
	}
	if a.Plugin.Init == nil {
		a.Status = a.Status&^Failed | Loaded
		return
	}
	if a.Plugin.Init(a) > 0 {
		a.Status = a.Status&^Failed | Loaded
	} else {
		a.Status = a.Status&^Loaded | Failed
	}
}

// Close runs the CLOSE verb: requires Loaded, calls Plugin.Close, clears
// both Loaded and Failed.
func (a *Attachment) Close() {
	if a.Status&Loaded == 0 {
		return
	}
	if a.Plugin.Close != nil {
		a.Plugin.Close(a)
	}
	a.Status &^= Loaded | Failed
}

// Update runs the UPDATE verb: CLOSE if Loaded, then INIT if Enabled.
func (a *Attachment) Update() {
	if a.Status&Loaded != 0 {
		a.Close()
	}
	if a.Status&Enabled != 0 {
		a.Init()
	}
}

// Enable sets the Enabled bit without changing Loaded/Failed; callers
// typically follow with Update().
func (a *Attachment) Enable() {
	a.Status |= Enabled
}

// Disable clears the Enabled bit; callers typically follow with Update() to
// also tear down a Loaded instance.
func (a *Attachment) Disable() {
	a.Status &^= Enabled
}
