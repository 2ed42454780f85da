// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

package missedevents

import (
	"testing"

	"kshark/internal/engine/plugin"
)

func TestInitRegistersDrawHookOnly(t *testing.T) {
	called := false
	draw := func(argv []interface{}, streamID int16, val int64, action plugin.DrawAction) {
		called = true
	}
	a := plugin.NewAttachment(New(draw), 3, nil)
	a.Init()
	if a.Status&plugin.Loaded == 0 {
		t.Fatal("expected Init to succeed")
	}
	if len(a.DrawHooks) != 1 {
		t.Fatalf("len(DrawHooks) = %d, want 1", len(a.DrawHooks))
	}
	if len(a.EventHooks) != 0 {
		t.Fatal("missed_events must never register event hooks")
	}

	a.DrawHooks[0].Callback(nil, 3, 0, 0)
	if !called {
		t.Fatal("expected stored draw callback to be invocable")
	}

	a.Close()
	if a.DrawHooks != nil {
		t.Fatal("expected Close to clear draw hooks")
	}
}
