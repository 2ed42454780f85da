// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kshark/internal/engine/plugin"
)

func TestNewStreamIsTopBufferByDefault(t *testing.T) {
	s := New()
	assert.True(t, s.IsTopBuffer())
	assert.False(t, s.FilterIsSet())
}

// TestAttachPluginLifecycle walks a plugin attachment through enable, init,
// update and disable.
func TestAttachPluginLifecycle(t *testing.T) {
	s := New()
	var initCalls, closeCalls int
	p := plugin.Interface{
		Name: "sched_events",
		Init: func(a *plugin.Attachment) int { initCalls++; return 1 },
		Close: func(a *plugin.Attachment) {
			closeCalls++
		},
	}

	a := s.AttachPlugin(p)
	a.Init()
	assert.Equal(t, plugin.Loaded|plugin.Enabled, a.Status)
	assert.Equal(t, 1, initCalls)

	a.Update()
	assert.Equal(t, 1, closeCalls, "update must close before re-init")
	assert.Equal(t, 2, initCalls)

	a.Disable()
	a.Update()
	assert.Equal(t, plugin.Status(0), a.Status)
}

func TestAttachPluginFailedInitDoesNotBlockStream(t *testing.T) {
	s := New()
	p := plugin.Interface{
		Name: "broken",
		Init: func(a *plugin.Attachment) int { return 0 },
	}
	a := s.AttachPlugin(p)
	a.Init()
	assert.Equal(t, plugin.Failed|plugin.Enabled, a.Status)
	assert.NotNil(t, s, "stream must remain usable after a failed plugin init")
}

func TestDetachPluginClosesAndRemoves(t *testing.T) {
	s := New()
	var closed bool
	p := plugin.Interface{
		Name:  "x",
		Init:  func(a *plugin.Attachment) int { return 1 },
		Close: func(a *plugin.Attachment) { closed = true },
	}
	a := s.AttachPlugin(p)
	a.Init()
	s.DetachPlugin("x")

	assert.True(t, closed)
	_, ok := s.Attachment("x")
	assert.False(t, ok)
	require.Empty(t, s.Plugins)
}
