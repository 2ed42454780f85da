// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kshark/internal/engine/filter"
	"kshark/internal/engine/plugin"
	"kshark/internal/engine/plugin/schedevents"
	"kshark/internal/engine/readout"
	"kshark/internal/engine/readout/tepsim"
	"kshark/internal/engine/stream"
	"kshark/pkg/kshark"
)

func newTepsimRegistry(t *testing.T, name string, spec tepsim.Spec) *readout.Registry {
	t.Helper()
	backend := tepsim.New()
	backend.Register(name, spec)
	reg := readout.NewRegistry()
	require.NoError(t, reg.Register(backend))
	return reg
}

func TestOpenAssignsLiveStream(t *testing.T) {
	streams := stream.NewRegistry()
	readouts := newTepsimRegistry(t, "trace1", tepsim.DefaultSpec())

	id, err := Open("trace1", streams, readouts)
	require.NoError(t, err)

	s := streams.Get(id)
	require.NotNil(t, s, "get_stream must be non-nil right after open")
	assert.Contains(t, streams.AllStreams(), id)
	assert.Equal(t, tepsim.DefaultSpec().NCPUs, s.NCPUs)
}

func TestOpenLeavesNoSlotWhenNoBackendAccepts(t *testing.T) {
	streams := stream.NewRegistry()
	readouts := readout.NewRegistry()

	_, err := Open("does-not-exist", streams, readouts)
	require.Error(t, err)
	assert.Empty(t, streams.AllStreams(), "a failed open must not leave a stream slot live")
}

func TestCloseFreesSlotForReuse(t *testing.T) {
	streams := stream.NewRegistry()
	readouts := newTepsimRegistry(t, "trace1", tepsim.DefaultSpec())

	id, err := Open("trace1", streams, readouts)
	require.NoError(t, err)
	require.NoError(t, Close(streams.Get(id), streams))
	assert.Nil(t, streams.Get(id), "get_stream must be nil after close")

	again, err := Open("trace1", streams, readouts)
	require.NoError(t, err)
	assert.Equal(t, id, again, "a subsequent open may reuse the closed id")
}

func TestLoadProducesNonDecreasingTimestampsPerCPU(t *testing.T) {
	streams := stream.NewRegistry()
	readouts := newTepsimRegistry(t, "trace1", tepsim.DefaultSpec())

	id, err := Open("trace1", streams, readouts)
	require.NoError(t, err)
	s := streams.Get(id)

	entries, err := Load(s, filter.MaskText|filter.MaskGraph|filter.MaskEvent)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	lastByCPU := map[int16]int64{}
	for _, e := range entries {
		assert.Equal(t, id, e.StreamID, "stream_id must refer to the live stream")
		if prev, ok := lastByCPU[e.CPU]; ok {
			assert.LessOrEqualf(t, prev, e.TS, "cpu %d subsequence must be non-decreasing", e.CPU)
		}
		lastByCPU[e.CPU] = e.TS
	}
	for i := 1; i < len(entries); i++ {
		assert.LessOrEqual(t, entries[i-1].TS, entries[i].TS, "merged array must be non-decreasing")
	}
}

func TestLoadNoFilterFullyVisible(t *testing.T) {
	streams := stream.NewRegistry()
	readouts := newTepsimRegistry(t, "trace1", tepsim.DefaultSpec())

	id, err := Open("trace1", streams, readouts)
	require.NoError(t, err)
	s := streams.Get(id)

	entries, err := Load(s, filter.MaskText|filter.MaskGraph|filter.MaskEvent)
	require.NoError(t, err)
	for _, e := range entries {
		if e.EventID == kshark.EventOverflow { // synthetic entries carry no visibility guarantee
			continue
		}
		assert.Equal(t, uint8(0xFF), e.Visible, "with no filter set, every entry must be fully visible")
	}
}

// TestInjectMissedEventsPlacement checks the missed-events placement rule directly, against the exact
// entries array injectMissedEvents sees (before the per-cpu merge reorders
// entries across cpus), so the placement check is deterministic regardless
// of how other cpus' timestamps happen to interleave.
func TestInjectMissedEventsPlacement(t *testing.T) {
	spec := tepsim.DefaultSpec()
	spec.NCPUs = 1
	spec.MissedAtCPU = 0
	streams := stream.NewRegistry()
	readouts := newTepsimRegistry(t, "trace1", spec)

	id, err := Open("trace1", streams, readouts)
	require.NoError(t, err)
	s := streams.Get(id)

	raw, err := s.Ops.LoadEntries()
	require.NoError(t, err)

	out := injectMissedEvents(s, raw)
	require.Greater(t, len(out), len(raw), "expected one synthetic entry to be inserted")

	var found bool
	for i, e := range out {
		if e.EventID != kshark.EventOverflow {
			continue
		}
		found = true
		assert.Equal(t, spec.MissedCount, e.Offset, "offset carries the missed count")
		require.Less(t, i+1, len(out))
		next := out[i+1]
		assert.Equal(t, next.TS-missedEventsGapNS, e.TS, "exactly 10ns before the record it precedes")
	}
	assert.True(t, found, "expected a synthetic missed-events entry")
}

// TestLoadThreadsRawRecordIntoEventHooks checks that Load passes the
// backend's real raw record into event hooks, not a nil stand-in: a DPI
// that reads fields off the raw record (schedevents reading next_pid) must
// actually rewrite entries when driven through the integrated pipeline, the
// same way it does in schedevents' own unit tests against a hand-built raw
// value.
func TestLoadThreadsRawRecordIntoEventHooks(t *testing.T) {
	spec := tepsim.DefaultSpec()
	spec.NCPUs = 1
	spec.MissedAtCPU = -1
	spec.EventNames = []string{"sched_switch", "sched_waking"}
	streams := stream.NewRegistry()
	readouts := newTepsimRegistry(t, "trace1", spec)

	id, err := Open("trace1", streams, readouts)
	require.NoError(t, err)
	s := streams.Get(id)

	p := schedevents.New(tepsim.SchedFieldReader{}, nil)
	a := s.AttachPlugin(p)
	a.Init()
	require.True(t, a.Status&plugin.Loaded != 0, "schedevents Init must succeed against tepsim's raw records")

	entries, err := Load(s, filter.MaskText|filter.MaskGraph|filter.MaskEvent)
	require.NoError(t, err)

	var rewritten int
	for _, e := range entries {
		if e.EventID != 0 { // 0 == "sched_switch"
			continue
		}
		rewritten++
		assert.GreaterOrEqual(t, e.PID, int32(1000), "PID must be rewritten to next_pid, which Load can only see via the real raw record")
	}
	require.Greater(t, rewritten, 0, "expected at least one sched_switch entry")
	assert.Equal(t, 2*rewritten, a.Container.Len(), "one stashed field per sched_switch entry plus one per sched_waking entry")
}
