// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

// Package merge implements the time-calibrated k-way merge engine (§4.8):
// merging one stream's per-cpu runs into a single ts-ordered sequence, and
// merging several streams' loaded arrays into one globally ordered array.
package merge

import (
	"sort"

	"kshark/pkg/kshark"
)

// Less reports whether a must sort before b. Entries where neither sorts
// before the other are ordered by NWay's run order: KWayByCPU compares ts
// only and relies on cpu-ordered runs (§4.8 "ties broken by the cpu with the
// lower index"); GlobalMerge and AppendAll use ByTimeThenStream (§4.8 "ties
// between streams broken by smaller stream_id").
type Less func(a, b *kshark.Entry) bool

// ByTimeThenStream is the comparator for GlobalMerge and AppendAll.
func ByTimeThenStream(a, b *kshark.Entry) bool {
	if a.TS != b.TS {
		return a.TS < b.TS
	}
	return a.StreamID < b.StreamID
}

// NWay merges len(runs) individually ts-non-decreasing slices into one
// ts-non-decreasing slice. Ties are resolved by scanning runs in the order
// given and picking the first one whose head does not sort after another
// run's head — so callers that want "lower index first" order their runs
// ascending by that index (cpu or stream id) before calling NWay.
func NWay(runs [][]*kshark.Entry, less Less) []*kshark.Entry {
	total := 0
	for _, r := range runs {
		total += len(r)
	}
	out := make([]*kshark.Entry, 0, total)
	idx := make([]int, len(runs))
	for {
		best := -1
		for ri, r := range runs {
			if idx[ri] >= len(r) {
				continue
			}
			if best == -1 || less(r[idx[ri]], runs[best][idx[best]]) {
				best = ri
			}
		}
		if best == -1 {
			break
		}
		out = append(out, runs[best][idx[best]])
		idx[best]++
	}
	return out
}

// KWayByCPU performs the per-stream merge across cpus described in §4.8: a
// DRI's LoadEntries returns entries grouped into per-cpu runs (each
// individually ts-sorted, per §4.7); this regroups and merges them into one
// ts-ordered sequence, cpu ties broken by the lower cpu index.
func KWayByCPU(entries []*kshark.Entry) []*kshark.Entry {
	byCPU := map[int16][]*kshark.Entry{}
	var cpus []int16
	for _, e := range entries {
		if _, ok := byCPU[e.CPU]; !ok {
			cpus = append(cpus, e.CPU)
		}
		byCPU[e.CPU] = append(byCPU[e.CPU], e)
	}
	sort.Slice(cpus, func(i, j int) bool { return cpus[i] < cpus[j] })
	runs := make([][]*kshark.Entry, len(cpus))
	for i, c := range cpus {
		runs[i] = byCPU[c]
	}
	return NWay(runs, func(a, b *kshark.Entry) bool { return a.TS < b.TS })
}

// Buffer is one stream's loaded array, as gathered for GlobalMerge.
type Buffer struct {
	StreamID int16
	Data     []*kshark.Entry
}

// GlobalMerge performs load_all (§4.8): a stable k-way merge across every
// stream's loaded array, ordered by StreamID ascending so cpu-style
// lower-index-wins tie-break falls out of NWay for free.
func GlobalMerge(buffers []Buffer) []*kshark.Entry {
	sorted := make([]Buffer, len(buffers))
	copy(sorted, buffers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StreamID < sorted[j].StreamID })
	runs := make([][]*kshark.Entry, len(sorted))
	for i, b := range sorted {
		runs[i] = b.Data
	}
	return NWay(runs, ByTimeThenStream)
}

// AppendAll performs append_all (§4.8): given a prior globally-merged array
// and a newly loaded stream's array, produces the length-N+M merge in one
// linear pass — the model for incrementally adding trace files.
func AppendAll(prior, added []*kshark.Entry) []*kshark.Entry {
	out := make([]*kshark.Entry, 0, len(prior)+len(added))
	i, j := 0, 0
	for i < len(prior) && j < len(added) {
		if ByTimeThenStream(added[j], prior[i]) {
			out = append(out, added[j])
			j++
		} else {
			out = append(out, prior[i])
			i++
		}
	}
	out = append(out, prior[i:]...)
	out = append(out, added[j:]...)
	return out
}

// ApplyCalibration adds the stream's calibration offset to every entry's ts,
// in place, as each entry is produced (§4.8). Nil calib is a no-op.
func ApplyCalibration(entries []*kshark.Entry, apply func(ts int64) int64) {
	if apply == nil {
		return
	}
	for _, e := range entries {
		e.TS = apply(e.TS)
	}
}
