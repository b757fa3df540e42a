// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package curves generates forecast, backfill, and wait-time-index (WTI)
// output (spec.md §4.7.8): 5-minute slots across a park's operating
// window, one row per (entity, slot), either predicted (future dates),
// observed-or-imputed (past dates), or aggregated across a park's
// entities (WTI). An explicit ride-closure signal, or the park's own
// operating hours, nulls a slot's actual value (spec.md §4.7.9) — the
// only reason a slot is ever excluded downstream.
package curves

import "time"

// SlotInterval is the fixed output granularity spec.md §4.7.8 requires.
const SlotInterval = 5 * time.Minute

// Slots returns every 5-minute boundary in [open, close): the first slot
// at or after open, stepping by SlotInterval, up to but excluding close.
func Slots(open, closeAt time.Time) []time.Time {
	if !closeAt.After(open) {
		return nil
	}
	start := open.Truncate(SlotInterval)
	if start.Before(open) {
		start = start.Add(SlotInterval)
	}
	var out []time.Time
	for t := start; t.Before(closeAt); t = t.Add(SlotInterval) {
		out = append(out, t)
	}
	return out
}

// slotKey rounds an arbitrary instant down to its enclosing 5-minute slot,
// for bucketing observed readings (which rarely land exactly on a slot
// boundary) against the output grid.
func slotKey(t time.Time) time.Time {
	return t.Truncate(SlotInterval)
}
