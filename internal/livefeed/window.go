// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package livefeed polls upstream live wait-time feeds during each park's
// operating hours and stages the results for the Morning Merge (C3).
package livefeed

import "time"

// ParkHours is one park's local operating hours on a given park_date.
type ParkHours struct {
	ParkCode   string
	OpenLocal  time.Time // in the park's own location
	CloseLocal time.Time
}

// OperatingWindow returns [open-padding, close+padding], the instants
// during which the poller considers a park in-scope for polling. Both
// bounds stay in the park's own location so later comparisons against
// time.Now().In(loc) are unambiguous.
func OperatingWindow(hours ParkHours, padding time.Duration) (open, closeAt time.Time) {
	return hours.OpenLocal.Add(-padding), hours.CloseLocal.Add(padding)
}

// InWindow reports whether now falls within [open, closeAt].
func InWindow(now, open, closeAt time.Time) bool {
	return !now.Before(open) && !now.After(closeAt)
}
