// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package dims declares the narrow external-collaborator interfaces the
// modeling engine depends on but does not implement. Production wiring of
// these (fetching from an operations database, a calendar service, a
// theme-park-hours API) is explicitly out of scope — callers supply their
// own implementation; only fixed-table test doubles live here.
package dims

import "time"

// EntityDimension resolves per-entity attributes the modeling engine
// needs but the fact store never carries inline.
type EntityDimension interface {
	// HasPriorityQueue reports whether entityCode uses a paid/virtual
	// priority queue, which selects PRIORITY as the modeling target
	// instead of ACTUAL (spec.md §4.7.1).
	HasPriorityQueue(entityCode string) (bool, error)
}

// ParkHours is one park's operating hours for a single park_date, as of
// whatever version of the hours table was current when Hours was called.
type ParkHours struct {
	ParkCode   string
	ParkDate   time.Time
	OpenLocal  time.Time
	CloseLocal time.Time
	Version    int
}

// ParkHoursDimension resolves a park's published operating hours. The
// interface is explicitly versioned: operating hours are revised after
// the fact (a park announces an early closure, a holiday extension), and
// the modeling engine always wants the best information available right
// now, not whatever was true when a row was first observed.
type ParkHoursDimension interface {
	// Hours returns the best-available-as-of-now operating hours for
	// parkCode on parkDate.
	Hours(parkCode string, parkDate time.Time) (ParkHours, error)
}

// DateGroup is a calendar classification used to bucket seasonally
// similar dates together for feature construction (spec.md §4.7.2's
// pred_dategroupid).
type DateGroup struct {
	ParkDate    time.Time
	DateGroupID int
}

// DateGroupDimension resolves a calendar date's date-group classification.
type DateGroupDimension interface {
	DateGroup(parkDate time.Time) (DateGroup, error)
}

// Season classifies a calendar date into a named season and season-year
// (e.g. a park's "Halloween 2026" special-event season spanning a
// year boundary is still one season-year, not two).
type Season struct {
	ParkDate   time.Time
	Season     string
	SeasonYear int
}

// SeasonDimension resolves a calendar date's season.
type SeasonDimension interface {
	Season(parkDate time.Time) (Season, error)
}

// ParkPriorityDimension resolves a park's training-priority tier (spec.md
// §4.7.6): lower tier numbers train first. Batch orchestration sorts its
// work list by tier, then by observation count descending, within a tier.
type ParkPriorityDimension interface {
	Tier(parkCode string) (int, error)
}

// ClosureDimension resolves an explicit "ride closed" signal for an
// entity at a given instant, when one is available (spec.md §4.7.9). This
// is distinct from ParkHoursDimension: a ride can close mid-operating-day
// for refurbishment or a breakdown while the park itself stays open.
// Curve generation forces actual=null for any slot this reports closed,
// the only reason besides park-hours a slot is excluded from WTI.
type ClosureDimension interface {
	// Closed reports whether entityCode has an explicit closure signal
	// covering at. Implementations with no closure signal at all for an
	// entity should return false, not an error.
	Closed(entityCode string, at time.Time) (bool, error)
}
