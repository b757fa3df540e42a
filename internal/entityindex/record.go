// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package entityindex maintains, in a Badger-backed store, one summary
// record per entity: its observation span, observation count, and the
// last time it was modeled — the index the modeling engine's batch
// orchestration (C7) consults to decide which entities are due for
// training, without ever re-scanning the whole fact store.
package entityindex

import "time"

// schemaVersion is bumped whenever Record gains fields. Records written
// under an older version are not migrated in place; Rebuild discards every
// record and recomputes it from the fact store (LastModeledAt is not kept).
const schemaVersion = 1

// Record is one entity's summary row.
type Record struct {
	SchemaVersion    int       `json:"schema_version"`
	EntityCode       string    `json:"entity_code"`
	ParkCode         string    `json:"park_code"`
	FirstObservedAt  time.Time `json:"first_observed_at"`
	LastObservedAt   time.Time `json:"last_observed_at"`
	ObservationCount int64     `json:"observation_count"`
	LastModeledAt    time.Time `json:"last_modeled_at,omitempty"`
}

// AgeHours returns how long it has been since LastObservedAt, the
// "minAgeHours" comparand ListForModeling filters on.
func (r Record) AgeHours(now time.Time) float64 {
	return now.Sub(r.LastObservedAt).Hours()
}
