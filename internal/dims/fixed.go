// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package dims

import (
	"fmt"
	"time"
)

// FixedEntityDimension is a map-backed EntityDimension, useful for tests
// and for small deployments that maintain the priority-queue flag by hand
// rather than wiring a real operations database.
type FixedEntityDimension map[string]bool

// HasPriorityQueue implements EntityDimension.
func (f FixedEntityDimension) HasPriorityQueue(entityCode string) (bool, error) {
	return f[entityCode], nil
}

// FixedParkHoursDimension is a map-backed ParkHoursDimension keyed by
// park_code then park_date (formatted 2006-01-02).
type FixedParkHoursDimension map[string]map[string]ParkHours

// Hours implements ParkHoursDimension.
func (f FixedParkHoursDimension) Hours(parkCode string, parkDate time.Time) (ParkHours, error) {
	byDate, ok := f[parkCode]
	if !ok {
		return ParkHours{}, fmt.Errorf("no operating hours configured for park_code %q", parkCode)
	}
	h, ok := byDate[parkDate.Format("2006-01-02")]
	if !ok {
		return ParkHours{}, fmt.Errorf("no operating hours configured for %s on %s", parkCode, parkDate.Format("2006-01-02"))
	}
	return h, nil
}

// FixedDateGroupDimension is a map-backed DateGroupDimension keyed by
// park_date formatted 2006-01-02.
type FixedDateGroupDimension map[string]int

// DateGroup implements DateGroupDimension.
func (f FixedDateGroupDimension) DateGroup(parkDate time.Time) (DateGroup, error) {
	id, ok := f[parkDate.Format("2006-01-02")]
	if !ok {
		return DateGroup{}, fmt.Errorf("no date group configured for %s", parkDate.Format("2006-01-02"))
	}
	return DateGroup{ParkDate: parkDate, DateGroupID: id}, nil
}

// FixedSeasonDimension is a map-backed SeasonDimension keyed by park_date
// formatted 2006-01-02.
type FixedSeasonDimension map[string]Season

// Season implements SeasonDimension.
func (f FixedSeasonDimension) Season(parkDate time.Time) (Season, error) {
	s, ok := f[parkDate.Format("2006-01-02")]
	if !ok {
		return Season{}, fmt.Errorf("no season configured for %s", parkDate.Format("2006-01-02"))
	}
	s.ParkDate = parkDate
	return s, nil
}

// DefaultParkTier is the tier an unlisted park sorts into: last, behind
// every documented tier, rather than erroring a whole batch run over one
// missing configuration entry.
const DefaultParkTier = 100

// FixedParkPriorityDimension is a map-backed ParkPriorityDimension keyed
// by park_code.
type FixedParkPriorityDimension map[string]int

// Tier implements ParkPriorityDimension. An unlisted park_code resolves to
// DefaultParkTier rather than erroring.
func (f FixedParkPriorityDimension) Tier(parkCode string) (int, error) {
	if t, ok := f[parkCode]; ok {
		return t, nil
	}
	return DefaultParkTier, nil
}

// FixedClosureDimension is a map-backed ClosureDimension keyed by entity
// code, then by instant formatted to the minute (2006-01-02T15:04). An
// entity with no entry at all, or no entry for the given minute, is
// reported open rather than erroring — absence of a closure signal is the
// common case, not a configuration mistake.
type FixedClosureDimension map[string]map[string]bool

// Closed implements ClosureDimension.
func (f FixedClosureDimension) Closed(entityCode string, at time.Time) (bool, error) {
	byMinute, ok := f[entityCode]
	if !ok {
		return false, nil
	}
	return byMinute[at.Format("2006-01-02T15:04")], nil
}
