// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package canonical defines the canonical wait-time observation, the CSV
// wire format it is stored in, and the Canonical Writer (C4) that
// deduplicates, partitions, and durably appends a stream of observations.
package canonical

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// WaitTimeType is one of the three kinds of wait-time observation the
// canonical store carries.
type WaitTimeType string

const (
	Posted   WaitTimeType = "POSTED"
	Actual   WaitTimeType = "ACTUAL"
	Priority WaitTimeType = "PRIORITY"
)

// SoldOutSentinel is the PRIORITY value meaning "sold out".
const SoldOutSentinel = 8888

// Observation is the canonical fact row: the only shape ever persisted to
// fact/ or staging/. park_code and park_date are always derived — never
// stored inline (spec.md §3).
type Observation struct {
	EntityCode       string       // uppercase, e.g. "MK101"
	ObservedAt       time.Time    // carries an explicit zone offset, never "Z"
	WaitTimeType     WaitTimeType
	WaitTimeMinutes  int
}

// ParkCodeOf derives the lowercase park code from an entity code's
// alphabetic prefix (e.g. "MK101" -> "mk", "EP09" -> "ep").
func ParkCodeOf(entityCode string) string {
	i := 0
	for i < len(entityCode) && unicode.IsLetter(rune(entityCode[i])) {
		i++
	}
	return strings.ToLower(entityCode[:i])
}

// ParkDateOf derives the operational date of an instant under the 6 AM
// rule: the local calendar date in loc, except that a local hour before 06
// belongs to the previous day.
func ParkDateOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	y, m, d := local.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if local.Hour() < 6 {
		date = date.AddDate(0, 0, -1)
	}
	return date
}

// ParkCode returns the observation's derived park code.
func (o Observation) ParkCode() string { return ParkCodeOf(o.EntityCode) }

// ParkDate returns the observation's derived operational date, under the 6
// AM rule, in the observation's own zone offset.
func (o Observation) ParkDate() time.Time {
	return ParkDateOf(o.ObservedAt, o.ObservedAt.Location())
}

// ValidateStructure checks the constraints that make a row impossible to
// bucket or store at all, regardless of its wait_time_minutes value: an
// empty entity_code, a zero observed_at, or an unrecognized wait_time_type.
// Unlike Validate, a ValidateStructure failure is a hard rejection — the
// Canonical Writer refuses to buffer a row that fails it (spec.md §4.2.1's
// "rows outside range are reported as invalid but still emitted" only
// covers range violations, not structural ones).
func (o Observation) ValidateStructure() error {
	if o.EntityCode == "" {
		return fmt.Errorf("entity_code is empty")
	}
	if o.ObservedAt.IsZero() {
		return fmt.Errorf("observed_at is zero")
	}
	switch o.WaitTimeType {
	case Posted, Actual, Priority:
	default:
		return fmt.Errorf("unknown wait_time_type %q", o.WaitTimeType)
	}
	return nil
}

// Validate checks the full column constraints of spec.md §3, including the
// per-type wait_time_minutes range. Violators are reported, not silently
// dropped — callers decide whether to still store them (ingest parsers
// emit them with a *errs.Error alongside; the Canonical Writer stores them
// anyway and relies on ValidateStructure for its own hard-rejection gate).
func (o Observation) Validate() error {
	if err := o.ValidateStructure(); err != nil {
		return err
	}
	switch o.WaitTimeType {
	case Posted, Actual:
		if o.WaitTimeMinutes < 0 || o.WaitTimeMinutes > 1000 {
			return fmt.Errorf("%s wait_time_minutes %d out of range [0,1000]", o.WaitTimeType, o.WaitTimeMinutes)
		}
	case Priority:
		if o.WaitTimeMinutes == SoldOutSentinel {
			return nil
		}
		if o.WaitTimeMinutes < -100 || o.WaitTimeMinutes > 2000 {
			return fmt.Errorf("PRIORITY wait_time_minutes %d out of range [-100,2000]", o.WaitTimeMinutes)
		}
	}
	return nil
}

// IsOutlier reports whether a POSTED/ACTUAL value is an outlier (>= 300).
func (o Observation) IsOutlier() bool {
	return (o.WaitTimeType == Posted || o.WaitTimeType == Actual) && o.WaitTimeMinutes >= 300
}
