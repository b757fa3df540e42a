// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package modeling

import (
	"iter"
	"path/filepath"
	"testing"
	"time"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/dims"
	"github.com/openwaits/waitcore/internal/regressor"
)

func seqFrom(rows []canonical.Observation) iter.Seq2[canonical.Observation, error] {
	return func(yield func(canonical.Observation, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func TestSelectTargetPriorityVsActual(t *testing.T) {
	ed := dims.FixedEntityDimension{"MK101": true}

	target, err := SelectTarget("MK101", ed)
	if err != nil {
		t.Fatalf("SelectTarget: %v", err)
	}
	if target != canonical.Priority {
		t.Errorf("target = %v, want PRIORITY", target)
	}
	if UsesPostedCovariate(target) {
		t.Error("PRIORITY target must not use posted covariate")
	}

	target, err = SelectTarget("EP09", ed)
	if err != nil {
		t.Fatalf("SelectTarget: %v", err)
	}
	if target != canonical.Actual {
		t.Errorf("target = %v, want ACTUAL", target)
	}
	if !UsesPostedCovariate(target) {
		t.Error("ACTUAL target must use posted covariate")
	}
}

type countingParkHours struct {
	dims.ParkHoursDimension
	calls map[string]int
}

func (c *countingParkHours) Hours(parkCode string, parkDate time.Time) (dims.ParkHours, error) {
	c.calls[dateKey(parkDate)]++
	return c.ParkHoursDimension.Hours(parkCode, parkDate)
}

func TestBuildFeaturesJoinsDimensionsOncePerDate(t *testing.T) {
	loc := time.UTC
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, loc)
	day2 := time.Date(2026, 3, 11, 9, 0, 0, 0, loc)

	rows := []canonical.Observation{
		{EntityCode: "MK101", ObservedAt: day1, WaitTimeType: canonical.Posted, WaitTimeMinutes: 20},
		{EntityCode: "MK101", ObservedAt: day1, WaitTimeType: canonical.Actual, WaitTimeMinutes: 25},
		{EntityCode: "MK101", ObservedAt: day1.Add(5 * time.Minute), WaitTimeType: canonical.Actual, WaitTimeMinutes: 30},
		{EntityCode: "MK101", ObservedAt: day2, WaitTimeType: canonical.Actual, WaitTimeMinutes: 40},
	}

	hoursBase := dims.FixedParkHoursDimension{
		"mk": map[string]dims.ParkHours{
			"2026-03-10": {ParkCode: "mk", OpenLocal: time.Date(2026, 3, 10, 8, 0, 0, 0, loc), CloseLocal: time.Date(2026, 3, 10, 22, 0, 0, 0, loc)},
			"2026-03-11": {ParkCode: "mk", OpenLocal: time.Date(2026, 3, 11, 8, 0, 0, 0, loc), CloseLocal: time.Date(2026, 3, 11, 22, 0, 0, 0, loc)},
		},
	}
	counting := &countingParkHours{ParkHoursDimension: hoursBase, calls: map[string]int{}}

	dategroups := dims.FixedDateGroupDimension{"2026-03-10": 3, "2026-03-11": 3}
	seasons := dims.FixedSeasonDimension{
		"2026-03-10": {Season: "spring", SeasonYear: 2026},
		"2026-03-11": {Season: "spring", SeasonYear: 2026},
	}

	now := day2.Add(24 * time.Hour)
	features, err := BuildFeatures(seqFrom(rows), "MK101", canonical.Actual, now, counting, dategroups, seasons)
	if err != nil {
		t.Fatalf("BuildFeatures: %v", err)
	}
	if len(features) != 3 {
		t.Fatalf("len(features) = %d, want 3 (one per ACTUAL instant)", len(features))
	}
	for date, n := range counting.calls {
		if n != 1 {
			t.Errorf("Hours called %d times for %s, want exactly 1", n, date)
		}
	}
	if len(counting.calls) != 2 {
		t.Errorf("len(counting.calls) = %d, want 2 distinct dates", len(counting.calls))
	}

	first := features[0]
	if first.PostedWaitTime == nil || *first.PostedWaitTime != 20 {
		t.Errorf("first row posted wait time = %v, want 20", first.PostedWaitTime)
	}
	second := features[1]
	if second.PostedWaitTime != nil {
		t.Errorf("second row posted wait time = %v, want nil (no POSTED reading at that instant)", *second.PostedWaitTime)
	}
	if first.PredDateGroupID != 3 || first.PredSeason != "spring" {
		t.Errorf("dimension fields not joined correctly: %+v", first)
	}
}

// TestBuildFeaturesKeepsParkLocalOffsetForMinsSince6am guards against
// reconstructing ObservedAt from a bare Unix timestamp in UTC, which would
// silently discard the park's zone offset and corrupt pred_mins_since_6am
// for every non-UTC park.
func TestBuildFeaturesKeepsParkLocalOffsetForMinsSince6am(t *testing.T) {
	// America/New_York in March observes EST, UTC-5, without relying on
	// tzdata being present.
	loc := time.FixedZone("EST", -5*60*60)
	day := time.Date(2026, 3, 10, 10, 30, 0, 0, loc)

	rows := []canonical.Observation{
		{EntityCode: "MK101", ObservedAt: day, WaitTimeType: canonical.Actual, WaitTimeMinutes: 25},
	}
	hours := dims.FixedParkHoursDimension{
		"mk": map[string]dims.ParkHours{
			"2026-03-10": {ParkCode: "mk", OpenLocal: time.Date(2026, 3, 10, 8, 0, 0, 0, loc), CloseLocal: time.Date(2026, 3, 10, 22, 0, 0, 0, loc)},
		},
	}
	dategroups := dims.FixedDateGroupDimension{"2026-03-10": 3}
	seasons := dims.FixedSeasonDimension{"2026-03-10": {Season: "spring", SeasonYear: 2026}}

	features, err := BuildFeatures(seqFrom(rows), "MK101", canonical.Actual, day, hours, dategroups, seasons)
	if err != nil {
		t.Fatalf("BuildFeatures: %v", err)
	}
	if len(features) != 1 {
		t.Fatalf("len(features) = %d, want 1", len(features))
	}

	// 10:30 park-local is 270 minutes after the 06:00 boundary. Rounding
	// the instant through time.Unix(...).UTC() instead would read it as
	// 15:30 UTC and yield 570.
	const want = 270
	if got := features[0].PredMinsSince6am; got != want {
		t.Errorf("PredMinsSince6am = %d, want %d (park-local 10:30, not UTC)", got, want)
	}
	if _, offset := features[0].ObservedAt.Zone(); offset != -5*60*60 {
		t.Errorf("ObservedAt lost its zone offset: got %d, want %d", offset, -5*60*60)
	}
}

func TestBuildFeaturesSkipsInstantsWithoutTargetReading(t *testing.T) {
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rows := []canonical.Observation{
		{EntityCode: "MK101", ObservedAt: day, WaitTimeType: canonical.Posted, WaitTimeMinutes: 20},
	}
	hours := dims.FixedParkHoursDimension{
		"mk": map[string]dims.ParkHours{
			"2026-03-10": {OpenLocal: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), CloseLocal: time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)},
		},
	}
	dategroups := dims.FixedDateGroupDimension{"2026-03-10": 1}
	seasons := dims.FixedSeasonDimension{"2026-03-10": {Season: "spring", SeasonYear: 2026}}

	features, err := BuildFeatures(seqFrom(rows), "MK101", canonical.Actual, day, hours, dategroups, seasons)
	if err != nil {
		t.Fatalf("BuildFeatures: %v", err)
	}
	if len(features) != 0 {
		t.Errorf("len(features) = %d, want 0 (no ACTUAL reading present)", len(features))
	}
}

func TestTrainFallsBackToMeanBelowMinObservations(t *testing.T) {
	var rows []FeatureRow
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		rows = append(rows, FeatureRow{
			EntityCode:       "MK101",
			ParkDate:         base.AddDate(0, 0, i),
			ObservedAt:       base.AddDate(0, 0, i),
			ObservedWaitTime: float64(10 + i),
			WgtGeoDecay:      1,
		})
	}
	enc := &EncodingMap{path: filepath.Join(t.TempDir(), "encoding.json"), categories: map[string]map[string]int{}, next: map[string]int{}}

	result, err := Train(rows, "MK101", canonical.Actual, enc, nil, regressor.DefaultHyperparameters, base.AddDate(0, 1, 0), TrainOptions{})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(result.Variants) != 1 || result.Variants[0].Variant != VariantMean {
		t.Fatalf("variants = %+v, want exactly one mean variant", result.Variants)
	}
}

func TestTrainPriorityAboveMinObservationsTrainsOnlyWithoutPosted(t *testing.T) {
	var rows []FeatureRow
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < MinObservations+10; i++ {
		day := base.AddDate(0, 0, i%100)
		rows = append(rows, FeatureRow{
			EntityCode:       "MK101",
			ParkDate:         day,
			ObservedAt:       day,
			PredSeason:       "spring",
			ObservedWaitTime: float64(10 + i%50),
			WgtGeoDecay:      1,
		})
	}
	enc := &EncodingMap{path: filepath.Join(t.TempDir(), "encoding.json"), categories: map[string]map[string]int{}, next: map[string]int{}}
	trainer := &fakeTrainer{}

	result, err := Train(rows, "MK101", canonical.Priority, enc, trainer, regressor.DefaultHyperparameters, base.AddDate(1, 0, 0), TrainOptions{})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(result.Variants) != 1 || result.Variants[0].Variant != VariantWithoutPosted {
		t.Fatalf("PRIORITY target should train only without_posted, got %+v", result.Variants)
	}
}

type fakeTrainer struct{}

func (f *fakeTrainer) Train(X [][]float64, y []float64, weights []float64, splits []regressor.Split, hp regressor.Hyperparameters) (regressor.Model, error) {
	return "fake-model", nil
}
func (f *fakeTrainer) Predict(m regressor.Model, X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	return out, nil
}
func (f *fakeTrainer) Save(m regressor.Model, path string) error { return nil }
func (f *fakeTrainer) Load(path string) (regressor.Model, error) { return "fake-model", nil }

func TestWorkerCountCapsAtSixteenAndCPU(t *testing.T) {
	if n := WorkerCount(4, 1<<40, 1); n != 4 {
		t.Errorf("WorkerCount = %d, want 4 (cpu-bound)", n)
	}
	if n := WorkerCount(64, 1<<40, 1); n != 16 {
		t.Errorf("WorkerCount = %d, want 16 (hard cap)", n)
	}
	if n := WorkerCount(16, 100, 50); n != 1 {
		t.Errorf("WorkerCount = %d, want 1 (RAM-bound: floor(0.8*100/50)=1)", n)
	}
}

func TestEncodingMapMintsAndReusesIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encoding_mappings.json")
	enc := &EncodingMap{path: path, categories: map[string]map[string]int{}, next: map[string]int{}}

	id1, err := enc.Encode("season", "spring")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	id2, err := enc.Encode("season", "summer")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if id1 == id2 {
		t.Errorf("distinct categories got the same ID %d", id1)
	}
	again, err := enc.Encode("season", "spring")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if again != id1 {
		t.Errorf("re-encoding %q = %d, want existing ID %d unchanged", "spring", again, id1)
	}
}
