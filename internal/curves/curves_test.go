// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package curves

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openwaits/waitcore/internal/aggregates"
	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/dims"
	"github.com/openwaits/waitcore/internal/entityindex"
	"github.com/openwaits/waitcore/internal/modeling"
	"github.com/openwaits/waitcore/internal/regressor"
	"github.com/openwaits/waitcore/internal/statestore"
)

func TestSlotsFiveMinuteGrid(t *testing.T) {
	loc := time.UTC
	open := time.Date(2026, 3, 10, 8, 0, 0, 0, loc)
	closeAt := time.Date(2026, 3, 10, 8, 20, 0, 0, loc)
	slots := Slots(open, closeAt)
	if len(slots) != 4 {
		t.Fatalf("len(slots) = %d, want 4", len(slots))
	}
	if !slots[0].Equal(open) {
		t.Errorf("slots[0] = %v, want %v", slots[0], open)
	}
	if !slots[3].Equal(open.Add(15 * time.Minute)) {
		t.Errorf("slots[3] = %v, want open+15m", slots[3])
	}
}

func TestInterpolatePostedFillsOnlyBetweenKnownPoints(t *testing.T) {
	loc := time.UTC
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, loc)
	slots := []time.Time{base, base.Add(5 * time.Minute), base.Add(10 * time.Minute), base.Add(15 * time.Minute)}
	posted := map[time.Time]float64{
		slotKey(slots[0]): 10,
		slotKey(slots[2]): 30,
	}
	interpolatePosted(slots, posted)
	if v := posted[slotKey(slots[1])]; v != 20 {
		t.Errorf("interpolated slot = %v, want 20", v)
	}
	if _, ok := posted[slotKey(slots[3])]; ok {
		t.Errorf("slot after the last known point should stay unfilled")
	}
}

func setupRoot(t *testing.T) *statestore.Root {
	t.Helper()
	root, err := statestore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("statestore.Open: %v", err)
	}
	return root
}

func trainFixture(t *testing.T, root *statestore.Root, enc *modeling.EncodingMap, entityCode string, target canonical.WaitTimeType) {
	t.Helper()
	var rows []modeling.FeatureRow
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < modeling.MinObservations+10; i++ {
		day := base.AddDate(0, 0, i%60)
		posted := float64(10 + i%20)
		rows = append(rows, modeling.FeatureRow{
			EntityCode:       entityCode,
			ParkDate:         day,
			ObservedAt:       day,
			PredSeason:       "spring",
			PredSeasonYear:   2026,
			OpenHour:         8,
			CloseHour:        22,
			HoursOpen:        14,
			ObservedWaitTime: float64(15 + i%30),
			WgtGeoDecay:      1,
			PostedWaitTime:   &posted,
		})
	}
	trainer := regressor.MeanRegressor{}
	result, err := modeling.Train(rows, entityCode, target, enc, trainer, regressor.DefaultHyperparameters, base.AddDate(1, 0, 0), modeling.TrainOptions{})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if err := modeling.Persist(root, result, trainer); err != nil {
		t.Fatalf("Persist: %v", err)
	}
}

func testDims() (Dims, time.Time, time.Time) {
	loc := time.UTC
	open := time.Date(2026, 3, 10, 8, 0, 0, 0, loc)
	closeAt := time.Date(2026, 3, 10, 22, 0, 0, 0, loc)
	hours := dims.FixedParkHoursDimension{
		"mk": map[string]dims.ParkHours{
			"2026-03-10": {ParkCode: "mk", OpenLocal: open, CloseLocal: closeAt},
		},
	}
	d := Dims{
		Hours:      hours,
		DateGroups: dims.FixedDateGroupDimension{"2026-03-10": 3},
		Seasons:    dims.FixedSeasonDimension{"2026-03-10": {Season: "spring", SeasonYear: 2026}},
	}
	return d, open, closeAt
}

func TestForecastProducesPredictionsAcrossOperatingWindow(t *testing.T) {
	root := setupRoot(t)
	enc, err := modeling.LoadEncodingMap(root)
	if err != nil {
		t.Fatalf("LoadEncodingMap: %v", err)
	}
	trainFixture(t, root, enc, "MK101", canonical.Actual)

	aggPath := filepath.Join(t.TempDir(), "aggregates.duckdb")
	aggStore, err := aggregates.Open(aggPath)
	if err != nil {
		t.Fatalf("aggregates.Open: %v", err)
	}
	defer aggStore.Close()
	if err := aggStore.Build(context.Background(), []aggregates.PostedRow{
		{EntityCode: "MK101", ParkCode: "mk", DateGroupID: 3, Hour: 9, Minutes: 25},
	}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	d, open, _ := testDims()
	rows, err := Forecast(context.Background(), "MK101", open, root, regressor.MeanRegressor{}, aggStore, d, enc)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(rows) == 0 {
		t.Fatal("Forecast returned no rows")
	}
	var sawNineAM bool
	for _, r := range rows {
		if r.ActualPredicted == nil {
			t.Errorf("slot %v: ActualPredicted is nil, want a mean-model prediction", r.TimeSlot)
		}
		if r.TimeSlot.Hour() == 9 && r.TimeSlot.Minute() == 0 {
			sawNineAM = true
			if r.PostedPredicted == nil || *r.PostedPredicted != 25 {
				t.Errorf("09:00 posted_predicted = %v, want 25", r.PostedPredicted)
			}
		}
	}
	if !sawNineAM {
		t.Fatal("expected a 09:00 slot in the forecast output")
	}
}

func writeFactFixture(t *testing.T, root *statestore.Root, entityCode, parkCode string, parkDate time.Time, rows []canonical.Observation) {
	t.Helper()
	bucket := canonical.Bucket{ParkCode: parkCode, ParkDate: parkDate}
	path := bucket.FilePath(root.FactDir(), false)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	if err := canonical.WriteCSV(f, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
}

func TestBackfillUsesObservedThenImputesRemainder(t *testing.T) {
	root := setupRoot(t)
	enc, err := modeling.LoadEncodingMap(root)
	if err != nil {
		t.Fatalf("LoadEncodingMap: %v", err)
	}
	trainFixture(t, root, enc, "MK101", canonical.Actual)

	d, open, _ := testDims()
	observedSlot := open.Add(10 * time.Minute)
	writeFactFixture(t, root, "MK101", "mk", open, []canonical.Observation{
		{EntityCode: "MK101", ObservedAt: observedSlot, WaitTimeType: canonical.Actual, WaitTimeMinutes: 40},
		{EntityCode: "MK101", ObservedAt: observedSlot, WaitTimeType: canonical.Posted, WaitTimeMinutes: 35},
	})

	rows, err := Backfill(context.Background(), "MK101", open, root, regressor.MeanRegressor{}, d, enc)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	var foundObserved, foundImputed bool
	for _, r := range rows {
		if r.TimeSlot.Equal(observedSlot) {
			foundObserved = true
			if r.Source != SourceObserved || r.Actual == nil || *r.Actual != 40 {
				t.Errorf("observed slot = %+v, want source=observed actual=40", r)
			}
			continue
		}
		if r.Source == SourceImputed {
			foundImputed = true
		}
	}
	if !foundObserved {
		t.Error("expected the observed ACTUAL reading to surface as source=observed")
	}
	if !foundImputed {
		t.Error("expected at least one imputed slot elsewhere in the window")
	}
}

func TestWTIAggregatesAcrossParkEntities(t *testing.T) {
	root := setupRoot(t)
	enc, err := modeling.LoadEncodingMap(root)
	if err != nil {
		t.Fatalf("LoadEncodingMap: %v", err)
	}
	trainFixture(t, root, enc, "MK101", canonical.Actual)

	idx, err := entityindex.Open(filepath.Join(t.TempDir(), "entityindex"))
	if err != nil {
		t.Fatalf("entityindex.Open: %v", err)
	}
	defer idx.Close()
	if err := idx.RecordBatch([]canonical.Observation{
		{EntityCode: "MK101", ObservedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), WaitTimeType: canonical.Actual, WaitTimeMinutes: 20},
		{EntityCode: "MK102", ObservedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), WaitTimeType: canonical.Actual, WaitTimeMinutes: 20},
	}); err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}

	d, open, _ := testDims()
	observedSlot := open.Add(10 * time.Minute)
	writeFactFixture(t, root, "MK101", "mk", open, []canonical.Observation{
		{EntityCode: "MK101", ObservedAt: observedSlot, WaitTimeType: canonical.Actual, WaitTimeMinutes: 40},
	})

	rows, err := WTI(context.Background(), "mk", open, open.Add(365*24*time.Hour), idx, root, regressor.MeanRegressor{}, nil, d, enc)
	if err != nil {
		t.Fatalf("WTI: %v", err)
	}
	var found bool
	for _, r := range rows {
		if r.TimeSlot.Equal(observedSlot) {
			found = true
			if r.NEntities != 1 {
				t.Errorf("NEntities = %d, want 1 (only MK101 has an observed/imputed value)", r.NEntities)
			}
			if r.WTI != 40 {
				t.Errorf("WTI = %v, want 40", r.WTI)
			}
		}
	}
	if !found {
		t.Fatal("expected the observed slot to appear in the WTI output")
	}
}
