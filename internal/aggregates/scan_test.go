// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package aggregates

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/dims"
)

type countingDateGroups struct {
	dims.DateGroupDimension
	calls map[string]int
}

func (c *countingDateGroups) DateGroup(parkDate time.Time) (dims.DateGroup, error) {
	c.calls[parkDate.Format("2006-01-02")]++
	return c.DateGroupDimension.DateGroup(parkDate)
}

func writeFactFile(t *testing.T, dir, name string, rows []canonical.Observation) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	if err := canonical.WriteCSV(f, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
}

func TestScanFactStoreBatchesDateGroupLookupsOncePerDate(t *testing.T) {
	root := t.TempDir()
	loc := time.UTC
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, loc)
	day2 := time.Date(2026, 3, 11, 9, 0, 0, 0, loc)

	writeFactFile(t, filepath.Join(root, "2026-03"), "mk_2026-03-10.csv", []canonical.Observation{
		{EntityCode: "MK101", ObservedAt: day1, WaitTimeType: canonical.Posted, WaitTimeMinutes: 20},
		{EntityCode: "MK101", ObservedAt: day1.Add(5 * time.Minute), WaitTimeType: canonical.Actual, WaitTimeMinutes: 25},
		{EntityCode: "MK102", ObservedAt: day1.Add(10 * time.Minute), WaitTimeType: canonical.Posted, WaitTimeMinutes: 15},
	})
	writeFactFile(t, filepath.Join(root, "2026-03"), "mk_2026-03-11.csv", []canonical.Observation{
		{EntityCode: "MK101", ObservedAt: day2, WaitTimeType: canonical.Posted, WaitTimeMinutes: 30},
	})

	base := dims.FixedDateGroupDimension{"2026-03-10": 3, "2026-03-11": 4}
	counting := &countingDateGroups{DateGroupDimension: base, calls: map[string]int{}}

	rows, err := ScanFactStore(root, counting)
	if err != nil {
		t.Fatalf("ScanFactStore: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (only POSTED readings)", len(rows))
	}
	if len(counting.calls) != 2 {
		t.Fatalf("len(counting.calls) = %d, want 2 distinct dates", len(counting.calls))
	}
	for date, n := range counting.calls {
		if n != 1 {
			t.Errorf("DateGroup called %d times for %s, want exactly 1", n, date)
		}
	}

	for _, r := range rows {
		if r.EntityCode == "MK101" && r.Hour == 9 && r.DateGroupID != 3 && r.DateGroupID != 4 {
			t.Errorf("unexpected date group for MK101 row: %+v", r)
		}
	}
}

func TestScanFactStoreTreatsMissingDirectoryAsEmpty(t *testing.T) {
	rows, err := ScanFactStore(filepath.Join(t.TempDir(), "missing"), dims.FixedDateGroupDimension{})
	if err != nil {
		t.Fatalf("ScanFactStore: %v", err)
	}
	if rows != nil {
		t.Errorf("rows = %+v, want nil for a store with no fact files", rows)
	}
}
