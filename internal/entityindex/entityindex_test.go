// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package entityindex

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/openwaits/waitcore/internal/canonical"
)

func TestRecordBatchAndListForModeling(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "idx.badger"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	old := time.Now().Add(-48 * time.Hour)
	rows := make([]canonical.Observation, 0, 600)
	for i := 0; i < 600; i++ {
		rows = append(rows, canonical.Observation{
			EntityCode:      "MK101",
			ObservedAt:      old.Add(time.Duration(i) * time.Minute),
			WaitTimeType:    canonical.Posted,
			WaitTimeMinutes: 20,
		})
	}
	if err := idx.RecordBatch(rows); err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}

	recent := []canonical.Observation{{
		EntityCode:      "EP09",
		ObservedAt:      time.Now().Add(-1 * time.Minute),
		WaitTimeType:    canonical.Posted,
		WaitTimeMinutes: 10,
	}}
	if err := idx.RecordBatch(recent); err != nil {
		t.Fatalf("RecordBatch recent: %v", err)
	}

	var got []string
	for code := range idx.ListForModeling(24, 500) {
		got = append(got, code)
	}
	if len(got) != 1 || got[0] != "MK101" {
		t.Errorf("ListForModeling(24h, 500) = %v, want [MK101]", got)
	}

	if err := idx.MarkModeled("MK101", time.Now()); err != nil {
		t.Fatalf("MarkModeled: %v", err)
	}
	rec, found, err := idx.Get("MK101")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if rec.LastModeledAt.IsZero() {
		t.Error("expected LastModeledAt to be set after MarkModeled")
	}
}

func TestMarkModeledUnknownEntityErrors(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "idx2.badger"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	if err := idx.MarkModeled("nope", time.Now()); err == nil {
		t.Error("expected error marking an entity not present in the index")
	}
}
