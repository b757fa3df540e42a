// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package dedup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/openwaits/waitcore/internal/canonical"
)

func testObs(minutesOffset time.Duration) canonical.Observation {
	return canonical.Observation{
		EntityCode:      "MK101",
		ObservedAt:      time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC).Add(minutesOffset),
		WaitTimeType:    canonical.Posted,
		WaitTimeMinutes: 30,
	}
}

func TestKeyStableAcrossZoneOffsetRepresentations(t *testing.T) {
	utc := testObs(0)
	est := utc
	est.ObservedAt = est.ObservedAt.In(time.FixedZone("EST", -5*3600))

	kUTC, err := Key(utc)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	kEST, err := Key(est)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if string(kUTC) != string(kEST) {
		t.Error("expected identical instants under different offsets to produce the same dedup key")
	}
}

func TestSetAdmitDropsDuplicates(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "dedup.badger"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	rows := []canonical.Observation{testObs(0), testObs(30 * time.Minute)}
	admitted, err := s.Admit(rows)
	if err != nil {
		t.Fatalf("Admit 1: %v", err)
	}
	if len(admitted) != 2 {
		t.Fatalf("first Admit = %d rows, want 2", len(admitted))
	}

	admitted, err = s.Admit(rows)
	if err != nil {
		t.Fatalf("Admit 2: %v", err)
	}
	if len(admitted) != 0 {
		t.Fatalf("repeat Admit = %d rows, want 0", len(admitted))
	}
}

func TestGateAdmitsAndIndexesInOneTransaction(t *testing.T) {
	g, closeFn, err := NewGate(filepath.Join(t.TempDir(), "gate.badger"))
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	defer closeFn()

	rows := []canonical.Observation{testObs(0), testObs(30 * time.Minute)}
	bucket := canonical.BucketOf(rows[0])

	admitted, err := g.Admit(context.Background(), bucket, rows)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if len(admitted) != 2 {
		t.Fatalf("Admit = %d rows, want 2", len(admitted))
	}

	rec, found, err := g.Index().Get("MK101")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected entity record to exist after Admit")
	}
	if rec.ObservationCount != 2 {
		t.Errorf("ObservationCount = %d, want 2", rec.ObservationCount)
	}

	// A second Admit with the same rows should be fully deduped and must
	// not double the observation count.
	if _, err := g.Admit(context.Background(), bucket, rows); err != nil {
		t.Fatalf("Admit 2: %v", err)
	}
	rec, _, err = g.Index().Get("MK101")
	if err != nil {
		t.Fatalf("Get 2: %v", err)
	}
	if rec.ObservationCount != 2 {
		t.Errorf("ObservationCount after duplicate Admit = %d, want 2", rec.ObservationCount)
	}
}
