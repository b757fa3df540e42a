// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package canonical

import (
	"context"
	"testing"
	"time"
)

// fakeGate admits everything except rows whose EntityCode+ObservedAt it has
// already seen, mimicking a dedup set without pulling in Badger.
type fakeGate struct {
	seen map[string]bool
}

func newFakeGate() *fakeGate { return &fakeGate{seen: make(map[string]bool)} }

func (g *fakeGate) Admit(_ context.Context, _ Bucket, rows []Observation) ([]Observation, error) {
	out := make([]Observation, 0, len(rows))
	for _, r := range rows {
		key := r.EntityCode + "|" + r.ObservedAt.String()
		if g.seen[key] {
			continue
		}
		g.seen[key] = true
		out = append(out, r)
	}
	return out, nil
}

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("LoadLocation(%s): %v", name, err)
	}
	return loc
}

func TestWriterFlushWritesCanonicalCSV(t *testing.T) {
	dir := t.TempDir()
	loc := mustLoc(t, "America/New_York")
	gate := newFakeGate()
	w := NewWriter(dir, false, gate)

	base := time.Date(2026, 6, 1, 10, 0, 0, 0, loc)
	rows := []Observation{
		{EntityCode: "MK101", ObservedAt: base, WaitTimeType: Posted, WaitTimeMinutes: 30},
		{EntityCode: "MK101", ObservedAt: base.Add(30 * time.Minute), WaitTimeType: Posted, WaitTimeMinutes: 45},
	}
	if err := w.AcceptBatch(context.Background(), rows); err != nil {
		t.Fatalf("AcceptBatch: %v", err)
	}
	if err := w.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	bucket := BucketOf(rows[0])
	path := bucket.FilePath(dir, false)
	got, err := readExisting(path)
	if err != nil {
		t.Fatalf("readExisting: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].WaitTimeMinutes != 30 || got[1].WaitTimeMinutes != 45 {
		t.Errorf("unexpected row order/values: %+v", got)
	}
}

func TestWriterFlushDedupsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	loc := mustLoc(t, "America/New_York")
	gate := newFakeGate()
	w := NewWriter(dir, false, gate)

	obs := Observation{
		EntityCode:      "EP09",
		ObservedAt:      time.Date(2026, 6, 1, 11, 0, 0, 0, loc),
		WaitTimeType:    Posted,
		WaitTimeMinutes: 20,
	}
	ctx := context.Background()
	if err := w.Accept(ctx, obs); err != nil {
		t.Fatalf("Accept 1: %v", err)
	}
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush 1: %v", err)
	}
	if err := w.Accept(ctx, obs); err != nil {
		t.Fatalf("Accept 2: %v", err)
	}
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush 2: %v", err)
	}

	bucket := BucketOf(obs)
	path := bucket.FilePath(dir, false)
	got, err := readExisting(path)
	if err != nil {
		t.Fatalf("readExisting: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows after duplicate flush, want 1", len(got))
	}
}

func TestWriterRejectsOnlyStructurallyInvalidObservations(t *testing.T) {
	w := NewWriter(t.TempDir(), false, newFakeGate())
	noEntity := Observation{ObservedAt: time.Now(), WaitTimeType: Posted, WaitTimeMinutes: 10}
	if err := w.Accept(context.Background(), noEntity); err == nil {
		t.Error("expected Accept to reject an observation with an empty entity_code")
	}
	zeroTime := Observation{EntityCode: "MK101", WaitTimeType: Posted, WaitTimeMinutes: 10}
	if err := w.Accept(context.Background(), zeroTime); err == nil {
		t.Error("expected Accept to reject an observation with a zero observed_at")
	}
	unknownType := Observation{EntityCode: "MK101", ObservedAt: time.Now(), WaitTimeType: "BOGUS", WaitTimeMinutes: 10}
	if err := w.Accept(context.Background(), unknownType); err == nil {
		t.Error("expected Accept to reject an observation with an unknown wait_time_type")
	}
}

func TestWriterStillStoresOutOfRangeObservation(t *testing.T) {
	// A range violation (out-of-[0,1000] POSTED value) is reported by the
	// parser as errs.KindValidation but must not block the rest of the
	// file: Accept buffers it like any other structurally sound row.
	w := NewWriter(t.TempDir(), false, newFakeGate())
	bad := Observation{EntityCode: "MK101", ObservedAt: time.Now(), WaitTimeType: Posted, WaitTimeMinutes: -5}
	if err := w.Accept(context.Background(), bad); err != nil {
		t.Fatalf("Accept out-of-range observation: %v", err)
	}
	if err := w.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	bucket := BucketOf(bad)
	path := bucket.FilePath(w.rootDir, false)
	got, err := readExisting(path)
	if err != nil {
		t.Fatalf("readExisting: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want the out-of-range row still stored", len(got))
	}
}
