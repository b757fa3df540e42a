// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package livefeed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/dedup"
)

type fakeFeedClient struct {
	records map[string][]RawRecord
	calls   int
}

func (f *fakeFeedClient) Fetch(_ context.Context, parkCode string) ([]RawRecord, error) {
	f.calls++
	return f.records[parkCode], nil
}

type fixedHours struct {
	open, close time.Time
}

func (h fixedHours) Hours(_ context.Context, parkCode string, _ time.Time) (ParkHours, error) {
	return ParkHours{ParkCode: parkCode, OpenLocal: h.open, CloseLocal: h.close}, nil
}

func intPtr(n int) *int { return &n }

func TestPollerSkipsParksOutsideOperatingWindow(t *testing.T) {
	now := time.Now().UTC()
	// Window closed three hours before now, and padding isn't enough to cover it.
	hours := fixedHours{
		open:  now.Add(-6 * time.Hour),
		close: now.Add(-3 * time.Hour),
	}
	client := &fakeFeedClient{records: map[string][]RawRecord{
		"mk": {{ExternalID: "ext1", ObservedAt: now, PostedMinutes: intPtr(20)}},
	}}
	dedupSet, err := dedup.Open(filepath.Join(t.TempDir(), "live_dedup"))
	if err != nil {
		t.Fatalf("dedup.Open: %v", err)
	}
	defer dedupSet.Close()

	cfg := Config{
		ParkCodes:     []string{"mk"},
		PollInterval:  time.Hour,
		WindowPadding: 90 * time.Minute,
		IDMap:         map[string]string{"ext1": "mk101"},
	}
	p := NewPoller(cfg, client, hours, dedupSet, t.TempDir())
	p.runCycle(context.Background())

	if client.calls != 0 {
		t.Errorf("fetch called %d times, want 0 (park outside operating window)", client.calls)
	}
}

func TestPollerStagesMappedObservations(t *testing.T) {
	now := time.Now().UTC()
	hours := fixedHours{
		open:  now.Add(-2 * time.Hour),
		close: now.Add(2 * time.Hour),
	}
	client := &fakeFeedClient{records: map[string][]RawRecord{
		"mk": {
			{ExternalID: "ext1", ObservedAt: now, PostedMinutes: intPtr(20), ActualMinutes: intPtr(25)},
			{ExternalID: "unknown-ride", ObservedAt: now, PostedMinutes: intPtr(5)},
		},
	}}
	dedupSet, err := dedup.Open(filepath.Join(t.TempDir(), "live_dedup"))
	if err != nil {
		t.Fatalf("dedup.Open: %v", err)
	}
	defer dedupSet.Close()

	stagingDir := t.TempDir()
	cfg := Config{
		ParkCodes:     []string{"mk"},
		PollInterval:  time.Hour,
		WindowPadding: 90 * time.Minute,
		IDMap:         map[string]string{"ext1": "mk101"},
	}
	p := NewPoller(cfg, client, hours, dedupSet, stagingDir)
	p.runCycle(context.Background())

	bucket := canonical.Bucket{ParkCode: "mk", ParkDate: canonical.ParkDateOf(now, time.UTC)}
	path := bucket.FilePath(stagingDir, true)
	rows, err := readCanonicalFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if len(rows) != 2 {
		t.Fatalf("staged %d rows, want 2 (POSTED+ACTUAL for the mapped ride)", len(rows))
	}
}

func TestPollerSecondCycleDedupsUnchangedReading(t *testing.T) {
	now := time.Now().UTC()
	hours := fixedHours{open: now.Add(-2 * time.Hour), close: now.Add(2 * time.Hour)}
	client := &fakeFeedClient{records: map[string][]RawRecord{
		"mk": {{ExternalID: "ext1", ObservedAt: now, PostedMinutes: intPtr(20)}},
	}}
	dedupSet, err := dedup.Open(filepath.Join(t.TempDir(), "live_dedup"))
	if err != nil {
		t.Fatalf("dedup.Open: %v", err)
	}
	defer dedupSet.Close()

	stagingDir := t.TempDir()
	cfg := Config{
		ParkCodes:     []string{"mk"},
		PollInterval:  time.Hour,
		WindowPadding: 90 * time.Minute,
		IDMap:         map[string]string{"ext1": "mk101"},
	}
	p := NewPoller(cfg, client, hours, dedupSet, stagingDir)
	p.runCycle(context.Background())
	p.runCycle(context.Background())

	bucket := canonical.Bucket{ParkCode: "mk", ParkDate: canonical.ParkDateOf(now, time.UTC)}
	path := bucket.FilePath(stagingDir, true)
	rows, err := readCanonicalFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if len(rows) != 1 {
		t.Errorf("staged %d rows after two identical cycles, want 1", len(rows))
	}
}

func readCanonicalFile(path string) ([]canonical.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return canonical.ReadCSV(f)
}
