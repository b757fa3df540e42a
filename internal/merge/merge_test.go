// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package merge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/dedup"
	"github.com/openwaits/waitcore/internal/statestore"
)

type fakeGate struct {
	seen map[string]bool
}

func newFakeGate() *fakeGate { return &fakeGate{seen: map[string]bool{}} }

func (g *fakeGate) Admit(_ context.Context, _ canonical.Bucket, rows []canonical.Observation) ([]canonical.Observation, error) {
	var admitted []canonical.Observation
	for _, o := range rows {
		k := o.EntityCode + "|" + o.ObservedAt.String() + "|" + string(o.WaitTimeType)
		if g.seen[k] {
			continue
		}
		g.seen[k] = true
		admitted = append(admitted, o)
	}
	return admitted, nil
}

func writeStagingFile(t *testing.T, root *statestore.Root, parkCode, date, body string) string {
	t.Helper()
	month := date[:7]
	dir := filepath.Join(root.StagingDir(), "live", month)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	path := filepath.Join(dir, parkCode+"_"+date+".csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestMergeFoldsYesterdaysStagingFilesIntoFact(t *testing.T) {
	root, err := statestore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("statestore.Open: %v", err)
	}
	body := "entity_code,observed_at,wait_time_type,wait_time_minutes\n" +
		"mk101,2026-05-31T10:00:00-04:00,POSTED,30\n"
	path := writeStagingFile(t, root, "mk", "2026-05-31", body)

	// today is 2026-06-01 06:30 Eastern, so under the 6 AM rule "yesterday"
	// is park_date 2026-05-31.
	loc, _ := time.LoadLocation(EasternTZ)
	today := time.Date(2026, 6, 1, 6, 30, 0, 0, loc)

	gate := newFakeGate()
	result, err := Merge(context.Background(), root, gate, today)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.FilesMerged != 1 || result.RowsMerged != 1 {
		t.Fatalf("result = %+v, want 1 file merged, 1 row", result)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("staging file still present after successful merge: %v", err)
	}

	factPath := filepath.Join(root.FactDir(), "2026-05", "mk_2026-05-31.csv")
	if _, err := os.Stat(factPath); err != nil {
		t.Errorf("expected fact file at %s: %v", factPath, err)
	}
}

func TestMergeLeavesUnmatchedDatesInPlace(t *testing.T) {
	root, err := statestore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("statestore.Open: %v", err)
	}
	body := "entity_code,observed_at,wait_time_type,wait_time_minutes\n" +
		"mk101,2026-05-30T10:00:00-04:00,POSTED,30\n"
	path := writeStagingFile(t, root, "mk", "2026-05-30", body)

	loc, _ := time.LoadLocation(EasternTZ)
	today := time.Date(2026, 6, 1, 6, 30, 0, 0, loc)

	result, err := Merge(context.Background(), root, newFakeGate(), today)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.FilesMerged != 0 {
		t.Errorf("FilesMerged = %d, want 0 (file is for an older date)", result.FilesMerged)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("unrelated staging file should remain untouched: %v", err)
	}
}

func TestMergeUsesSharedDedupGate(t *testing.T) {
	root, err := statestore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("statestore.Open: %v", err)
	}
	gatePath := filepath.Join(t.TempDir(), "fact_gate")
	gate, closeFn, err := dedup.NewGate(gatePath)
	if err != nil {
		t.Fatalf("dedup.NewGate: %v", err)
	}
	defer closeFn()

	body := "entity_code,observed_at,wait_time_type,wait_time_minutes\n" +
		"mk101,2026-05-31T10:00:00-04:00,POSTED,30\n" +
		"mk101,2026-05-31T10:00:00-04:00,POSTED,30\n"
	writeStagingFile(t, root, "mk", "2026-05-31", body)

	loc, _ := time.LoadLocation(EasternTZ)
	today := time.Date(2026, 6, 1, 6, 30, 0, 0, loc)

	result, err := Merge(context.Background(), root, gate, today)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.RowsMerged != 2 {
		t.Errorf("RowsMerged = %d, want 2 (rows read from staging, before dedup)", result.RowsMerged)
	}

	factPath := filepath.Join(root.FactDir(), "2026-05", "mk_2026-05-31.csv")
	f, err := os.Open(factPath)
	if err != nil {
		t.Fatalf("open fact file: %v", err)
	}
	defer f.Close()
	factRows, err := canonical.ReadCSV(f)
	if err != nil {
		t.Fatalf("read fact file: %v", err)
	}
	if len(factRows) != 1 {
		t.Errorf("fact file has %d rows, want 1 (duplicate row within the same file should dedup)", len(factRows))
	}
}
