// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package merge implements the Morning Merge (C5): folding the previous
// park_date's staged live-feed rows into the canonical fact store before
// the day's ingest step runs.
package merge

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/logging"
	"github.com/openwaits/waitcore/internal/statestore"
)

// EasternTZ is the pipeline's system clock for "yesterday", independent of
// any individual park's own timezone (spec.md §4.5: the merge boundary is
// a single daily cutover, not per-park).
const EasternTZ = "America/New_York"

// Result summarizes one Merge run.
type Result struct {
	FilesMerged int
	FilesFailed int
	RowsMerged  int
	FirstError  error
}

// Merge folds every staging file for yesterday's park_date into the
// canonical fact store via gate, deleting each staging file once its rows
// are durably merged. A file that fails to merge is left in place and
// counted in FilesFailed; Merge keeps going rather than aborting the run,
// so one bad file does not block the rest of the day's merge.
func Merge(ctx context.Context, root *statestore.Root, gate canonical.Gate, today time.Time) (Result, error) {
	var result Result

	loc, err := time.LoadLocation(EasternTZ)
	if err != nil {
		return result, fmt.Errorf("load %s: %w", EasternTZ, err)
	}
	yesterday := canonical.ParkDateOf(today.In(loc), loc).AddDate(0, 0, -1)

	files, err := matchingStagingFiles(root.StagingDir(), yesterday)
	if err != nil {
		return result, fmt.Errorf("list staging files for %s: %w", yesterday.Format("2006-01-02"), err)
	}
	sort.Strings(files)

	for _, path := range files {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		n, err := mergeOneFile(ctx, path, root.FactDir(), gate)
		if err != nil {
			if result.FirstError == nil {
				result.FirstError = fmt.Errorf("merge %s: %w", path, err)
			}
			result.FilesFailed++
			logging.Error().Err(err).Str("path", path).Msg("merge: staging file failed, left in place")
			continue
		}
		if err := os.Remove(path); err != nil {
			if result.FirstError == nil {
				result.FirstError = fmt.Errorf("remove merged staging file %s: %w", path, err)
			}
			result.FilesFailed++
			continue
		}
		result.FilesMerged++
		result.RowsMerged += n
	}

	return result, nil
}

func mergeOneFile(ctx context.Context, path, factDir string, gate canonical.Gate) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}
	rows, err := canonical.ReadCSV(f)
	closeErr := f.Close()
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	if closeErr != nil {
		return 0, fmt.Errorf("close: %w", closeErr)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	w := canonical.NewWriter(factDir, false, gate)
	if err := w.AcceptBatch(ctx, rows); err != nil {
		return 0, fmt.Errorf("accept batch: %w", err)
	}
	if err := w.Flush(ctx); err != nil {
		return 0, fmt.Errorf("flush: %w", err)
	}
	return len(rows), nil
}

// matchingStagingFiles lists every staging/live/**/*_{date}.csv file.
func matchingStagingFiles(stagingDir string, date time.Time) ([]string, error) {
	suffix := fmt.Sprintf("_%s.csv", date.Format("2006-01-02"))
	liveDir := filepath.Join(stagingDir, "live")

	var matches []string
	err := filepath.WalkDir(liveDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), suffix) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return matches, nil
}
