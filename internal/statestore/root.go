// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package statestore manages the single filesystem root the pipeline reads
// and writes: fact/, staging/, state/, models/, aggregates/, curves/,
// reports/, logs/. All mutable files under state/ are written
// atomic-by-replace (write path.tmp, fsync, rename over path).
//
// Root.Default/SetDefault is the one ambient singleton the rest of the
// codebase is permitted to reach for (per the "singleton discovery through a
// global get-output-base helper" design note); everywhere else a *Root is
// passed explicitly.
package statestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Root is a handle onto one pipeline filesystem root.
type Root struct {
	base string
}

var (
	defaultMu   sync.RWMutex
	defaultRoot *Root
)

// Open returns a Root rooted at base, creating the standard sub-directories
// if they do not already exist.
func Open(base string) (*Root, error) {
	r := &Root{base: base}
	for _, dir := range []string{
		r.FactDir(), r.StagingDir(), r.StateDir(),
		r.ModelsDir(), r.AggregatesDir(), r.CurvesDir(),
		r.WTIDir(), r.ReportsDir(), r.LogsDir(),
	} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return r, nil
}

// SetDefault installs r as the process-wide default root.
func SetDefault(r *Root) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRoot = r
}

// Default returns the process-wide default root, or nil if none was set.
func Default() *Root {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultRoot
}

// Base returns the root's base directory.
func (r *Root) Base() string { return r.base }

// FactDir is the canonical fact store: fact/clean/YYYY-MM/{park}_{date}.csv.
func (r *Root) FactDir() string { return filepath.Join(r.base, "fact", "clean") }

// StagingDir is the live-staging area: staging/live/YYYY-MM/{park}_{date}.csv.
func (r *Root) StagingDir() string { return filepath.Join(r.base, "staging") }

// StateDir holds catalogs, tallies, locks, status, and embedded stores.
func (r *Root) StateDir() string { return filepath.Join(r.base, "state") }

// ModelsDir holds models/{entity_code}/...
func (r *Root) ModelsDir() string { return filepath.Join(r.base, "models") }

// AggregatesDir holds the posted-aggregates columnar store.
func (r *Root) AggregatesDir() string { return filepath.Join(r.base, "aggregates") }

// CurvesDir holds curves/forecast/ and curves/backfill/.
func (r *Root) CurvesDir() string { return filepath.Join(r.base, "curves") }

// ForecastDir holds curves/forecast/{park}_{date}.csv.
func (r *Root) ForecastDir() string { return filepath.Join(r.CurvesDir(), "forecast") }

// BackfillDir holds curves/backfill/{park}_{date}.csv.
func (r *Root) BackfillDir() string { return filepath.Join(r.CurvesDir(), "backfill") }

// WTIDir holds wti/{park}_{date}.csv, the per-park wait-time-index output.
func (r *Root) WTIDir() string { return filepath.Join(r.base, "wti") }

// ReportsDir holds the (externally rendered) Markdown report output.
func (r *Root) ReportsDir() string { return filepath.Join(r.base, "reports") }

// LogsDir holds per-worker log files.
func (r *Root) LogsDir() string { return filepath.Join(r.base, "logs") }

// StatePath joins name under the state directory.
func (r *Root) StatePath(name string) string { return filepath.Join(r.StateDir(), name) }

// WriteAtomic writes data to path by writing path+".tmp", fsyncing, then
// renaming over path. The .tmp file is removed on any failure.
func WriteAtomic(path string, data []byte, perm os.FileMode) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("open %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("fsync %s: %w", tmp, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmp, path, err)
	}
	return nil
}
