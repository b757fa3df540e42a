// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/openwaits/waitcore/internal/errs"
	"github.com/openwaits/waitcore/internal/logging"
	"github.com/openwaits/waitcore/internal/statestore"
)

// factIndexDBName is the shared Badger database backing the fact store's
// dedup set and entity index (internal/dedup.NewGate), relative to
// Root.StateDir().
const factIndexDBName = "fact_index.badger"

func factIndexPath(root *statestore.Root) string {
	return filepath.Join(root.StateDir(), factIndexDBName)
}

// liveDedupDBName is the live poller's own dedup set, kept separate from
// the fact store's so repeat polls never touch fact-store state
// (internal/livefeed.NewPoller's doc comment).
const liveDedupDBName = "live_dedup.badger"

func liveDedupPath(root *statestore.Root) string {
	return filepath.Join(root.StateDir(), liveDedupDBName)
}

// withPipelineLock acquires the exclusive pipeline lock (spec.md §5: only
// one pipeline driver may mutate fact/staging/state at a time), runs fn,
// and releases the lock unconditionally. A lock already held by another
// process is a fatal, non-retryable error (errs.KindLockContention, exit
// code 2).
func withPipelineLock(owner string, fn func() error) error {
	lock := statestore.PipelineLock(stateRoot)
	if err := lock.Acquire(owner); err != nil {
		var held *statestore.ErrLockHeld
		if errors.As(err, &held) {
			return errs.LockContention(stateRoot.StatePath("pipeline.lock"), err)
		}
		return errs.Fatal(errs.KindStore, 1, fmt.Errorf("acquire pipeline lock: %w", err))
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logging.Warn().Err(err).Str("owner", owner).Msg("waitcore: failed to release pipeline lock")
		}
	}()
	return fn()
}
