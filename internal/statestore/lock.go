// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package statestore

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/openwaits/waitcore/internal/logging"
)

// staleAfter is how old an unreleased lock file must be before a contender
// is allowed to treat it as abandoned and take it over.
const staleAfter = 24 * time.Hour

// lockRecord is the JSON body of a lock file.
type lockRecord struct {
	PID        int       `json:"pid"`
	Owner      string     `json:"owner"`
	Token      string     `json:"token"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Lock is a cross-process exclusive lock backed by a file under state/.
// PipelineLock and QueueTimesLock are mutually exclusive with themselves
// but not with each other; they guard disjoint write areas.
type Lock struct {
	path  string
	token string
}

// PipelineLock returns the lock guarding the ingest/merge/modeling pipeline
// (state/pipeline.lock).
func PipelineLock(r *Root) *Lock {
	return &Lock{path: r.StatePath("pipeline.lock")}
}

// QueueTimesLock returns the lock guarding the live poller
// (state/queue_times.lock).
func QueueTimesLock(r *Root) *Lock {
	return &Lock{path: r.StatePath("queue_times.lock")}
}

// ErrLockHeld is returned by Acquire when another live owner holds the lock.
type ErrLockHeld struct {
	Path  string
	Owner string
}

func (e *ErrLockHeld) Error() string {
	return fmt.Sprintf("lock %s held by %s", e.Path, e.Owner)
}

// Acquire takes the lock, owned by the given owner label (e.g. the
// invoking script/subcommand name). It force-takes a lock file older than
// 24h, logging a warning, on the assumption its owner crashed without
// releasing it.
func (l *Lock) Acquire(owner string) error {
	if existing, err := readLockRecord(l.path); err == nil {
		if time.Since(existing.AcquiredAt) < staleAfter {
			return &ErrLockHeld{Path: l.path, Owner: existing.Owner}
		}
		logging.Warn().
			Str("path", l.path).
			Str("previous_owner", existing.Owner).
			Time("acquired_at", existing.AcquiredAt).
			Msg("lock file is stale, taking over")
	}

	rec := lockRecord{
		PID:        os.Getpid(),
		Owner:      owner,
		Token:      uuid.New().String(),
		AcquiredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal lock record: %w", err)
	}
	if err := WriteAtomic(l.path, data, 0o640); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	l.token = rec.Token
	return nil
}

// Release removes the lock file, but only if it still records this
// acquisition's token (it may have been force-taken by a later contender,
// in which case releasing it would drop the new owner's lock).
func (l *Lock) Release() error {
	if l.token == "" {
		return nil
	}
	existing, err := readLockRecord(l.path)
	if err != nil {
		return nil // already gone
	}
	if existing.Token != l.token {
		return nil // someone else force-took it; not ours to release
	}
	return os.Remove(l.path)
}

func readLockRecord(path string) (*lockRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec lockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse lock file %s: %w", path, err)
	}
	return &rec, nil
}
