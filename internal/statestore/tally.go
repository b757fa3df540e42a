// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package statestore

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// FailureRecord tracks one source key's failed-processing history.
type FailureRecord struct {
	FailureCount       int       `json:"failure_count"`
	LastAttempt        time.Time `json:"last_attempt"`
	LastError          string    `json:"last_error"`
	SourceLastModified time.Time `json:"source_last_modified"`
}

// FailureTally tracks per-source-key failure counts and decides quarantine
// eligibility (spec.md §3 "Failure tally").
type FailureTally struct {
	path          string
	failThreshold int
	oldDays       int
	mu            sync.Mutex
	data          map[string]FailureRecord
}

// LoadFailureTally loads state/failed_files.json, starting empty if absent.
func LoadFailureTally(r *Root, failThreshold, oldDays int) (*FailureTally, error) {
	path := r.StatePath("failed_files.json")
	t := &FailureTally{
		path:          path,
		failThreshold: failThreshold,
		oldDays:       oldDays,
		data:          map[string]FailureRecord{},
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("read failure tally: %w", err)
	}
	if err := json.Unmarshal(raw, &t.data); err != nil {
		return nil, fmt.Errorf("parse failure tally: %w", err)
	}
	return t, nil
}

// Record increments key's failure count, recording the error and the
// source's current last-modified marker.
func (t *FailureTally) Record(key string, sourceLastModified time.Time, cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := t.data[key]
	rec.FailureCount++
	rec.LastAttempt = time.Now().UTC()
	rec.LastError = cause.Error()
	rec.SourceLastModified = sourceLastModified
	t.data[key] = rec
	return t.flushLocked()
}

// Clear removes key's tally entry, e.g. on successful processing.
func (t *FailureTally) Clear(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.data[key]; !ok {
		return nil
	}
	delete(t.data, key)
	return t.flushLocked()
}

// IsQuarantined reports whether key has failed at least failThreshold times
// AND its recorded source last-modified is older than oldDays.
func (t *FailureTally) IsQuarantined(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.data[key]
	if !ok {
		return false
	}
	if rec.FailureCount < t.failThreshold {
		return false
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -t.oldDays)
	return rec.SourceLastModified.Before(cutoff)
}

// Get returns the current failure record for key, if any.
func (t *FailureTally) Get(key string) (FailureRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.data[key]
	return rec, ok
}

func (t *FailureTally) flushLocked() error {
	data, err := json.Marshal(t.data)
	if err != nil {
		return fmt.Errorf("marshal failure tally: %w", err)
	}
	return WriteAtomic(t.path, data, 0o640)
}
