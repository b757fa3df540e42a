// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package canonical

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/openwaits/waitcore/internal/logging"
)

// Gate is the dedup + entity-index admission check a Writer runs each
// bucket's batch through before it is durably appended. A single Gate call
// is expected to perform the dedup-set lookup/insert and the entity-index
// upsert as one logical transaction (spec.md §5: "entity-index upserts
// complete before the batch's dedup-set commit is considered durable"), so
// Writer never has to reason about partial commits across the two stores.
// internal/dedup provides the Badger-backed implementation.
type Gate interface {
	// Admit filters rows down to the ones not already present in the dedup
	// set, recording them as seen and upserting the entity index for the
	// survivors, all before returning.
	Admit(ctx context.Context, bucket Bucket, rows []Observation) ([]Observation, error)
}

// DefaultFlushThreshold is the per-bucket row count that triggers an
// eager flush, mirroring the teacher's Appender buffering threshold.
const DefaultFlushThreshold = 5000

// Writer buffers incoming observations per (park_code, park_date) bucket
// and flushes each bucket to the fact or staging store atomically. It
// mirrors the teacher's eventprocessor.Appender: accumulate in memory,
// flush at a threshold or at Flush, serialize flushes through one mutex so
// output ordering is deterministic across buckets.
type Writer struct {
	rootDir   string
	staging   bool
	gate      Gate
	threshold int

	mu      sync.Mutex
	buffers map[Bucket][]Observation

	flushMu sync.Mutex
}

// NewWriter constructs a Writer rooted at rootDir (statestore.Root.FactDir()
// or StagingDir()). staging controls which partition layout
// Bucket.FilePath uses.
func NewWriter(rootDir string, staging bool, gate Gate) *Writer {
	return &Writer{
		rootDir:   rootDir,
		staging:   staging,
		gate:      gate,
		threshold: DefaultFlushThreshold,
		buffers:   make(map[Bucket][]Observation),
	}
}

// Accept buffers a single observation, flushing its bucket eagerly if the
// buffer has reached the flush threshold. Only structural defects (empty
// entity_code, zero observed_at, unknown wait_time_type) are rejected here;
// a row failing just the wait_time_minutes range check is still buffered
// and stored — the parser has already reported it as errs.KindValidation,
// and spec.md §4.2.1/§7 require that alone to never fail the whole file.
func (w *Writer) Accept(ctx context.Context, obs Observation) error {
	if err := obs.ValidateStructure(); err != nil {
		return fmt.Errorf("reject invalid observation: %w", err)
	}
	bucket := BucketOf(obs)

	w.mu.Lock()
	w.buffers[bucket] = append(w.buffers[bucket], obs)
	full := len(w.buffers[bucket]) >= w.threshold
	w.mu.Unlock()

	if full {
		return w.FlushBucket(ctx, bucket)
	}
	return nil
}

// AcceptBatch buffers many observations, flushing any bucket that crosses
// the threshold as it goes.
func (w *Writer) AcceptBatch(ctx context.Context, rows []Observation) error {
	for _, o := range rows {
		if err := w.Accept(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

// FlushBucket durably appends one bucket's buffered rows and clears it.
// Safe to call with nothing buffered for bucket (a no-op).
func (w *Writer) FlushBucket(ctx context.Context, bucket Bucket) error {
	w.mu.Lock()
	rows := w.buffers[bucket]
	delete(w.buffers, bucket)
	w.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ObservedAt.Before(rows[j].ObservedAt)
	})

	admitted := rows
	if w.gate != nil {
		var err error
		admitted, err = w.gate.Admit(ctx, bucket, rows)
		if err != nil {
			return fmt.Errorf("admit bucket %s/%s: %w", bucket.ParkCode, bucket.ParkDate.Format("2006-01-02"), err)
		}
	}
	if len(admitted) == 0 {
		return nil
	}

	path := bucket.FilePath(w.rootDir, w.staging)

	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	n, err := MergeAppend(path, admitted)
	if err != nil {
		return fmt.Errorf("merge-append %s: %w", path, err)
	}
	logging.Logger().Debug().
		Str("park_code", bucket.ParkCode).
		Str("park_date", bucket.ParkDate.Format("2006-01-02")).
		Int("rows", n).
		Msg("canonical writer flushed bucket")
	return nil
}

// Flush flushes every currently-buffered bucket. Call at the end of a
// batch (end of an ingest step, end of a merge run) so nothing is left
// sitting in memory.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	buckets := make([]Bucket, 0, len(w.buffers))
	for b := range w.buffers {
		buckets = append(buckets, b)
	}
	w.mu.Unlock()

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].ParkCode != buckets[j].ParkCode {
			return buckets[i].ParkCode < buckets[j].ParkCode
		}
		return buckets[i].ParkDate.Before(buckets[j].ParkDate)
	})

	for _, b := range buckets {
		if err := w.FlushBucket(ctx, b); err != nil {
			return err
		}
	}
	return nil
}
