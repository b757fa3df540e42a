// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package modeling

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/openwaits/waitcore/internal/dims"
	"github.com/openwaits/waitcore/internal/entityindex"
	"github.com/openwaits/waitcore/internal/errs"
	"github.com/openwaits/waitcore/internal/logging"
	"github.com/openwaits/waitcore/internal/metrics"
	"github.com/openwaits/waitcore/internal/statestore"
)

// EntityStatus is the terminal disposition of one entity's training run.
type EntityStatus string

const (
	EntityDone    EntityStatus = "done"
	EntityFailed  EntityStatus = "failed"
	EntityTimeout EntityStatus = "timeout"
)

// WorkItem is one entity queued for training, with the fields the batch
// sort needs already resolved so sorting never re-dispatches to a
// dimension per row.
type WorkItem struct {
	EntityCode       string
	ParkCode         string
	Tier             int
	ObservationCount int64
}

// BuildWorkList reads C6's work list (entities due for training) and sorts
// it by park-priority tier, then by observation count descending within a
// tier (spec.md §4.7.6 steps 1–2).
func BuildWorkList(idx *entityindex.Index, priorities dims.ParkPriorityDimension, minAgeHours float64, minObs int64) ([]WorkItem, error) {
	var items []WorkItem
	for entityCode := range idx.ListForModeling(minAgeHours, minObs) {
		rec, ok, err := idx.Get(entityCode)
		if err != nil {
			return nil, fmt.Errorf("load entity index record for %s: %w", entityCode, err)
		}
		if !ok {
			continue
		}
		tier, err := priorities.Tier(rec.ParkCode)
		if err != nil {
			return nil, fmt.Errorf("resolve park priority tier for %s: %w", rec.ParkCode, err)
		}
		items = append(items, WorkItem{
			EntityCode:       entityCode,
			ParkCode:         rec.ParkCode,
			Tier:             tier,
			ObservationCount: rec.ObservationCount,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Tier != items[j].Tier {
			return items[i].Tier < items[j].Tier
		}
		return items[i].ObservationCount > items[j].ObservationCount
	})
	return items, nil
}

// WorkerCount implements spec.md §4.7.6 step 3's sizing formula:
// min(cpu_count, floor(0.8 * free_ram / per_worker_ram), 16).
func WorkerCount(cpuCount int, freeRAMBytes, perWorkerRAMBytes uint64) int {
	if cpuCount <= 0 {
		cpuCount = runtime.NumCPU()
	}
	if perWorkerRAMBytes == 0 {
		perWorkerRAMBytes = 1
	}
	byRAM := int(float64(freeRAMBytes) * 0.8 / float64(perWorkerRAMBytes))
	n := cpuCount
	if byRAM < n {
		n = byRAM
	}
	if n > 16 {
		n = 16
	}
	if n < 1 {
		n = 1
	}
	return n
}

// EntityResult is one entity's outcome, reported through PipelineStatus.
type EntityResult struct {
	EntityCode string
	Status     EntityStatus
	Err        error
}

// BatchResult summarizes a whole batch run.
type BatchResult struct {
	Results []EntityResult
}

// AnyFailed reports whether any entity ended failed or timed out — the
// condition cmd/waitcore's --stop-on-error flag checks to decide the
// process exit code (spec.md §4.7.6 step 5).
func (b BatchResult) AnyFailed() bool {
	for _, r := range b.Results {
		if r.Status != EntityDone {
			return true
		}
	}
	return false
}

// DefaultPerEntityTimeout is the hard per-entity deadline's default
// (spec.md §4.7.6 step 6); config.ModelingConfig.EntityTimeout carries the
// operator-tunable value.
const DefaultPerEntityTimeout = time.Hour

// TrainOne trains, and persists, a single entity; callers supply this to
// RunBatch with their own dims/regressor/encoding wiring closed over.
type TrainOne func(ctx context.Context, entityCode string) error

// RunBatch dispatches work across a worker pool sized workers, running
// each entity through train with a perEntityTimeout deadline (zero resolves
// to DefaultPerEntityTimeout). It always continues past a failed or
// timed-out entity (step 5): the caller decides what to do with
// BatchResult.AnyFailed() afterward.
func RunBatch(ctx context.Context, work []WorkItem, workers int, perEntityTimeout time.Duration, train TrainOne, status *statestore.StatusWriter) BatchResult {
	if workers < 1 {
		workers = 1
	}
	if perEntityTimeout <= 0 {
		perEntityTimeout = DefaultPerEntityTimeout
	}

	jobs := make(chan WorkItem)
	results := make(chan EntityResult, len(work))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				results <- runOne(ctx, item, perEntityTimeout, train)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, item := range work {
			select {
			case jobs <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	batch := BatchResult{Results: make([]EntityResult, 0, len(work))}
	done := 0
	for r := range results {
		batch.Results = append(batch.Results, r)
		done++
		if r.Err != nil {
			logging.Error().Err(r.Err).Str("entity_code", r.EntityCode).Str("status", string(r.Status)).Msg("modeling: entity training failed")
		}
		if status != nil {
			if err := status.SetProgress(r.EntityCode, done, len(work)); err != nil {
				logging.Warn().Err(err).Msg("modeling: failed to record batch progress")
			}
		}
		metrics.RecordPipelineProgress(done, len(work))
	}
	return batch
}

func runOne(ctx context.Context, item WorkItem, perEntityTimeout time.Duration, train TrainOne) EntityResult {
	entityCtx, cancel := context.WithTimeout(ctx, perEntityTimeout)
	defer cancel()

	err := train(entityCtx, item.EntityCode)
	switch {
	case err == nil:
		return EntityResult{EntityCode: item.EntityCode, Status: EntityDone}
	case entityCtx.Err() == context.DeadlineExceeded:
		timeoutErr := errs.New(errs.KindTimeout, item.EntityCode, fmt.Errorf("training exceeded %s: %w", perEntityTimeout, err))
		return EntityResult{EntityCode: item.EntityCode, Status: EntityTimeout, Err: timeoutErr}
	default:
		return EntityResult{EntityCode: item.EntityCode, Status: EntityFailed, Err: errs.New(errs.KindTraining, item.EntityCode, err)}
	}
}
