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

// StepState is the lifecycle of one pipeline step.
type StepState string

const (
	StepPending StepState = "pending"
	StepRunning StepState = "running"
	StepDone    StepState = "done"
	StepFailed  StepState = "failed"
)

// PipelineStatus is the shared, write-replace status record consumed by the
// (external) monitoring dashboard. Generation is bumped on every write so
// readers can detect they observed a stale-but-never-torn snapshot.
type PipelineStatus struct {
	StartedAt     time.Time            `json:"started_at"`
	Steps         map[string]StepState `json:"steps"`
	LastError     string               `json:"last_error,omitempty"`
	CurrentEntity string               `json:"current_entity,omitempty"`
	EntitiesDone  int                  `json:"entities_done"`
	EntitiesTotal int                  `json:"entities_total"`
	Generation    int64                `json:"generation"`
}

// StatusWriter serializes writes to pipeline_status.json from the single
// pipeline driver process; readers only ever read.
type StatusWriter struct {
	path string
	mu   sync.Mutex
	cur  PipelineStatus
}

// NewStatusWriter returns a StatusWriter for state/pipeline_status.json,
// starting a fresh status record.
func NewStatusWriter(r *Root) *StatusWriter {
	return &StatusWriter{
		path: r.StatePath("pipeline_status.json"),
		cur: PipelineStatus{
			StartedAt: time.Now().UTC(),
			Steps:     map[string]StepState{},
		},
	}
}

// SetStep records a step's state and persists the record.
func (w *StatusWriter) SetStep(step string, state StepState) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cur.Steps[step] = state
	return w.flushLocked()
}

// SetStepError records a step failing with err, setting LastError, and persists.
func (w *StatusWriter) SetStepError(step string, err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cur.Steps[step] = StepFailed
	if w.cur.LastError == "" {
		w.cur.LastError = err.Error()
	}
	return w.flushLocked()
}

// SetProgress records the entity currently being processed and persists.
func (w *StatusWriter) SetProgress(entityCode string, done, total int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cur.CurrentEntity = entityCode
	w.cur.EntitiesDone = done
	w.cur.EntitiesTotal = total
	return w.flushLocked()
}

// Snapshot returns a copy of the current in-memory status.
func (w *StatusWriter) Snapshot() PipelineStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := w.cur
	cp.Steps = make(map[string]StepState, len(w.cur.Steps))
	for k, v := range w.cur.Steps {
		cp.Steps[k] = v
	}
	return cp
}

func (w *StatusWriter) flushLocked() error {
	w.cur.Generation++
	data, err := json.Marshal(w.cur)
	if err != nil {
		return fmt.Errorf("marshal pipeline status: %w", err)
	}
	return WriteAtomic(w.path, data, 0o640)
}

// ReadStatus reads the current pipeline status for read-only consumers
// (e.g. internal/statusapi). A missing file is reported as ErrNotFound,
// matching spec.md's "treat missing/stale status as unknown" policy.
func ReadStatus(r *Root) (*PipelineStatus, error) {
	data, err := os.ReadFile(r.StatePath("pipeline_status.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read pipeline status: %w", err)
	}
	var st PipelineStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse pipeline status: %w", err)
	}
	return &st, nil
}
