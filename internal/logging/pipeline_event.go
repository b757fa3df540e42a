// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package logging

import (
	"time"

	"github.com/rs/zerolog"
)

// StepLogger emits one structured line per pipeline-step transition
// (pending/running/done/failed), consumed by operators tailing logs
// alongside the pipeline_status.json record that mirrors the same
// transitions for programmatic readers.
type StepLogger struct {
	logger zerolog.Logger
}

// NewStepLogger returns a StepLogger tagged with the given run ID.
func NewStepLogger(runID string) *StepLogger {
	return &StepLogger{logger: With().Str("component", "pipeline").Str("run_id", runID).Logger()}
}

// Start logs a step entering the running state.
func (s *StepLogger) Start(step string) {
	s.logger.Info().Str("step", step).Str("state", "running").Msg("step started")
}

// Done logs a step completing successfully, with its duration.
func (s *StepLogger) Done(step string, d time.Duration) {
	s.logger.Info().Str("step", step).Str("state", "done").Dur("duration", d).Msg("step completed")
}

// Failed logs a step's terminal failure.
func (s *StepLogger) Failed(step string, d time.Duration, err error) {
	s.logger.Error().Str("step", step).Str("state", "failed").Dur("duration", d).Err(err).Msg("step failed")
}

// Entity logs progress for the entity currently being processed within a
// step (e.g. training, forecasting).
func (s *StepLogger) Entity(step, entityCode string, done, total int) {
	s.logger.Info().
		Str("step", step).
		Str("entity_code", entityCode).
		Int("entities_done", done).
		Int("entities_total", total).
		Msg("entity processed")
}
