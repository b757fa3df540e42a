// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/openwaits/waitcore/internal/logging"
)

// RunFunc performs one occurrence of the scheduled pipeline run (the
// morning merge-staging + ingest + train-batch + build-posted-aggregates sequence
// described in SPEC_FULL.md §6.5). It should respect ctx cancellation.
type RunFunc func(ctx context.Context) error

// Schedule describes a fixed daily time of day, evaluated in Location.
type Schedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

func (s Schedule) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// next returns the next occurrence of the schedule strictly after now.
func (s Schedule) next(now time.Time) time.Time {
	loc := s.location()
	now = now.In(loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// PipelineService runs RunFunc once per occurrence of Schedule, for as
// long as the supervised context stays alive. The pipeline driver has
// exactly one mode: it always waits for the next scheduled time and then
// runs.
//
// A failed occurrence (RunFunc returning a non-nil error) is logged and
// does not stop the service — the next scheduled occurrence still runs.
// This mirrors suture's own restart semantics at a finer grain: a single
// bad morning-merge run should not require supervisor-level backoff.
type PipelineService struct {
	name     string
	run      RunFunc
	schedule Schedule
	now      func() time.Time
}

// NewPipelineService creates a pipeline service named name, running run
// at the next occurrence of schedule and every occurrence after.
func NewPipelineService(name string, run RunFunc, schedule Schedule) *PipelineService {
	return &PipelineService{
		name:     name,
		run:      run,
		schedule: schedule,
		now:      time.Now,
	}
}

// Serve implements suture.Service. It blocks until ctx is canceled,
// running the scheduled occurrence each time the daily time of day is
// reached.
func (s *PipelineService) Serve(ctx context.Context) error {
	for {
		wait := s.schedule.next(s.now()).Sub(s.now())
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		logging.Info().Str("service", s.name).Msg("pipeline occurrence starting")
		start := s.now()
		if err := s.run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Warn().Str("service", s.name).Err(err).Dur("elapsed", s.now().Sub(start)).
				Msg("pipeline occurrence failed")
			continue
		}
		logging.Info().Str("service", s.name).Dur("elapsed", s.now().Sub(start)).
			Msg("pipeline occurrence completed")
	}
}

// String implements fmt.Stringer for logging; suture uses this to
// identify the service in its own event log.
func (s *PipelineService) String() string {
	return fmt.Sprintf("pipeline-service[%s]", s.name)
}
