// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleNext(t *testing.T) {
	sched := Schedule{Hour: 6, Minute: 30, Location: time.UTC}

	t.Run("before time of day rolls forward same day", func(t *testing.T) {
		now := time.Date(2026, 7, 29, 1, 0, 0, 0, time.UTC)
		got := sched.next(now)
		want := time.Date(2026, 7, 29, 6, 30, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("next() = %v, want %v", got, want)
		}
	})

	t.Run("after time of day rolls to next day", func(t *testing.T) {
		now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
		got := sched.next(now)
		want := time.Date(2026, 7, 30, 6, 30, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("next() = %v, want %v", got, want)
		}
	})

	t.Run("defaults to UTC when Location is nil", func(t *testing.T) {
		noLoc := Schedule{Hour: 6, Minute: 30}
		now := time.Date(2026, 7, 29, 1, 0, 0, 0, time.UTC)
		if !noLoc.next(now).Equal(sched.next(now)) {
			t.Error("nil Location should behave like time.UTC")
		}
	})
}

func TestPipelineServiceServe(t *testing.T) {
	t.Run("runs occurrence when scheduled time arrives", func(t *testing.T) {
		var runCount atomic.Int32
		svc := NewPipelineService("test", func(ctx context.Context) error {
			runCount.Add(1)
			return nil
		}, Schedule{})

		// Make the schedule fire almost immediately by pinning `now` just
		// before the target time of day.
		pinned := time.Date(2026, 7, 29, 6, 29, 59, int(950*time.Millisecond), time.UTC)
		svc.schedule = Schedule{Hour: 6, Minute: 30, Location: time.UTC}
		svc.now = func() time.Time { return pinned }

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		deadline := time.Now().Add(time.Second)
		for runCount.Load() < 1 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		cancel()
		<-done

		if runCount.Load() < 1 {
			t.Error("expected at least one pipeline occurrence to run")
		}
	})

	t.Run("failed occurrence does not stop the service", func(t *testing.T) {
		var runCount atomic.Int32
		svc := NewPipelineService("test", func(ctx context.Context) error {
			runCount.Add(1)
			return errors.New("occurrence failed")
		}, Schedule{})

		pinned := time.Date(2026, 7, 29, 6, 29, 59, int(980*time.Millisecond), time.UTC)
		svc.schedule = Schedule{Hour: 6, Minute: 30, Location: time.UTC}
		svc.now = func() time.Time { return pinned }

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		err := svc.Serve(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() error = %v, want context.DeadlineExceeded", err)
		}
		if runCount.Load() < 1 {
			t.Error("expected the failing occurrence to have run at least once")
		}
	})

	t.Run("context cancellation stops the service before the first occurrence", func(t *testing.T) {
		svc := NewPipelineService("test", func(ctx context.Context) error {
			t.Error("run should not be called before the scheduled time")
			return nil
		}, Schedule{Hour: 23, Minute: 59, Location: time.UTC})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := svc.Serve(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() error = %v, want context.DeadlineExceeded", err)
		}
	})
}

func TestPipelineServiceString(t *testing.T) {
	svc := NewPipelineService("morning-merge", func(ctx context.Context) error { return nil }, Schedule{})
	if got, want := svc.String(), "pipeline-service[morning-merge]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
