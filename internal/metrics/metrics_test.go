// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordIngestFile(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		outcome  string
		duration time.Duration
	}{
		{"processed legacy fastpass file", "fastpass_legacy", "processed", 12 * time.Millisecond},
		{"processed new fastpass file", "fastpass_new", "processed", 8 * time.Millisecond},
		{"skipped already-seen file", "fastpass_legacy", "skipped", time.Millisecond},
		{"failed malformed file", "fastpass_new", "failed", 5 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordIngestFile(tt.source, tt.outcome, tt.duration)
		})
	}
}

func TestRecordIngestRows(t *testing.T) {
	RecordIngestRows("actual", 120)
	RecordIngestRows("posted", 80)
}

func TestRecordIngestRetry(t *testing.T) {
	RecordIngestRetry("fastpass_legacy")
}

func TestRecordLiveFeedPoll(t *testing.T) {
	RecordLiveFeedPoll("mk", 200*time.Millisecond, 45)
	RecordLiveFeedPoll("ep", 50*time.Millisecond, 0)
}

func TestRecordLiveFeedRateLimited(t *testing.T) {
	RecordLiveFeedRateLimited("mk")
}

func TestRecordTrainingRun(t *testing.T) {
	tests := []struct {
		name          string
		variant       string
		outcome       string
		duration      time.Duration
		observations  int
		validationMAE float64
	}{
		{"trained without posted", "without_posted", "trained", 2 * time.Second, 5000, 6.2},
		{"trained with posted", "with_posted", "trained", 3 * time.Second, 5000, 4.1},
		{"trained mean fallback", "mean", "trained", 10 * time.Millisecond, 40, 9.8},
		{"failed run", "with_posted", "failed", 500 * time.Millisecond, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordTrainingRun(tt.variant, tt.outcome, tt.duration, tt.observations, tt.validationMAE)
		})
	}
}

func TestRecordCurve(t *testing.T) {
	RecordCurve("forecast", 150*time.Millisecond, 288)
	RecordCurve("backfill", 100*time.Millisecond, 288)
	RecordCurve("wti", 300*time.Millisecond, 288)
}

func TestRecordAggregatesBuild(t *testing.T) {
	RecordAggregatesBuild(5*time.Second, 10000)
}

func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		store     string
		operation string
		duration  time.Duration
		err       error
	}{
		{"successful aggregates lookup", "aggregates", "lookup", 2 * time.Millisecond, nil},
		{"successful curves write", "curves", "write_forecast", 10 * time.Millisecond, nil},
		{"failed aggregates build", "aggregates", "build", 50 * time.Millisecond, errors.New("disk full")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordDBQuery(tt.store, tt.operation, tt.duration, tt.err)
		})
	}
}

func TestStepStateValue(t *testing.T) {
	tests := []struct {
		state string
		want  float64
	}{
		{"pending", 0},
		{"running", 1},
		{"done", 2},
		{"failed", 3},
		{"unknown", 0},
	}
	for _, tt := range tests {
		if got := stepStateValue(tt.state); got != tt.want {
			t.Errorf("stepStateValue(%q) = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestRecordPipelineStep(t *testing.T) {
	RecordPipelineStep("ingest", "running")
	RecordPipelineStep("ingest", "done")
	RecordPipelineStep("merge", "failed")
	if v := testutil.ToFloat64(PipelineStepState.WithLabelValues("merge")); v != 3 {
		t.Errorf("PipelineStepState[merge] = %v, want 3", v)
	}
}

func TestRecordPipelineProgress(t *testing.T) {
	RecordPipelineProgress(10, 100)
	if v := testutil.ToFloat64(PipelineEntitiesDone); v != 10 {
		t.Errorf("PipelineEntitiesDone = %v, want 10", v)
	}
	if v := testutil.ToFloat64(PipelineEntitiesTotal); v != 100 {
		t.Errorf("PipelineEntitiesTotal = %v, want 100", v)
	}
}

func TestCircuitBreakerMetrics(t *testing.T) {
	cbName := "livefeed"

	CircuitBreakerState.WithLabelValues(cbName).Set(0)
	CircuitBreakerState.WithLabelValues(cbName).Set(2)
	CircuitBreakerState.WithLabelValues(cbName).Set(1)

	CircuitBreakerRequests.WithLabelValues(cbName, "success").Inc()
	CircuitBreakerRequests.WithLabelValues(cbName, "failure").Inc()
	CircuitBreakerRequests.WithLabelValues(cbName, "rejected").Inc()

	CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(5)

	CircuitBreakerTransitions.WithLabelValues(cbName, "closed", "open").Inc()
	CircuitBreakerTransitions.WithLabelValues(cbName, "open", "half-open").Inc()
	CircuitBreakerTransitions.WithLabelValues(cbName, "half-open", "closed").Inc()
}

func TestAppMetrics(t *testing.T) {
	AppInfo.WithLabelValues("0.1.0", "go1.25.5").Set(1)
	AppUptime.Set(3600)
	AppUptime.Add(60)
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	numGoroutines := 50
	opsPerGoroutine := 50

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				RecordIngestFile("fastpass_new", "processed", time.Millisecond)
				RecordTrainingRun("with_posted", "trained", time.Second, 1000, 5.0)
				RecordCurve("forecast", time.Millisecond, 10)
				RecordPipelineStep("ingest", "running")
			}
		}()
	}
	wg.Wait()
}

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		IngestFilesTotal,
		IngestRowsTotal,
		IngestFileDuration,
		IngestRetries,
		LiveFeedPollDuration,
		LiveFeedObservationsTotal,
		LiveFeedRateLimited,
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerConsecutiveFailures,
		CircuitBreakerTransitions,
		TrainingRunsTotal,
		TrainingDuration,
		TrainingValidationError,
		TrainingObservations,
		CurveRowsTotal,
		CurveDuration,
		AggregatesBuildDuration,
		AggregatesRows,
		DBQueryDuration,
		DBQueryErrors,
		PipelineStepState,
		PipelineEntitiesDone,
		PipelineEntitiesTotal,
		AppInfo,
		AppUptime,
	}

	for _, c := range collectors {
		ch := make(chan *prometheus.Desc, 10)
		c.Describe(ch)
		close(ch)

		count := 0
		for range ch {
			count++
		}
		if count == 0 {
			t.Errorf("metric %T has no descriptors", c)
		}
	}
}

func BenchmarkRecordIngestFile(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordIngestFile("fastpass_new", "processed", 10*time.Millisecond)
	}
}

func BenchmarkRecordTrainingRun(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordTrainingRun("with_posted", "trained", time.Second, 5000, 6.0)
	}
}

func BenchmarkRecordCurve(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordCurve("forecast", 10*time.Millisecond, 288)
	}
}
