// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ingest/merge/modeling/forecast pipeline.
// This package instruments:
// - Ingest: files processed, rows parsed, failures, retries
// - Live feed polling: circuit breaker state, fetch latency
// - Training: per-entity/variant runs, duration, validation metrics
// - Curve generation: forecast/backfill/WTI row counts and duration
// - DuckDB-backed stores (posted aggregates, curves): query latency/errors
// - Pipeline status: current step gauge for the status API to mirror

var (
	// Ingest Metrics

	IngestFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitcore_ingest_files_total",
			Help: "Total number of source files seen by ingest, by outcome",
		},
		[]string{"source", "outcome"}, // outcome: "processed", "skipped", "failed"
	)

	IngestRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitcore_ingest_rows_total",
			Help: "Total number of canonical rows written during ingest",
		},
		[]string{"wait_time_type"},
	)

	IngestFileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waitcore_ingest_file_duration_seconds",
			Help:    "Duration of parsing and writing a single source file",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	IngestRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitcore_ingest_retries_total",
			Help: "Total number of retry attempts for transient ingest failures",
		},
		[]string{"source"},
	)

	// Live Feed Metrics

	LiveFeedPollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waitcore_livefeed_poll_duration_seconds",
			Help:    "Duration of one live-feed poll cycle per park",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"park_code"},
	)

	LiveFeedObservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitcore_livefeed_observations_total",
			Help: "Total number of observations staged from the live feed",
		},
		[]string{"park_code"},
	)

	LiveFeedRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitcore_livefeed_rate_limited_total",
			Help: "Total number of live-feed poll cycles delayed by the per-park rate limiter",
		},
		[]string{"park_code"},
	)

	// Circuit Breaker Metrics (internal/livefeed's gobreaker wrapper)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "waitcore_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitcore_circuit_breaker_requests_total",
			Help: "Total number of requests through the circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "waitcore_circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitcore_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Training Metrics

	TrainingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitcore_training_runs_total",
			Help: "Total number of per-entity/variant training runs, by outcome",
		},
		[]string{"variant", "outcome"}, // outcome: "trained", "failed"
	)

	TrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waitcore_training_duration_seconds",
			Help:    "Duration of one entity/variant training run",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"variant"},
	)

	TrainingValidationError = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waitcore_training_validation_mae",
			Help:    "Validation-split mean absolute error of a trained model",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 45, 60},
		},
		[]string{"variant"},
	)

	TrainingObservations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waitcore_training_observations",
			Help:    "Number of observations used in a training run",
			Buckets: []float64{50, 100, 250, 500, 1000, 5000, 20000},
		},
		[]string{"variant"},
	)

	// Curve Generation Metrics (forecast/backfill/WTI)

	CurveRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitcore_curve_rows_total",
			Help: "Total number of curve rows produced",
		},
		[]string{"curve"}, // "forecast", "backfill", "wti"
	)

	CurveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waitcore_curve_duration_seconds",
			Help:    "Duration of generating one curve for one entity/park and date",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"curve"},
	)

	// Posted-Aggregates Metrics

	AggregatesBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "waitcore_aggregates_build_duration_seconds",
			Help:    "Duration of a full posted-aggregates rebuild from the fact store",
			Buckets: []float64{1, 5, 10, 30, 60, 300, 900},
		},
	)

	AggregatesRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "waitcore_aggregates_rows",
			Help: "Number of posted-aggregate rows as of the last rebuild",
		},
	)

	// DuckDB Store Metrics (internal/aggregates, internal/curves)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waitcore_duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries against the aggregates/curves stores",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store", "operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitcore_duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors against the aggregates/curves stores",
		},
		[]string{"store", "operation"},
	)

	// Pipeline Status

	PipelineStepState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "waitcore_pipeline_step_state",
			Help: "Current state of a pipeline step (0=pending, 1=running, 2=done, 3=failed)",
		},
		[]string{"step"},
	)

	PipelineEntitiesDone = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "waitcore_pipeline_entities_done",
			Help: "Number of entities processed so far in the current pipeline run",
		},
	)

	PipelineEntitiesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "waitcore_pipeline_entities_total",
			Help: "Total number of entities in the current pipeline run",
		},
	)

	// Status API Metrics

	StatusAPIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitcore_statusapi_requests_total",
			Help: "Total number of status API requests by path and status code",
		},
		[]string{"path", "status"},
	)

	StatusAPIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waitcore_statusapi_request_duration_seconds",
			Help:    "Duration of status API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	StatusAPIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "waitcore_statusapi_active_requests",
			Help: "Number of in-flight status API requests",
		},
	)

	// System Metrics

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "waitcore_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "waitcore_app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordIngestFile records the outcome of processing one source file.
func RecordIngestFile(source, outcome string, duration time.Duration) {
	IngestFilesTotal.WithLabelValues(source, outcome).Inc()
	IngestFileDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordIngestRows records canonical rows written for one wait time type.
func RecordIngestRows(waitTimeType string, n int) {
	IngestRowsTotal.WithLabelValues(waitTimeType).Add(float64(n))
}

// RecordIngestRetry records a retry attempt for a source.
func RecordIngestRetry(source string) {
	IngestRetries.WithLabelValues(source).Inc()
}

// RecordLiveFeedPoll records one park's live-feed poll cycle.
func RecordLiveFeedPoll(parkCode string, duration time.Duration, observations int) {
	LiveFeedPollDuration.WithLabelValues(parkCode).Observe(duration.Seconds())
	LiveFeedObservationsTotal.WithLabelValues(parkCode).Add(float64(observations))
}

// RecordLiveFeedRateLimited records a poll cycle delayed by the rate limiter.
func RecordLiveFeedRateLimited(parkCode string) {
	LiveFeedRateLimited.WithLabelValues(parkCode).Inc()
}

// RecordTrainingRun records the outcome and shape of one training run.
func RecordTrainingRun(variant, outcome string, duration time.Duration, observations int, validationMAE float64) {
	TrainingRunsTotal.WithLabelValues(variant, outcome).Inc()
	TrainingDuration.WithLabelValues(variant).Observe(duration.Seconds())
	if outcome == "trained" {
		TrainingObservations.WithLabelValues(variant).Observe(float64(observations))
		TrainingValidationError.WithLabelValues(variant).Observe(validationMAE)
	}
}

// RecordCurve records the rows produced and time taken generating one curve.
func RecordCurve(curve string, duration time.Duration, rows int) {
	CurveDuration.WithLabelValues(curve).Observe(duration.Seconds())
	CurveRowsTotal.WithLabelValues(curve).Add(float64(rows))
}

// RecordAggregatesBuild records one full posted-aggregates rebuild.
func RecordAggregatesBuild(duration time.Duration, rows int) {
	AggregatesBuildDuration.Observe(duration.Seconds())
	AggregatesRows.Set(float64(rows))
}

// RecordDBQuery records a DuckDB query against a named store.
func RecordDBQuery(store, operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(store, operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(store, operation).Inc()
	}
}

// stepStateValue maps a statestore.StepState string to the gauge encoding
// documented on PipelineStepState.
func stepStateValue(state string) float64 {
	switch state {
	case "running":
		return 1
	case "done":
		return 2
	case "failed":
		return 3
	default:
		return 0
	}
}

// RecordPipelineStep mirrors a pipeline_status.json step transition onto the
// PipelineStepState gauge, so the same state is visible to both the status
// API's JSON view and a Prometheus scrape.
func RecordPipelineStep(step, state string) {
	PipelineStepState.WithLabelValues(step).Set(stepStateValue(state))
}

// RecordStatusAPIRequest records one completed status API request.
func RecordStatusAPIRequest(path, status string, duration time.Duration) {
	StatusAPIRequests.WithLabelValues(path, status).Inc()
	StatusAPIRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// TrackStatusAPIActiveRequest adjusts the in-flight status API request gauge.
func TrackStatusAPIActiveRequest(active bool) {
	if active {
		StatusAPIActiveRequests.Inc()
	} else {
		StatusAPIActiveRequests.Dec()
	}
}

// RecordPipelineProgress mirrors pipeline_status.json's entity progress
// counters onto gauges.
func RecordPipelineProgress(done, total int) {
	PipelineEntitiesDone.Set(float64(done))
	PipelineEntitiesTotal.Set(float64(total))
}
