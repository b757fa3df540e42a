// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

/*
Package metrics provides Prometheus metrics collection for the ingest,
live-feed, training, and curve-generation pipeline.

# Metrics Endpoint

internal/statusapi exposes these at /metrics in Prometheus text format.

# Available Metrics

Ingest:
  - waitcore_ingest_files_total{source,outcome}
  - waitcore_ingest_rows_total{wait_time_type}
  - waitcore_ingest_file_duration_seconds{source}
  - waitcore_ingest_retries_total{source}

Live feed:
  - waitcore_livefeed_poll_duration_seconds{park_code}
  - waitcore_livefeed_observations_total{park_code}
  - waitcore_livefeed_rate_limited_total{park_code}
  - waitcore_circuit_breaker_state{name} (0=closed, 1=half-open, 2=open)
  - waitcore_circuit_breaker_requests_total{name,result}
  - waitcore_circuit_breaker_consecutive_failures{name}
  - waitcore_circuit_breaker_state_transitions_total{name,from_state,to_state}

Training:
  - waitcore_training_runs_total{variant,outcome}
  - waitcore_training_duration_seconds{variant}
  - waitcore_training_validation_mae{variant}
  - waitcore_training_observations{variant}

Curve generation:
  - waitcore_curve_rows_total{curve}
  - waitcore_curve_duration_seconds{curve}
  - waitcore_aggregates_build_duration_seconds
  - waitcore_aggregates_rows

DuckDB stores:
  - waitcore_duckdb_query_duration_seconds{store,operation}
  - waitcore_duckdb_query_errors_total{store,operation}

Pipeline status:
  - waitcore_pipeline_step_state{step} (0=pending, 1=running, 2=done, 3=failed)
  - waitcore_pipeline_entities_done
  - waitcore_pipeline_entities_total

# Cardinality

park_code and variant are both small fixed sets (parks in the entity index,
the three model variants); entity codes never appear as a label.
*/
package metrics
