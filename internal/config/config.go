// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package config holds all waitcore configuration, loaded from built-in
// defaults, an optional YAML file, and environment variables (highest
// priority), in that order, via Koanf v2.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	State     StateConfig     `koanf:"state"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Live      LiveConfig      `koanf:"live"`
	Modeling  ModelingConfig  `koanf:"modeling"`
	Database  DatabaseConfig  `koanf:"database"`
	Logging   LoggingConfig   `koanf:"logging"`
	StatusAPI StatusAPIConfig `koanf:"status_api"`
}

// StateConfig locates the shared filesystem root.
type StateConfig struct {
	// OutputBase is the root directory containing fact/, staging/, state/,
	// models/, aggregates/, curves/, reports/, logs/.
	OutputBase string `koanf:"output_base"`
}

// IngestConfig controls the historical-source ingest (C2).
type IngestConfig struct {
	// FailThreshold is the number of failed attempts before a source key
	// becomes eligible for quarantine.
	FailThreshold int `koanf:"fail_threshold"`
	// OldDays is how old (by source last-modified) a chronically failing
	// key must be before it is quarantined.
	OldDays int `koanf:"old_days"`
	// ChunkSize bounds the number of rows read per stream batch.
	ChunkSize int `koanf:"chunksize"`
	// Scopes lists the property scopes to include; empty means all.
	Scopes []string `koanf:"scopes"`
	// ParkTimezones maps park_code to an IANA timezone name.
	ParkTimezones map[string]string `koanf:"park_timezones"`
	// SourceDir is the historical-source drop directory the scheduled
	// pipeline run ingests from. Empty skips the ingest stage of the
	// scheduled run (the `ingest` subcommand can still be run manually
	// with an explicit --source).
	SourceDir string `koanf:"source_dir"`
}

// LiveConfig controls the live-feed poller (C3).
type LiveConfig struct {
	// PollInterval is the sleep between poll cycles.
	PollInterval time.Duration `koanf:"poll_interval"`
	// WindowPadding extends each park's operating window on both ends.
	WindowPadding time.Duration `koanf:"window_padding"`
	// IDMap maps the live provider's external ride ID to an entity_code.
	IDMap map[string]string `koanf:"id_map"`
	// Endpoints maps park_code to its live-feed URL.
	Endpoints map[string]string `koanf:"endpoints"`
}

// ModelingConfig controls the modeling engine (C7).
type ModelingConfig struct {
	// MinObservations is MIN_OBS: below this count, fall back to a mean model.
	MinObservations int `koanf:"min_observations"`
	// MinAgeHours bounds ListForModeling's freshness filter.
	MinAgeHours int `koanf:"min_age_hours"`
	// WorkersCap upper-bounds the batch-trainer worker pool.
	WorkersCap int `koanf:"workers_cap"`
	// PerWorkerRAMBytes estimates memory used per concurrent training worker.
	PerWorkerRAMBytes int64 `koanf:"per_worker_ram_bytes"`
	// TrainSplit, ValSplit, TestSplit are the chronological split fractions.
	TrainSplit float64 `koanf:"train_split"`
	ValSplit   float64 `koanf:"val_split"`
	TestSplit  float64 `koanf:"test_split"`
	// EntityTimeout is the hard per-entity training ceiling.
	EntityTimeout time.Duration `koanf:"entity_timeout"`
	// Hyperparameters for the boosted-tree trainer (fixed initial values).
	TreeDepth       int     `koanf:"tree_depth"`
	LearningRate    float64 `koanf:"learning_rate"`
	Rounds          int     `koanf:"rounds"`
	Subsample       float64 `koanf:"subsample"`
	MinChildWeight  int     `koanf:"min_child_weight"`
}

// DatabaseConfig locates the columnar store used for posted aggregates and
// curve output.
type DatabaseConfig struct {
	// Path is the DuckDB database file path.
	Path string `koanf:"path"`
}

// LoggingConfig controls the logging subsystem.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// StatusAPIConfig controls the read-only monitoring HTTP surface.
type StatusAPIConfig struct {
	// Addr is the listen address, e.g. ":8090".
	Addr string `koanf:"addr"`
	// AllowedOrigins is the CORS allow-list for the status dashboard.
	AllowedOrigins []string `koanf:"allowed_origins"`
	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Load reads configuration from defaults, an optional config file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file path override (empty
// string searches DefaultConfigPaths).
func LoadFrom(explicitPath string) (*Config, error) {
	cfg, err := loadWithKoanf(explicitPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required fields are present and internally
// consistent.
func (c *Config) Validate() error {
	if c.State.OutputBase == "" {
		return fmt.Errorf("state.output_base is required")
	}
	if c.Ingest.FailThreshold <= 0 {
		return fmt.Errorf("ingest.fail_threshold must be positive")
	}
	if c.Ingest.OldDays <= 0 {
		return fmt.Errorf("ingest.old_days must be positive")
	}
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunksize must be positive")
	}
	if c.Modeling.MinObservations <= 0 {
		return fmt.Errorf("modeling.min_observations must be positive")
	}
	if c.Modeling.WorkersCap <= 0 {
		return fmt.Errorf("modeling.workers_cap must be positive")
	}
	sum := c.Modeling.TrainSplit + c.Modeling.ValSplit + c.Modeling.TestSplit
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("modeling train/val/test split must sum to 1.0, got %.3f", sum)
	}
	if c.Live.PollInterval <= 0 {
		return fmt.Errorf("live.poll_interval must be positive")
	}
	return nil
}
