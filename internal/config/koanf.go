// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/waitcore/config.yaml",
	"/etc/waitcore/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "WAITCORE_CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		State: StateConfig{
			OutputBase: "./root",
		},
		Ingest: IngestConfig{
			FailThreshold: 3,
			OldDays:       600,
			ChunkSize:     250_000,
			ParkTimezones: map[string]string{},
		},
		Live: LiveConfig{
			PollInterval:  5 * time.Minute,
			WindowPadding: 90 * time.Minute,
			IDMap:         map[string]string{},
			Endpoints:     map[string]string{},
		},
		Modeling: ModelingConfig{
			MinObservations:   500,
			MinAgeHours:       0,
			WorkersCap:        16,
			PerWorkerRAMBytes: 1 << 30, // 1 GiB
			TrainSplit:        0.70,
			ValSplit:          0.15,
			TestSplit:         0.15,
			EntityTimeout:     time.Hour,
			TreeDepth:         6,
			LearningRate:      0.1,
			Rounds:            2000,
			Subsample:         0.5,
			MinChildWeight:    10,
		},
		Database: DatabaseConfig{
			Path: "./root/aggregates/waitcore.duckdb",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		StatusAPI: StatusAPIConfig{
			Addr:            ":8090",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

func findConfigFile(explicitPath string) string {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err == nil {
			return explicitPath
		}
		return ""
	}
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransformFunc maps WAITCORE_INGEST_CHUNKSIZE -> ingest.chunksize and
// WAITCORE_STATE_OUTPUT_BASE -> state.output_base: only the underscore after
// the section name becomes a dot, so field names keep their underscores.
func envTransformFunc(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "WAITCORE_"))
	for _, section := range []string{"state", "ingest", "live", "modeling", "database", "logging", "status_api"} {
		if rest, ok := strings.CutPrefix(s, section+"_"); ok {
			return section + "." + rest
		}
	}
	return strings.ReplaceAll(s, "_", ".")
}

func loadWithKoanf(explicitPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(explicitPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("WAITCORE_", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	return cfg, nil
}
