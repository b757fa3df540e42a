// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package config

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadSplit(t *testing.T) {
	cfg := defaultConfig()
	cfg.Modeling.TrainSplit = 0.5
	cfg.Modeling.ValSplit = 0.1
	cfg.Modeling.TestSplit = 0.1
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for split not summing to 1.0")
	}
}

func TestValidateRequiresOutputBase(t *testing.T) {
	cfg := defaultConfig()
	cfg.State.OutputBase = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for missing output_base")
	}
}

func TestLoadFromAppliesEnvOverride(t *testing.T) {
	t.Setenv("WAITCORE_STATE_OUTPUT_BASE", "/tmp/waitcore-root")
	cfg, err := LoadFrom("/nonexistent-explicit-path.yaml")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.State.OutputBase != "/tmp/waitcore-root" {
		t.Errorf("OutputBase = %q, want /tmp/waitcore-root", cfg.State.OutputBase)
	}
}
