// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package regressor

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
)

// MeanRegressor implements RegressorTrainer by fitting a single weighted
// mean of the training split's target values. It is the model spec.md
// §4.7.4 calls for when an entity has fewer than MIN_OBS observations:
// metadata only, no gradient-boosted model trained at all.
type MeanRegressor struct{}

// Train fits the weighted mean of y over rows marked SplitTrain. X and hp
// are accepted to satisfy RegressorTrainer but are unused — a mean model
// has no features.
func (MeanRegressor) Train(_ [][]float64, y []float64, weights []float64, splits []Split, _ Hyperparameters) (Model, error) {
	if len(y) != len(splits) {
		return nil, fmt.Errorf("mean regressor: len(y)=%d != len(splits)=%d", len(y), len(splits))
	}
	var sum, weightSum float64
	var count int
	for i, s := range splits {
		if s != SplitTrain {
			continue
		}
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		sum += y[i] * w
		weightSum += w
		count++
	}
	if count == 0 {
		return nil, fmt.Errorf("mean regressor: no SplitTrain rows to fit")
	}
	mean := sum / weightSum
	return &MeanMetadata{Mean: mean, Count: count, TrainedAt: time.Now().UTC()}, nil
}

// Predict returns the fitted mean for every row in X, regardless of its
// feature values.
func (MeanRegressor) Predict(m Model, X [][]float64) ([]float64, error) {
	meta, ok := m.(*MeanMetadata)
	if !ok {
		return nil, fmt.Errorf("mean regressor: unexpected model type %T", m)
	}
	out := make([]float64, len(X))
	for i := range out {
		out[i] = meta.Mean
	}
	return out, nil
}

// Save writes the model's metadata as JSON.
func (MeanRegressor) Save(m Model, path string) error {
	meta, ok := m.(*MeanMetadata)
	if !ok {
		return fmt.Errorf("mean regressor: unexpected model type %T", m)
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal mean model: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a model previously written by Save.
func (MeanRegressor) Load(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mean model: %w", err)
	}
	var meta MeanMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal mean model: %w", err)
	}
	return &meta, nil
}
