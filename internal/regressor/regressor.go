// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package regressor declares the boosted-tree training abstraction the
// modeling engine trains and predicts through (spec.md §9), and provides
// the one regressor actually implemented in-repo: a mean-value fallback
// for entities below the minimum-observations threshold. A real
// gradient-boosting trainer is an external collaborator by design — this
// package never imports one.
package regressor

import "time"

// Hyperparameters are the boosted-tree trainer's fixed initial values
// (spec.md §4.7.4); a RegressorTrainer implementation is free to ignore
// fields it doesn't use (MeanRegressor ignores all of them).
type Hyperparameters struct {
	TreeDepth      int
	LearningRate   float64
	Rounds         int
	Subsample      float64
	MinChildWeight int
}

// DefaultHyperparameters are spec.md §4.7.4's fixed initial values.
var DefaultHyperparameters = Hyperparameters{
	TreeDepth:      6,
	LearningRate:   0.1,
	Rounds:         2000,
	Subsample:      0.5,
	MinChildWeight: 10,
}

// Split marks each training row as belonging to the chronological
// train/validation/test partition (spec.md §4.7.4).
type Split int

const (
	SplitTrain Split = iota
	SplitValidation
	SplitTest
)

// Model is an opaque trained artifact; only the RegressorTrainer that
// produced it knows how to Predict or SaveLoad it.
type Model interface{}

// RegressorTrainer abstracts the boosted-tree training library
// (spec.md §9): Train produces a Model from feature matrix X, target y,
// per-row training weights, and hyperparameters; rows are pre-partitioned
// by split (only SplitTrain rows are used for fitting; SplitValidation is
// available to implementations that do internal early stopping, though
// spec.md fixes early stopping off for the reference hyperparameters).
type RegressorTrainer interface {
	Train(X [][]float64, y []float64, weights []float64, splits []Split, hp Hyperparameters) (Model, error)
	Predict(m Model, X [][]float64) ([]float64, error)
	SaveLoad
}

// SaveLoad persists and restores a trained Model.
type SaveLoad interface {
	Save(m Model, path string) error
	Load(path string) (Model, error)
}

// MeanMetadata is the metadata a MeanRegressor model carries: no tree
// structure, just the fitted constant and how many rows produced it.
type MeanMetadata struct {
	Mean      float64
	Count     int
	TrainedAt time.Time
}
