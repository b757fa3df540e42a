// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package regressor

import (
	"path/filepath"
	"testing"
)

func TestMeanRegressorTrainAndPredict(t *testing.T) {
	y := []float64{10, 20, 30, 1000}
	splits := []Split{SplitTrain, SplitTrain, SplitTrain, SplitTest}
	var r MeanRegressor
	m, err := r.Train(nil, y, nil, splits, DefaultHyperparameters)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	meta := m.(*MeanMetadata)
	if meta.Mean != 20 || meta.Count != 3 {
		t.Errorf("meta = %+v, want mean=20 count=3 (test split excluded)", meta)
	}

	preds, err := r.Predict(m, make([][]float64, 5))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for _, p := range preds {
		if p != 20 {
			t.Errorf("prediction = %v, want 20", p)
		}
	}
}

func TestMeanRegressorSaveLoadRoundTrips(t *testing.T) {
	var r MeanRegressor
	m, err := r.Train(nil, []float64{5, 15}, nil, []Split{SplitTrain, SplitTrain}, DefaultHyperparameters)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := r.Save(m, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := r.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.(*MeanMetadata).Mean != 10 {
		t.Errorf("loaded mean = %v, want 10", loaded.(*MeanMetadata).Mean)
	}
}

func TestMeanRegressorTrainErrorsWithNoTrainRows(t *testing.T) {
	var r MeanRegressor
	_, err := r.Train(nil, []float64{5}, nil, []Split{SplitTest}, DefaultHyperparameters)
	if err == nil {
		t.Fatal("expected error when no rows are marked SplitTrain")
	}
}
