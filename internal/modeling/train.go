// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package modeling

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/metrics"
	"github.com/openwaits/waitcore/internal/regressor"
	"github.com/openwaits/waitcore/internal/statestore"
)

// MinObservations is MIN_OBS's default (spec.md §4.7.4): below this many
// target-type observations, an entity gets a mean model instead of a
// boosted tree. config.ModelingConfig.MinObservations carries the
// operator-tunable value; this default is what TrainOptions falls back to
// when left zero.
const MinObservations = 500

// DefaultSplitFractions are the default chronological train/validation/test
// split fractions (spec.md §4.7.4's "defaults 70/15/15").
var DefaultSplitFractions = SplitFractions{Train: 0.70, Validation: 0.15, Test: 0.15}

// SplitFractions is the chronological train/validation/test partition,
// expressed as fractions of the distinct park_dates present in an entity's
// feature rows.
type SplitFractions struct {
	Train      float64
	Validation float64
	Test       float64
}

// TrainOptions carries the operator-tunable knobs config.ModelingConfig
// exposes; a zero value resolves every field to its spec.md default.
type TrainOptions struct {
	MinObservations int
	Splits          SplitFractions
}

func (o TrainOptions) resolved() TrainOptions {
	if o.MinObservations <= 0 {
		o.MinObservations = MinObservations
	}
	if o.Splits == (SplitFractions{}) {
		o.Splits = DefaultSplitFractions
	}
	return o
}

// Variant names one trained artifact within an entity's model directory.
type Variant string

const (
	// VariantMean is the metadata-only fallback for low-observation
	// entities: no gradient-boosted model is trained at all.
	VariantMean Variant = "mean"
	// VariantWithPosted includes the posted-wait-time series as a
	// covariate. Only produced for ACTUAL targets.
	VariantWithPosted Variant = "with_posted"
	// VariantWithoutPosted excludes the posted-wait-time series. Produced
	// for every target; the only variant produced for PRIORITY targets.
	VariantWithoutPosted Variant = "without_posted"
)

// featureNamesWithoutPosted and featureNamesWithPosted fix the column order
// fed to RegressorTrainer.Train, and are persisted in each variant's
// metadata so a later Predict call can reconstruct X in the same order.
var featureNamesWithoutPosted = []string{
	"pred_mins_since_6am", "pred_dategroupid", "pred_season_id", "pred_season_year",
	"pred_mins_since_park_open", "open_hour", "close_hour", "hours_open", "wgt_geo_decay",
}

var featureNamesWithPosted = append(append([]string{}, featureNamesWithoutPosted...), "posted_wait_time")

// FeatureVector renders r into the fixed column order featureNamesWithoutPosted
// / featureNamesWithPosted fix, for RegressorTrainer.Train or .Predict.
// Callers outside this package (curve generation, predicting against a
// synthetic future slot rather than an observed FeatureRow) use this to
// build inference inputs identically to how training built them.
func FeatureVector(r FeatureRow, seasonID int, withPosted bool) []float64 {
	row := []float64{
		float64(r.PredMinsSince6am),
		float64(r.PredDateGroupID),
		float64(seasonID),
		float64(r.PredSeasonYear),
		float64(r.PredMinsSinceParkOpen),
		float64(r.OpenHour),
		float64(r.CloseHour),
		r.HoursOpen,
		r.WgtGeoDecay,
	}
	if withPosted {
		posted := 0.0
		if r.PostedWaitTime != nil {
			posted = *r.PostedWaitTime
		}
		row = append(row, posted)
	}
	return row
}

// TrainedVariant is one fitted artifact plus the bookkeeping persisted
// alongside it.
type TrainedVariant struct {
	Variant       Variant
	Model         regressor.Model
	FeatureNames  []string
	RowCount      int
	ValidationMAE float64
}

// TrainResult is everything Train produces for one entity; Persist writes
// it to models/{entity_code}/ (spec.md §4.7.5).
type TrainResult struct {
	EntityCode   string
	Target       canonical.WaitTimeType
	Variants     []TrainedVariant
	WindowFrom   time.Time
	WindowTo     time.Time
	TrainedAt    time.Time
}

// VariantMetadata is the per-variant metadata file persisted alongside the
// model artifact: feature list, training window, row counts, chosen
// variant.
type VariantMetadata struct {
	EntityCode    string    `json:"entity_code"`
	Target        string    `json:"target"`
	Variant       string    `json:"variant"`
	FeatureNames  []string  `json:"feature_names"`
	RowCount      int       `json:"row_count"`
	ValidationMAE float64   `json:"validation_mae"`
	WindowFrom    time.Time `json:"window_from"`
	WindowTo      time.Time `json:"window_to"`
	TrainedAt     time.Time `json:"trained_at"`
}

// Train implements spec.md §4.7.4's training decision. Below
// MinObservations rows, it records a mean model only. Otherwise it splits
// rows chronologically by park_date (70/15/15 train/validation/test) and
// trains the without-POSTED variant (every target), plus the with-POSTED
// variant for ACTUAL targets.
func Train(
	rows []FeatureRow,
	entityCode string,
	target canonical.WaitTimeType,
	enc *EncodingMap,
	trainer regressor.RegressorTrainer,
	hp regressor.Hyperparameters,
	now time.Time,
	opts TrainOptions,
) (TrainResult, error) {
	if len(rows) == 0 {
		return TrainResult{}, fmt.Errorf("train %s: no feature rows", entityCode)
	}
	opts = opts.resolved()

	result := TrainResult{
		EntityCode: entityCode,
		Target:     target,
		WindowFrom: rows[0].ObservedAt,
		WindowTo:   rows[0].ObservedAt,
		TrainedAt:  now,
	}
	for _, r := range rows {
		if r.ObservedAt.Before(result.WindowFrom) {
			result.WindowFrom = r.ObservedAt
		}
		if r.ObservedAt.After(result.WindowTo) {
			result.WindowTo = r.ObservedAt
		}
	}

	if len(rows) < opts.MinObservations {
		start := time.Now()
		mean, err := trainMean(rows)
		if err != nil {
			metrics.RecordTrainingRun(string(VariantMean), "failed", time.Since(start), len(rows), 0)
			return TrainResult{}, fmt.Errorf("train mean fallback for %s: %w", entityCode, err)
		}
		metrics.RecordTrainingRun(string(VariantMean), "trained", time.Since(start), mean.RowCount, mean.ValidationMAE)
		result.Variants = []TrainedVariant{mean}
		return result, nil
	}

	splits, err := chronologicalSplits(rows, opts.Splits)
	if err != nil {
		return TrainResult{}, fmt.Errorf("split %s chronologically: %w", entityCode, err)
	}

	start := time.Now()
	withoutPosted, err := trainVariant(rows, splits, VariantWithoutPosted, false, entityCode, enc, trainer, hp)
	if err != nil {
		metrics.RecordTrainingRun(string(VariantWithoutPosted), "failed", time.Since(start), 0, 0)
		return TrainResult{}, err
	}
	metrics.RecordTrainingRun(string(VariantWithoutPosted), "trained", time.Since(start), withoutPosted.RowCount, withoutPosted.ValidationMAE)
	result.Variants = []TrainedVariant{withoutPosted}

	if UsesPostedCovariate(target) {
		start = time.Now()
		withPosted, err := trainVariant(rows, splits, VariantWithPosted, true, entityCode, enc, trainer, hp)
		if err != nil {
			metrics.RecordTrainingRun(string(VariantWithPosted), "failed", time.Since(start), 0, 0)
			return TrainResult{}, err
		}
		metrics.RecordTrainingRun(string(VariantWithPosted), "trained", time.Since(start), withPosted.RowCount, withPosted.ValidationMAE)
		result.Variants = append(result.Variants, withPosted)
	}
	return result, nil
}

func trainMean(rows []FeatureRow) (TrainedVariant, error) {
	y := make([]float64, len(rows))
	weights := make([]float64, len(rows))
	splits := make([]regressor.Split, len(rows))
	for i, r := range rows {
		y[i] = r.ObservedWaitTime
		weights[i] = r.WgtGeoDecay
		splits[i] = regressor.SplitTrain
	}
	var mr regressor.MeanRegressor
	m, err := mr.Train(nil, y, weights, splits, regressor.DefaultHyperparameters)
	if err != nil {
		return TrainedVariant{}, err
	}
	mae, err := validationMAE(mr, m, nil, y, splits)
	if err != nil {
		return TrainedVariant{}, err
	}
	return TrainedVariant{Variant: VariantMean, Model: m, RowCount: len(rows), ValidationMAE: mae}, nil
}

// validationMAE predicts X's SplitValidation rows and returns the mean
// absolute error against y, so a trained variant's generalization can be
// tracked without inspecting the model internals. A variant with no
// validation rows (e.g. too few distinct park_dates) reports 0.
func validationMAE(trainer regressor.RegressorTrainer, m regressor.Model, X [][]float64, y []float64, splits []regressor.Split) (float64, error) {
	var valX [][]float64
	var valY []float64
	for i, s := range splits {
		if s != regressor.SplitValidation {
			continue
		}
		var row []float64
		if X != nil {
			row = X[i]
		}
		valX = append(valX, row)
		valY = append(valY, y[i])
	}
	if len(valY) == 0 {
		return 0, nil
	}
	preds, err := trainer.Predict(m, valX)
	if err != nil {
		return 0, fmt.Errorf("predict validation split: %w", err)
	}
	var sum float64
	for i, p := range preds {
		diff := p - valY[i]
		if diff < 0 {
			diff = -diff
		}
		sum += diff
	}
	return sum / float64(len(preds)), nil
}

func trainVariant(
	rows []FeatureRow,
	splits []regressor.Split,
	variant Variant,
	withPosted bool,
	entityCode string,
	enc *EncodingMap,
	trainer regressor.RegressorTrainer,
	hp regressor.Hyperparameters,
) (TrainedVariant, error) {
	featureNames := featureNamesWithoutPosted
	if withPosted {
		featureNames = featureNamesWithPosted
	}

	X := make([][]float64, 0, len(rows))
	y := make([]float64, 0, len(rows))
	weights := make([]float64, 0, len(rows))
	usedSplits := make([]regressor.Split, 0, len(rows))
	for i, r := range rows {
		if withPosted && r.PostedWaitTime == nil {
			// Rows with no posted reading at this instant can't feed the
			// with-POSTED variant; the without-POSTED variant still uses
			// them.
			continue
		}
		seasonID, err := enc.Encode("season", r.PredSeason)
		if err != nil {
			return TrainedVariant{}, fmt.Errorf("encode season for %s: %w", entityCode, err)
		}
		X = append(X, FeatureVector(r, seasonID, withPosted))
		y = append(y, r.ObservedWaitTime)
		weights = append(weights, r.WgtGeoDecay)
		usedSplits = append(usedSplits, splits[i])
	}

	m, err := trainer.Train(X, y, weights, usedSplits, hp)
	if err != nil {
		return TrainedVariant{}, fmt.Errorf("train %s variant %s: %w", entityCode, variant, err)
	}
	mae, err := validationMAE(trainer, m, X, y, usedSplits)
	if err != nil {
		return TrainedVariant{}, fmt.Errorf("validate %s variant %s: %w", entityCode, variant, err)
	}
	return TrainedVariant{Variant: variant, Model: m, FeatureNames: featureNames, RowCount: len(X), ValidationMAE: mae}, nil
}

// chronologicalSplits assigns each row a Split by partitioning the distinct
// park_dates present in rows into a 70/15/15 chronological train/val/test
// run of dates, then mapping every row back to its date's assignment —
// the split boundary falls between whole days, never within one.
func chronologicalSplits(rows []FeatureRow, fractions SplitFractions) ([]regressor.Split, error) {
	dateSet := map[string]time.Time{}
	for _, r := range rows {
		dateSet[dateKey(r.ParkDate)] = r.ParkDate
	}
	dates := make([]time.Time, 0, len(dateSet))
	for _, d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	splitOf := make(map[string]regressor.Split, len(dates))
	n := len(dates)
	trainEnd := int(float64(n) * fractions.Train)
	valEnd := int(float64(n) * (fractions.Train + fractions.Validation))
	for i, d := range dates {
		s := regressor.SplitTest
		switch {
		case i < trainEnd:
			s = regressor.SplitTrain
		case i < valEnd:
			s = regressor.SplitValidation
		}
		splitOf[dateKey(d)] = s
	}

	out := make([]regressor.Split, len(rows))
	for i, r := range rows {
		out[i] = splitOf[dateKey(r.ParkDate)]
	}
	return out, nil
}

// Persist writes result to models/{entity_code}/ (spec.md §4.7.5): one
// artifact file and one metadata file per variant.
func Persist(root *statestore.Root, result TrainResult, sl regressor.SaveLoad) error {
	dir := filepath.Join(root.ModelsDir(), result.EntityCode)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create model dir for %s: %w", result.EntityCode, err)
	}
	for _, v := range result.Variants {
		artifactPath := filepath.Join(dir, string(v.Variant)+".json")
		if err := sl.Save(v.Model, artifactPath); err != nil {
			return fmt.Errorf("save %s variant %s: %w", result.EntityCode, v.Variant, err)
		}
		meta := VariantMetadata{
			EntityCode:    result.EntityCode,
			Target:        string(result.Target),
			Variant:       string(v.Variant),
			FeatureNames:  v.FeatureNames,
			RowCount:      v.RowCount,
			ValidationMAE: v.ValidationMAE,
			WindowFrom:    result.WindowFrom,
			WindowTo:      result.WindowTo,
			TrainedAt:     result.TrainedAt,
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s variant %s: %w", result.EntityCode, v.Variant, err)
		}
		metaPath := filepath.Join(dir, string(v.Variant)+"_metadata.json")
		if err := statestore.WriteAtomic(metaPath, data, 0o640); err != nil {
			return fmt.Errorf("write metadata for %s variant %s: %w", result.EntityCode, v.Variant, err)
		}
	}
	return nil
}
