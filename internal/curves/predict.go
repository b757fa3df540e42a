// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package curves

import (
	"fmt"
	"time"

	"github.com/openwaits/waitcore/internal/dims"
	"github.com/openwaits/waitcore/internal/modeling"
	"github.com/openwaits/waitcore/internal/regressor"
	"github.com/openwaits/waitcore/internal/statestore"
)

// Dims bundles the external dimension collaborators curve generation
// consults; a park-date's operating window, date group, and season are
// each resolved once per date, mirroring the modeling engine's own
// batching discipline.
type Dims struct {
	Hours      dims.ParkHoursDimension
	DateGroups dims.DateGroupDimension
	Seasons    dims.SeasonDimension
	Closure    dims.ClosureDimension
}

// dateContext is the per-(park,date) information every slot in that
// window shares; resolved once, not once per slot.
type dateContext struct {
	parkCode    string
	parkDate    time.Time
	open        time.Time
	close       time.Time
	dateGroupID int
	seasonID    int
	seasonYear  int
}

func resolveDateContext(parkCode string, parkDate time.Time, d Dims, enc *modeling.EncodingMap) (dateContext, error) {
	h, err := d.Hours.Hours(parkCode, parkDate)
	if err != nil {
		return dateContext{}, fmt.Errorf("park hours for %s on %s: %w", parkCode, parkDate.Format("2006-01-02"), err)
	}
	dg, err := d.DateGroups.DateGroup(parkDate)
	if err != nil {
		return dateContext{}, fmt.Errorf("date group for %s: %w", parkDate.Format("2006-01-02"), err)
	}
	s, err := d.Seasons.Season(parkDate)
	if err != nil {
		return dateContext{}, fmt.Errorf("season for %s: %w", parkDate.Format("2006-01-02"), err)
	}
	seasonID, err := enc.Encode("season", s.Season)
	if err != nil {
		return dateContext{}, fmt.Errorf("encode season %q: %w", s.Season, err)
	}
	return dateContext{
		parkCode:    parkCode,
		parkDate:    parkDate,
		open:        h.OpenLocal,
		close:       h.CloseLocal,
		dateGroupID: dg.DateGroupID,
		seasonID:    seasonID,
		seasonYear:  s.SeasonYear,
	}, nil
}

// featureVectorAt renders the engineered features for one slot instant,
// in the same column order training used (modeling.FeatureVector),
// without requiring an observed FeatureRow: curve generation predicts
// slots that were never observed at all.
func featureVectorAt(ctx dateContext, slot time.Time, posted *float64, withPosted bool) []float64 {
	r := modeling.FeatureRow{
		PredMinsSince6am:      modeling.MinsSince6am(slot),
		PredDateGroupID:       ctx.dateGroupID,
		PredSeasonYear:        ctx.seasonYear,
		PredMinsSinceParkOpen: int(slot.Sub(ctx.open).Minutes()),
		OpenHour:              ctx.open.Hour(),
		CloseHour:             ctx.close.Hour(),
		HoursOpen:             ctx.close.Sub(ctx.open).Hours(),
		// A synthetic slot has no observation recency to weight by; 1.0
		// matches the weight a fully-fresh training row would carry.
		WgtGeoDecay:    1.0,
		PostedWaitTime: posted,
	}
	return modeling.FeatureVector(r, ctx.seasonID, withPosted)
}

// selectedModel is one variant resolved for prediction: the model handle,
// the trainer that can Predict with it, and the variant it was loaded as
// (callers already know the column order via featureVectorAt).
type selectedModel struct {
	model   regressor.Model
	trainer regressor.RegressorTrainer
	variant modeling.Variant
}

// selectActualModel resolves spec.md §4.7.8's "without-POSTED model, or
// the mean model if applicable" fallback for one entity's actual_predicted
// series. ok is false when the entity has never been trained at all.
func selectActualModel(root *statestore.Root, entityCode string, trainer regressor.RegressorTrainer) (selectedModel, bool, error) {
	lv, ok, err := modeling.LoadVariant(root, entityCode, modeling.VariantWithoutPosted, trainer)
	if err != nil {
		return selectedModel{}, false, err
	}
	if ok {
		return selectedModel{model: lv.Model, trainer: trainer, variant: modeling.VariantWithoutPosted}, true, nil
	}
	var mr regressor.MeanRegressor
	lv, ok, err = modeling.LoadVariant(root, entityCode, modeling.VariantMean, mr)
	if err != nil {
		return selectedModel{}, false, err
	}
	if !ok {
		return selectedModel{}, false, nil
	}
	return selectedModel{model: lv.Model, trainer: mr, variant: modeling.VariantMean}, true, nil
}

// selectPostedModel resolves the with-POSTED model backfill uses to
// impute ACTUAL from an observed (or interpolated) POSTED reading. ok is
// false when the entity was never trained with a with-POSTED variant —
// that's expected for PRIORITY-target entities (spec.md §4.7.1).
func selectPostedModel(root *statestore.Root, entityCode string, trainer regressor.RegressorTrainer) (selectedModel, bool, error) {
	lv, ok, err := modeling.LoadVariant(root, entityCode, modeling.VariantWithPosted, trainer)
	if err != nil || !ok {
		return selectedModel{}, false, err
	}
	return selectedModel{model: lv.Model, trainer: trainer, variant: modeling.VariantWithPosted}, true, nil
}

func predictOne(sm selectedModel, vec []float64) (float64, error) {
	out, err := sm.trainer.Predict(sm.model, [][]float64{vec})
	if err != nil {
		return 0, fmt.Errorf("predict with variant %s: %w", sm.variant, err)
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("predict with variant %s: expected 1 output row, got %d", sm.variant, len(out))
	}
	return out[0], nil
}

// closedAt reports whether slot is excluded from actual per spec.md
// §4.7.9: either outside the park's published operating window, or an
// explicit per-entity closure signal covers it.
func closedAt(entityCode string, slot time.Time, ctx dateContext, closure dims.ClosureDimension) (bool, error) {
	if slot.Before(ctx.open) || !slot.Before(ctx.close) {
		return true, nil
	}
	if closure == nil {
		return false, nil
	}
	return closure.Closed(entityCode, slot)
}
