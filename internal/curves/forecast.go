// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package curves

import (
	"context"
	"fmt"
	"time"

	"github.com/openwaits/waitcore/internal/aggregates"
	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/metrics"
	"github.com/openwaits/waitcore/internal/modeling"
	"github.com/openwaits/waitcore/internal/regressor"
	"github.com/openwaits/waitcore/internal/statestore"
)

// ForecastRow is one (entity, slot) output row of the forecast curve
// (spec.md §4.7.8). ActualPredicted is nil when the slot is closed or no
// model is available; PostedPredicted is nil only when no posted-aggregate
// level has a value, and is filled for closed slots too.
type ForecastRow struct {
	EntityCode      string
	ParkDate        time.Time
	TimeSlot        time.Time
	ActualPredicted *float64
	PostedPredicted *float64
}

// Forecast generates one entity's forecast curve for one future park_date:
// posted_predicted from the posted-aggregates fallback chain (§4.7.7),
// actual_predicted from the without-POSTED model (or the mean model,
// §4.7.4's low-observation fallback). A closed slot — park hours or an
// explicit entity closure signal — nulls actual_predicted; posted
// aggregates have no such rule, so posted_predicted may still be
// populated for a closed slot (useful to downstream consumers tracking
// what the live feed would likely report if the ride reopened).
func Forecast(
	ctx context.Context,
	entityCode string,
	parkDate time.Time,
	root *statestore.Root,
	trainer regressor.RegressorTrainer,
	postedAgg *aggregates.Store,
	d Dims,
	enc *modeling.EncodingMap,
) (_ []ForecastRow, err error) {
	start := time.Now()
	rows := 0
	defer func() {
		if err == nil {
			metrics.RecordCurve("forecast", time.Since(start), rows)
		}
	}()

	parkCode := canonical.ParkCodeOf(entityCode)
	dctx, err := resolveDateContext(parkCode, parkDate, d, enc)
	if err != nil {
		return nil, err
	}
	slots := Slots(dctx.open, dctx.close)
	if len(slots) == 0 {
		return nil, nil
	}

	actualModel, hasActual, err := selectActualModel(root, entityCode, trainer)
	if err != nil {
		return nil, fmt.Errorf("select actual-prediction model for %s: %w", entityCode, err)
	}

	out := make([]ForecastRow, 0, len(slots))
	for _, slot := range slots {
		row := ForecastRow{EntityCode: entityCode, ParkDate: parkDate, TimeSlot: slot}

		closed, err := closedAt(entityCode, slot, dctx, d.Closure)
		if err != nil {
			return nil, fmt.Errorf("closure check for %s at %s: %w", entityCode, slot, err)
		}

		if posted, ok, err := postedAgg.Lookup(ctx, entityCode, parkCode, dctx.dateGroupID, slot.Hour()); err != nil {
			return nil, fmt.Errorf("posted aggregate lookup for %s: %w", entityCode, err)
		} else if ok {
			row.PostedPredicted = &posted
		}

		if !closed && hasActual {
			posted := row.PostedPredicted
			vec := featureVectorAt(dctx, slot, posted, false)
			val, err := predictOne(actualModel, vec)
			if err != nil {
				return nil, fmt.Errorf("predict actual for %s at %s: %w", entityCode, slot, err)
			}
			row.ActualPredicted = &val
		}

		out = append(out, row)
	}
	rows = len(out)
	return out, nil
}
