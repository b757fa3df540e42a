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
	"github.com/openwaits/waitcore/internal/entityindex"
	"github.com/openwaits/waitcore/internal/metrics"
	"github.com/openwaits/waitcore/internal/modeling"
	"github.com/openwaits/waitcore/internal/regressor"
	"github.com/openwaits/waitcore/internal/statestore"
)

// WTIRow is one (park, slot) output row of the wait-time-index curve
// (spec.md §4.7.8).
type WTIRow struct {
	ParkCode  string
	ParkDate  time.Time
	TimeSlot  time.Time
	WTI       float64
	NEntities int
	MinActual float64
	MaxActual float64
}

// WTI computes one park's wait-time-index curve for one park_date: per
// 5-minute slot, the mean actual wait across every entity in the park
// with a non-null actual at that slot (observed, imputed, or predicted —
// whichever Backfill or Forecast produces for the date relative to now).
// A slot with zero contributing entities is omitted entirely, per
// spec.md §4.7.8's "exclude slots where actual is null".
func WTI(
	ctx context.Context,
	parkCode string,
	parkDate time.Time,
	now time.Time,
	idx *entityindex.Index,
	root *statestore.Root,
	trainer regressor.RegressorTrainer,
	postedAgg *aggregates.Store,
	d Dims,
	enc *modeling.EncodingMap,
) (_ []WTIRow, err error) {
	start := time.Now()
	rowCount := 0
	defer func() {
		if err == nil {
			metrics.RecordCurve("wti", time.Since(start), rowCount)
		}
	}()

	dctx, err := resolveDateContext(parkCode, parkDate, d, enc)
	if err != nil {
		return nil, err
	}
	slots := Slots(dctx.open, dctx.close)
	if len(slots) == 0 {
		return nil, nil
	}

	isFuture := dayOf(parkDate).After(dayOf(now))

	bySlot := make(map[time.Time][]float64, len(slots))
	for rec, err := range idx.All() {
		if err != nil {
			return nil, fmt.Errorf("scan entity index for park %s: %w", parkCode, err)
		}
		if rec.ParkCode != parkCode {
			continue
		}

		var series map[time.Time]*float64
		if isFuture {
			rows, err := Forecast(ctx, rec.EntityCode, parkDate, root, trainer, postedAgg, d, enc)
			if err != nil {
				return nil, fmt.Errorf("forecast %s for WTI: %w", rec.EntityCode, err)
			}
			series = make(map[time.Time]*float64, len(rows))
			for _, r := range rows {
				series[r.TimeSlot] = r.ActualPredicted
			}
		} else {
			rows, err := Backfill(ctx, rec.EntityCode, parkDate, root, trainer, d, enc)
			if err != nil {
				return nil, fmt.Errorf("backfill %s for WTI: %w", rec.EntityCode, err)
			}
			series = make(map[time.Time]*float64, len(rows))
			for _, r := range rows {
				series[r.TimeSlot] = r.Actual
			}
		}

		for _, slot := range slots {
			if v := series[slot]; v != nil {
				bySlot[slot] = append(bySlot[slot], *v)
			}
		}
	}

	out := make([]WTIRow, 0, len(slots))
	for _, slot := range slots {
		values := bySlot[slot]
		if len(values) == 0 {
			continue
		}
		sum, min, max := 0.0, values[0], values[0]
		for _, v := range values {
			sum += v
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		out = append(out, WTIRow{
			ParkCode:  parkCode,
			ParkDate:  parkDate,
			TimeSlot:  slot,
			WTI:       sum / float64(len(values)),
			NEntities: len(values),
			MinActual: min,
			MaxActual: max,
		})
	}
	rowCount = len(out)
	return out, nil
}

// dayOf truncates t to a calendar day for the future-vs-past comparison
// WTI uses to decide whether to forecast or backfill an entity's series.
// This is a simplifying approximation of spec.md §4.7.8's date-range
// semantics: the "today" boundary is the day component alone, not an
// exact park-local 6 AM cutover.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
