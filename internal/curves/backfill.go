// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package curves

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/metrics"
	"github.com/openwaits/waitcore/internal/modeling"
	"github.com/openwaits/waitcore/internal/regressor"
	"github.com/openwaits/waitcore/internal/statestore"
)

// Source names where a BackfillRow's Actual value came from.
type Source string

const (
	SourceObserved Source = "observed"
	SourceImputed  Source = "imputed"
	SourceClosed   Source = "closed"
)

// BackfillRow is one (entity, slot) output row of the backfill curve
// (spec.md §4.7.8).
type BackfillRow struct {
	EntityCode string
	ParkDate   time.Time
	TimeSlot   time.Time
	Actual     *float64
	Source     Source
}

// Backfill reconstructs one entity's actual-wait curve for one past
// park_date: observed ACTUAL readings pass through unchanged; slots with
// no observed ACTUAL are predicted from the with-POSTED model using the
// observed (or linearly interpolated) POSTED reading at that slot.
// Park-closed slots are always NULL, regardless of what was observed —
// spec.md §4.7.9's closure rule takes precedence.
func Backfill(
	ctx context.Context,
	entityCode string,
	parkDate time.Time,
	root *statestore.Root,
	trainer regressor.RegressorTrainer,
	d Dims,
	enc *modeling.EncodingMap,
) (_ []BackfillRow, err error) {
	start := time.Now()
	rows := 0
	defer func() {
		if err == nil {
			metrics.RecordCurve("backfill", time.Since(start), rows)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parkCode := canonical.ParkCodeOf(entityCode)
	dctx, err := resolveDateContext(parkCode, parkDate, d, enc)
	if err != nil {
		return nil, err
	}
	slots := Slots(dctx.open, dctx.close)
	if len(slots) == 0 {
		return nil, nil
	}

	actualBySlot, postedBySlot, err := readObservedSlots(root, entityCode, parkCode, parkDate)
	if err != nil {
		return nil, err
	}
	interpolatePosted(slots, postedBySlot)

	postedModel, hasPostedModel, err := selectPostedModel(root, entityCode, trainer)
	if err != nil {
		return nil, fmt.Errorf("select posted-imputation model for %s: %w", entityCode, err)
	}

	out := make([]BackfillRow, 0, len(slots))
	for _, slot := range slots {
		row := BackfillRow{EntityCode: entityCode, ParkDate: parkDate, TimeSlot: slot}

		closed, err := closedAt(entityCode, slot, dctx, d.Closure)
		if err != nil {
			return nil, fmt.Errorf("closure check for %s at %s: %w", entityCode, slot, err)
		}
		if closed {
			row.Source = SourceClosed
			out = append(out, row)
			continue
		}

		if observed, ok := actualBySlot[slotKey(slot)]; ok {
			v := observed
			row.Actual = &v
			row.Source = SourceObserved
			out = append(out, row)
			continue
		}

		row.Source = SourceImputed
		if hasPostedModel {
			if posted, ok := postedBySlot[slotKey(slot)]; ok {
				vec := featureVectorAt(dctx, slot, &posted, true)
				val, err := predictOne(postedModel, vec)
				if err != nil {
					return nil, fmt.Errorf("predict imputed actual for %s at %s: %w", entityCode, slot, err)
				}
				row.Actual = &val
			}
		}
		out = append(out, row)
	}
	rows = len(out)
	return out, nil
}

// readObservedSlots reads the fact file for (parkCode, parkDate), if any,
// and buckets its ACTUAL and POSTED readings to their enclosing 5-minute
// slot. A missing fact file is not an error — the date may simply have no
// canonical observations yet.
func readObservedSlots(root *statestore.Root, entityCode, parkCode string, parkDate time.Time) (actual, posted map[time.Time]float64, err error) {
	bucket := canonical.Bucket{ParkCode: parkCode, ParkDate: parkDate}
	path := bucket.FilePath(root.FactDir(), false)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[time.Time]float64{}, map[time.Time]float64{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open fact file %s: %w", path, err)
	}
	defer f.Close()

	rows, err := canonical.ReadCSV(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read fact file %s: %w", path, err)
	}

	actual = map[time.Time]float64{}
	posted = map[time.Time]float64{}
	for _, o := range rows {
		if o.EntityCode != entityCode {
			continue
		}
		switch o.WaitTimeType {
		case canonical.Actual:
			actual[slotKey(o.ObservedAt)] = float64(o.WaitTimeMinutes)
		case canonical.Posted:
			posted[slotKey(o.ObservedAt)] = float64(o.WaitTimeMinutes)
		}
	}
	return actual, posted, nil
}

// interpolatePosted fills gaps in posted between the first and last slot
// that already have an observed reading, by linear interpolation over the
// slot grid (spec.md §4.7.8: "linearly interpolate missing POSTED within
// the operating window"). Slots before the first or after the last known
// reading are left unfilled — there is nothing to interpolate between.
func interpolatePosted(slots []time.Time, posted map[time.Time]float64) {
	var known []int
	for i, s := range slots {
		if _, ok := posted[slotKey(s)]; ok {
			known = append(known, i)
		}
	}
	if len(known) < 2 {
		return
	}
	sort.Ints(known)
	for k := 0; k < len(known)-1; k++ {
		lo, hi := known[k], known[k+1]
		if hi == lo+1 {
			continue
		}
		loVal := posted[slotKey(slots[lo])]
		hiVal := posted[slotKey(slots[hi])]
		span := float64(hi - lo)
		for i := lo + 1; i < hi; i++ {
			frac := float64(i-lo) / span
			posted[slotKey(slots[i])] = loVal + (hiVal-loVal)*frac
		}
	}
}
