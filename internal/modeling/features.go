// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package modeling

import (
	"fmt"
	"iter"
	"math"
	"sort"
	"time"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/dims"
	"github.com/openwaits/waitcore/internal/relation"
)

// FeatureRow is one training/inference example: one instant at which the
// entity has an observation of its modeling target type.
type FeatureRow struct {
	EntityCode string
	ParkCode   string
	ParkDate   time.Time
	ObservedAt time.Time

	PredMinsSince6am      int
	PredDateGroupID       int
	PredSeason            string
	PredSeasonYear        int
	PredMinsSinceParkOpen int
	OpenHour              int
	CloseHour             int
	HoursOpen             float64

	WgtGeoDecay      float64
	ObservedWaitTime float64
	// PostedWaitTime is nil for PRIORITY targets (spec.md §4.7.1: posted
	// values are not a feature at all for PRIORITY-target entities) and
	// for ACTUAL-target instants where no POSTED reading exists at the
	// same observed_at.
	PostedWaitTime *float64
}

// dateKey formats a park_date the way BuildFeatures and its internal join
// key columns agree on.
func dateKey(t time.Time) string { return t.Format("2006-01-02") }

// BuildFeatures constructs the feature rows for one entity's target type
// from its canonical observation stream. Park-hours/date-group/season
// dimension lookups happen once per distinct park_date present in rows —
// never once per row — and are combined with the per-instant facts via a
// single relation.MergeJoin, per spec.md §4.7.2 and §9's re-architecture
// note.
func BuildFeatures(
	rows iter.Seq2[canonical.Observation, error],
	entityCode string,
	target canonical.WaitTimeType,
	now time.Time,
	hours dims.ParkHoursDimension,
	dategroups dims.DateGroupDimension,
	seasons dims.SeasonDimension,
) ([]FeatureRow, error) {
	parkCode := canonical.ParkCodeOf(entityCode)
	usesPosted := UsesPostedCovariate(target)

	groups, err := groupByInstant(rows)
	if err != nil {
		return nil, fmt.Errorf("group observations for %s: %w", entityCode, err)
	}

	type pending struct {
		observedAt time.Time
		parkDate   time.Time
		wait       float64
		posted     *float64
	}
	var candidates []pending
	dateSet := map[string]time.Time{}
	for _, g := range groups {
		targetVal, ok := g.values[target]
		if !ok {
			continue
		}
		p := pending{
			observedAt: g.observedAt,
			parkDate:   canonical.ParkDateOf(g.observedAt, g.observedAt.Location()),
			wait:       float64(targetVal),
		}
		if usesPosted {
			if pv, ok := g.values[canonical.Posted]; ok {
				f := float64(pv)
				p.posted = &f
			}
		}
		candidates = append(candidates, p)
		dateSet[dateKey(p.parkDate)] = p.parkDate
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	dates := make([]time.Time, 0, len(dateSet))
	for _, d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	dimTable, err := buildDimTable(parkCode, dates, hours, dategroups, seasons)
	if err != nil {
		return nil, err
	}

	factOrder := []string{"park_date", "observed_at", "observed_at_unix", "wgt_geo_decay", "observed_wait_time", "posted_wait_time"}
	factCols := map[string]relation.Column{
		"park_date":          make(relation.Column, 0, len(candidates)),
		"observed_at":        make(relation.Column, 0, len(candidates)),
		"observed_at_unix":   make(relation.Column, 0, len(candidates)),
		"wgt_geo_decay":      make(relation.Column, 0, len(candidates)),
		"observed_wait_time": make(relation.Column, 0, len(candidates)),
		"posted_wait_time":   make(relation.Column, 0, len(candidates)),
	}
	for _, c := range candidates {
		days := now.Sub(c.observedAt).Hours() / 24
		decay := math.Pow(0.5, days/730)
		factCols["park_date"] = append(factCols["park_date"], dateKey(c.parkDate))
		// observed_at keeps the zoned time.Time as-is (park-local offset,
		// per spec.md §3's "never Z") for MinsSince6am; observed_at_unix
		// is the epoch-seconds twin used for the zone-invariant
		// minutes-since-open arithmetic below.
		factCols["observed_at"] = append(factCols["observed_at"], c.observedAt)
		factCols["observed_at_unix"] = append(factCols["observed_at_unix"], c.observedAt.Unix())
		factCols["wgt_geo_decay"] = append(factCols["wgt_geo_decay"], decay)
		factCols["observed_wait_time"] = append(factCols["observed_wait_time"], c.wait)
		// Store as a bare untyped nil when absent — a nil *float64 boxed
		// into interface{} would compare != nil, since the interface
		// would still carry the *float64 type.
		var posted interface{}
		if c.posted != nil {
			posted = c.posted
		}
		factCols["posted_wait_time"] = append(factCols["posted_wait_time"], posted)
	}
	factTable := relation.NewTable(factOrder, factCols)
	factTable.SortBy("park_date", func(a, b interface{}) bool { return a.(string) < b.(string) })

	joined := relation.MergeJoin(factTable, dimTable, []string{"park_date"})

	out := make([]FeatureRow, 0, joined.NumRows())
	parkDateCol, _ := joined.Column("park_date")
	obsCol, _ := joined.Column("observed_at")
	obsUnixCol, _ := joined.Column("observed_at_unix")
	decayCol, _ := joined.Column("wgt_geo_decay")
	waitCol, _ := joined.Column("observed_wait_time")
	postedCol, _ := joined.Column("posted_wait_time")
	dateGroupCol, _ := joined.Column("dategroupid")
	seasonCol, _ := joined.Column("season")
	seasonYearCol, _ := joined.Column("season_year")
	openUnixCol, _ := joined.Column("open_unix")
	openHourCol, _ := joined.Column("open_hour")
	closeHourCol, _ := joined.Column("close_hour")

	for i := 0; i < joined.NumRows(); i++ {
		observedAt := obsCol[i].(time.Time)
		openUnix := openUnixCol[i].(int64)
		minsSinceOpen := int((obsUnixCol[i].(int64) - openUnix) / 60)

		var posted *float64
		if v := postedCol[i]; v != nil {
			posted = v.(*float64)
		}

		parkDate, err := time.Parse("2006-01-02", parkDateCol[i].(string))
		if err != nil {
			return nil, fmt.Errorf("parse joined park_date: %w", err)
		}

		out = append(out, FeatureRow{
			EntityCode:            entityCode,
			ParkCode:              parkCode,
			ParkDate:              parkDate,
			ObservedAt:            observedAt,
			PredMinsSince6am:      MinsSince6am(observedAt),
			PredDateGroupID:       dateGroupCol[i].(int),
			PredSeason:            seasonCol[i].(string),
			PredSeasonYear:        seasonYearCol[i].(int),
			PredMinsSinceParkOpen: minsSinceOpen,
			OpenHour:              openHourCol[i].(int),
			CloseHour:             closeHourCol[i].(int),
			HoursOpen:             float64(closeHourCol[i].(int) - openHourCol[i].(int)),
			WgtGeoDecay:           decayCol[i].(float64),
			ObservedWaitTime:      waitCol[i].(float64),
			PostedWaitTime:        posted,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObservedAt.Before(out[j].ObservedAt) })
	return out, nil
}

// MinsSince6am is spec.md §4.7.2's pred_mins_since_6am: minutes elapsed
// since the park's 6 AM boundary, wrapping a pre-6am instant forward into
// the previous operational day's tail.
func MinsSince6am(t time.Time) int {
	local := t.In(t.Location())
	minutesOfDay := local.Hour()*60 + local.Minute()
	return ((minutesOfDay - 360 + 1440) % 1440)
}

type instantGroup struct {
	observedAt time.Time
	values     map[canonical.WaitTimeType]int
}

// groupByInstant collects an entity's (already observed_at-sorted)
// observation stream into one group per distinct observed_at, each
// holding every wait-time-type reading recorded at that instant.
func groupByInstant(rows iter.Seq2[canonical.Observation, error]) ([]instantGroup, error) {
	var groups []instantGroup
	var cur *instantGroup
	var rangeErr error
	rows(func(o canonical.Observation, err error) bool {
		if err != nil {
			rangeErr = err
			return false
		}
		if cur == nil || !cur.observedAt.Equal(o.ObservedAt) {
			groups = append(groups, instantGroup{observedAt: o.ObservedAt, values: map[canonical.WaitTimeType]int{}})
			cur = &groups[len(groups)-1]
		}
		cur.values[o.WaitTimeType] = o.WaitTimeMinutes
		return true
	})
	if rangeErr != nil {
		return nil, rangeErr
	}
	return groups, nil
}

func buildDimTable(
	parkCode string,
	dates []time.Time,
	hours dims.ParkHoursDimension,
	dategroups dims.DateGroupDimension,
	seasons dims.SeasonDimension,
) (relation.Table, error) {
	order := []string{"park_date", "dategroupid", "season", "season_year", "open_unix", "open_hour", "close_hour"}
	cols := map[string]relation.Column{
		"park_date":   make(relation.Column, 0, len(dates)),
		"dategroupid": make(relation.Column, 0, len(dates)),
		"season":      make(relation.Column, 0, len(dates)),
		"season_year": make(relation.Column, 0, len(dates)),
		"open_unix":   make(relation.Column, 0, len(dates)),
		"open_hour":   make(relation.Column, 0, len(dates)),
		"close_hour":  make(relation.Column, 0, len(dates)),
	}
	for _, d := range dates {
		h, err := hours.Hours(parkCode, d)
		if err != nil {
			return relation.Table{}, fmt.Errorf("park hours for %s on %s: %w", parkCode, dateKey(d), err)
		}
		dg, err := dategroups.DateGroup(d)
		if err != nil {
			return relation.Table{}, fmt.Errorf("date group for %s: %w", dateKey(d), err)
		}
		s, err := seasons.Season(d)
		if err != nil {
			return relation.Table{}, fmt.Errorf("season for %s: %w", dateKey(d), err)
		}
		cols["park_date"] = append(cols["park_date"], dateKey(d))
		cols["dategroupid"] = append(cols["dategroupid"], dg.DateGroupID)
		cols["season"] = append(cols["season"], s.Season)
		cols["season_year"] = append(cols["season_year"], s.SeasonYear)
		cols["open_unix"] = append(cols["open_unix"], h.OpenLocal.Unix())
		cols["open_hour"] = append(cols["open_hour"], h.OpenLocal.Hour())
		cols["close_hour"] = append(cols["close_hour"], h.CloseLocal.Hour())
	}
	t := relation.NewTable(order, cols)
	t.SortBy("park_date", func(a, b interface{}) bool { return a.(string) < b.(string) })
	return t, nil
}
