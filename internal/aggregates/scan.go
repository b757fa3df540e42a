// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package aggregates

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/dims"
)

// PostedRow is one POSTED reading reduced to the columns the aggregation
// grouping needs: the entity/park it belongs to, its date-group and hour
// bucket, and its minutes value.
type PostedRow struct {
	EntityCode  string
	ParkCode    string
	DateGroupID int
	Hour        int
	Minutes     int
}

// ScanFactStore walks every fact/**/*.csv file once (spec.md §4.7.7: "scan
// all canonical fact files once") and reduces each POSTED row to a
// PostedRow. dategroups.DateGroup is called exactly once per distinct
// park_date present across the whole fact store, not once per row, via the
// same two-pass batching features.go uses for its dimension joins.
func ScanFactStore(factDir string, dategroups dims.DateGroupDimension) ([]PostedRow, error) {
	paths, err := factFiles(factDir)
	if err != nil {
		return nil, fmt.Errorf("list fact files under %s: %w", factDir, err)
	}

	type pending struct {
		entityCode string
		parkCode   string
		parkDate   time.Time
		hour       int
		minutes    int
	}
	var candidates []pending
	dateSet := map[string]time.Time{}

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		rows, err := canonical.ReadCSV(f)
		closeErr := f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("close %s: %w", path, closeErr)
		}
		for _, o := range rows {
			if o.WaitTimeType != canonical.Posted {
				continue
			}
			parkDate := o.ParkDate()
			candidates = append(candidates, pending{
				entityCode: o.EntityCode,
				parkCode:   o.ParkCode(),
				parkDate:   parkDate,
				hour:       o.ObservedAt.Hour(),
				minutes:    o.WaitTimeMinutes,
			})
			dateSet[parkDate.Format("2006-01-02")] = parkDate
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	dateGroupOf := make(map[string]int, len(dateSet))
	dates := make([]string, 0, len(dateSet))
	for k := range dateSet {
		dates = append(dates, k)
	}
	sort.Strings(dates)
	for _, key := range dates {
		dg, err := dategroups.DateGroup(dateSet[key])
		if err != nil {
			return nil, fmt.Errorf("date group for %s: %w", key, err)
		}
		dateGroupOf[key] = dg.DateGroupID
	}

	out := make([]PostedRow, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, PostedRow{
			EntityCode:  c.entityCode,
			ParkCode:    c.parkCode,
			DateGroupID: dateGroupOf[c.parkDate.Format("2006-01-02")],
			Hour:        c.hour,
			Minutes:     c.minutes,
		})
	}
	return out, nil
}

// factFiles lists every fact/YYYY-MM/{park}_{date}.csv file.
func factFiles(factDir string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(factDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(d.Name()) == ".csv" {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return matches, nil
}
