// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/openwaits/waitcore/internal/dims"
)

// dimsFile is the on-disk shape of the operational dimension tables
// internal/dims declares as external collaborators but never implements
// (internal/dims.go's package doc: "only fixed-table test doubles live
// here"). waitcore's own deployment supplies these as a hand-maintained
// JSON file rather than wiring a real operations database — that wiring
// remains the documented Non-goal, not something this CLI invents.
type dimsFile struct {
	Entities map[string]bool `json:"entities"`
	ParkHours map[string]map[string]struct {
		OpenLocal  time.Time `json:"open_local"`
		CloseLocal time.Time `json:"close_local"`
		Version    int       `json:"version"`
	} `json:"park_hours"`
	DateGroups   map[string]int `json:"date_groups"`
	Seasons      map[string]struct {
		Season     string `json:"season"`
		SeasonYear int    `json:"season_year"`
	} `json:"seasons"`
	ParkPriority map[string]int            `json:"park_priority"`
	Closures     map[string]map[string]bool `json:"closures"`
}

// dimsSet bundles every dimension interface the modeling engine and curve
// generation consult, loaded once per CLI invocation from --dims.
type dimsSet struct {
	Entities   dims.FixedEntityDimension
	Hours      dims.FixedParkHoursDimension
	DateGroups dims.FixedDateGroupDimension
	Seasons    dims.FixedSeasonDimension
	Priority   dims.FixedParkPriorityDimension
	Closures   dims.FixedClosureDimension
}

func loadDims(path string) (dimsSet, error) {
	if path == "" {
		return dimsSet{
			Entities:   dims.FixedEntityDimension{},
			Hours:      dims.FixedParkHoursDimension{},
			DateGroups: dims.FixedDateGroupDimension{},
			Seasons:    dims.FixedSeasonDimension{},
			Priority:   dims.FixedParkPriorityDimension{},
			Closures:   dims.FixedClosureDimension{},
		}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return dimsSet{}, fmt.Errorf("read dims file %s: %w", path, err)
	}
	var f dimsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return dimsSet{}, fmt.Errorf("parse dims file %s: %w", path, err)
	}

	hours := make(dims.FixedParkHoursDimension, len(f.ParkHours))
	for parkCode, byDate := range f.ParkHours {
		m := make(map[string]dims.ParkHours, len(byDate))
		for date, h := range byDate {
			m[date] = dims.ParkHours{
				ParkCode:   parkCode,
				OpenLocal:  h.OpenLocal,
				CloseLocal: h.CloseLocal,
				Version:    h.Version,
			}
		}
		hours[parkCode] = m
	}

	seasons := make(dims.FixedSeasonDimension, len(f.Seasons))
	for date, s := range f.Seasons {
		seasons[date] = dims.Season{Season: s.Season, SeasonYear: s.SeasonYear}
	}

	return dimsSet{
		Entities:   f.Entities,
		Hours:      hours,
		DateGroups: f.DateGroups,
		Seasons:    seasons,
		Priority:   f.ParkPriority,
		Closures:   f.Closures,
	}, nil
}
