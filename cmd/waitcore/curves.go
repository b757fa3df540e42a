// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openwaits/waitcore/internal/aggregates"
	"github.com/openwaits/waitcore/internal/curves"
	"github.com/openwaits/waitcore/internal/entityindex"
	"github.com/openwaits/waitcore/internal/errs"
	"github.com/openwaits/waitcore/internal/logging"
	"github.com/openwaits/waitcore/internal/modeling"
	"github.com/openwaits/waitcore/internal/regressor"
)

var (
	curveEntityCode string
	curveParkCode   string
	curveDate       string
)

const curveDateLayout = "2006-01-02"

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Generate one entity's forecast curve for a future park_date (spec.md §4.7.8)",
	RunE:  runForecast,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Reconstruct one entity's actual-wait curve for a past park_date (spec.md §4.7.8)",
	RunE:  runBackfill,
}

var wtiCmd = &cobra.Command{
	Use:   "wti",
	Short: "Compute one park's wait-time-index curve for a park_date (spec.md §4.7.8)",
	RunE:  runWTI,
}

func init() {
	for _, c := range []*cobra.Command{forecastCmd, backfillCmd} {
		c.Flags().StringVar(&curveEntityCode, "entity", "", "entity_code (required)")
		c.Flags().StringVar(&curveDate, "date", "", "park_date, YYYY-MM-DD (required)")
	}
	wtiCmd.Flags().StringVar(&curveParkCode, "park", "", "park_code (required)")
	wtiCmd.Flags().StringVar(&curveDate, "date", "", "park_date, YYYY-MM-DD (required)")
	rootCmd.AddCommand(forecastCmd, backfillCmd, wtiCmd)
}

func curveDims(ds dimsSet) curves.Dims {
	return curves.Dims{
		Hours:      ds.Hours,
		DateGroups: ds.DateGroups,
		Seasons:    ds.Seasons,
		Closure:    ds.Closures,
	}
}

func parseParkDate() (time.Time, error) {
	t, err := time.Parse(curveDateLayout, curveDate)
	if err != nil {
		return time.Time{}, errs.Config(fmt.Errorf("parse --date %q: %w", curveDate, err))
	}
	return t, nil
}

func runForecast(cmd *cobra.Command, args []string) error {
	if curveEntityCode == "" || curveDate == "" {
		return errs.Config(fmt.Errorf("forecast: --entity and --date are required"))
	}
	parkDate, err := parseParkDate()
	if err != nil {
		return err
	}

	ds, err := loadDims(dimsPathFlag)
	if err != nil {
		return errs.Config(err)
	}
	enc, err := modeling.LoadEncodingMap(stateRoot)
	if err != nil {
		return errs.New(errs.KindStore, "", err)
	}
	postedAgg, err := aggregates.Open(cfg.Database.Path)
	if err != nil {
		return errs.Fatal(errs.KindStore, 1, err)
	}
	defer postedAgg.Close()

	trainer := regressor.MeanRegressor{}
	rows, err := curves.Forecast(cmd.Context(), curveEntityCode, parkDate, stateRoot, trainer, postedAgg, curveDims(ds), enc)
	if err != nil {
		return errs.New(errs.KindTraining, curveEntityCode, err)
	}

	store, err := curves.OpenStore(cfg.Database.Path)
	if err != nil {
		return errs.Fatal(errs.KindStore, 1, err)
	}
	defer store.Close()
	if err := store.WriteForecast(cmd.Context(), curveEntityCode, parkDate, rows); err != nil {
		return errs.New(errs.KindStore, curveEntityCode, err)
	}

	logging.Info().Str("entity_code", curveEntityCode).Str("park_date", curveDate).Int("rows", len(rows)).Msg("forecast: complete")
	return nil
}

func runBackfill(cmd *cobra.Command, args []string) error {
	if curveEntityCode == "" || curveDate == "" {
		return errs.Config(fmt.Errorf("backfill: --entity and --date are required"))
	}
	parkDate, err := parseParkDate()
	if err != nil {
		return err
	}

	ds, err := loadDims(dimsPathFlag)
	if err != nil {
		return errs.Config(err)
	}
	enc, err := modeling.LoadEncodingMap(stateRoot)
	if err != nil {
		return errs.New(errs.KindStore, "", err)
	}

	trainer := regressor.MeanRegressor{}
	rows, err := curves.Backfill(cmd.Context(), curveEntityCode, parkDate, stateRoot, trainer, curveDims(ds), enc)
	if err != nil {
		return errs.New(errs.KindTraining, curveEntityCode, err)
	}

	store, err := curves.OpenStore(cfg.Database.Path)
	if err != nil {
		return errs.Fatal(errs.KindStore, 1, err)
	}
	defer store.Close()
	if err := store.WriteBackfill(cmd.Context(), curveEntityCode, parkDate, rows); err != nil {
		return errs.New(errs.KindStore, curveEntityCode, err)
	}

	logging.Info().Str("entity_code", curveEntityCode).Str("park_date", curveDate).Int("rows", len(rows)).Msg("backfill: complete")
	return nil
}

func runWTI(cmd *cobra.Command, args []string) error {
	if curveParkCode == "" || curveDate == "" {
		return errs.Config(fmt.Errorf("wti: --park and --date are required"))
	}
	parkDate, err := parseParkDate()
	if err != nil {
		return err
	}

	ds, err := loadDims(dimsPathFlag)
	if err != nil {
		return errs.Config(err)
	}
	enc, err := modeling.LoadEncodingMap(stateRoot)
	if err != nil {
		return errs.New(errs.KindStore, "", err)
	}
	postedAgg, err := aggregates.Open(cfg.Database.Path)
	if err != nil {
		return errs.Fatal(errs.KindStore, 1, err)
	}
	defer postedAgg.Close()

	idx, err := entityindex.Open(factIndexPath(stateRoot))
	if err != nil {
		return errs.Fatal(errs.KindStore, 1, err)
	}
	defer idx.Close()

	trainer := regressor.MeanRegressor{}
	rows, err := curves.WTI(cmd.Context(), curveParkCode, parkDate, time.Now(), idx, stateRoot, trainer, postedAgg, curveDims(ds), enc)
	if err != nil {
		return errs.New(errs.KindTraining, curveParkCode, err)
	}

	store, err := curves.OpenStore(cfg.Database.Path)
	if err != nil {
		return errs.Fatal(errs.KindStore, 1, err)
	}
	defer store.Close()
	if err := store.WriteWTI(cmd.Context(), curveParkCode, parkDate, rows); err != nil {
		return errs.New(errs.KindStore, curveParkCode, err)
	}

	logging.Info().Str("park_code", curveParkCode).Str("park_date", curveDate).Int("rows", len(rows)).Msg("wti: complete")
	return nil
}
