// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package main

import (
	"github.com/spf13/cobra"

	"github.com/openwaits/waitcore/internal/aggregates"
	"github.com/openwaits/waitcore/internal/errs"
	"github.com/openwaits/waitcore/internal/logging"
	"github.com/openwaits/waitcore/internal/statestore"
)

var aggregatesCmd = &cobra.Command{
	Use:   "build-posted-aggregates",
	Short: "Rebuild the posted-wait-time aggregates DuckDB store from a full fact-store scan (spec.md §4.7.7)",
	RunE:  runBuildAggregates,
}

func init() {
	rootCmd.AddCommand(aggregatesCmd)
}

func runBuildAggregates(cmd *cobra.Command, args []string) error {
	return withPipelineLock("build-posted-aggregates", func() error {
		status := statestore.NewStatusWriter(stateRoot)
		if err := status.SetStep("build-posted-aggregates", statestore.StepRunning); err != nil {
			logging.Warn().Err(err).Msg("build-posted-aggregates: failed to record step start")
		}

		ds, err := loadDims(dimsPathFlag)
		if err != nil {
			status.SetStepError("build-posted-aggregates", err)
			return errs.Config(err)
		}

		rows, err := aggregates.ScanFactStore(stateRoot.FactDir(), ds.DateGroups)
		if err != nil {
			status.SetStepError("build-posted-aggregates", err)
			return errs.New(errs.KindStore, "", err)
		}

		store, err := aggregates.Open(cfg.Database.Path)
		if err != nil {
			status.SetStepError("build-posted-aggregates", err)
			return errs.Fatal(errs.KindStore, 1, err)
		}
		defer store.Close()

		if err := store.Build(cmd.Context(), rows); err != nil {
			status.SetStepError("build-posted-aggregates", err)
			return errs.New(errs.KindStore, "", err)
		}

		logging.Info().Int("rows", len(rows)).Msg("build-posted-aggregates: complete")
		if err := status.SetStep("build-posted-aggregates", statestore.StepDone); err != nil {
			logging.Warn().Err(err).Msg("build-posted-aggregates: failed to record step completion")
		}
		return nil
	})
}
