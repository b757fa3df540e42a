// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openwaits/waitcore/internal/dedup"
	"github.com/openwaits/waitcore/internal/errs"
	"github.com/openwaits/waitcore/internal/logging"
	"github.com/openwaits/waitcore/internal/merge"
	"github.com/openwaits/waitcore/internal/statestore"
)

var mergeCmd = &cobra.Command{
	Use:   "merge-staging",
	Short: "Fold yesterday's staged live-feed rows into the canonical fact store (the Morning Merge, C5)",
	RunE:  runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	return withPipelineLock("merge-staging", func() error {
		status := statestore.NewStatusWriter(stateRoot)
		if err := status.SetStep("merge-staging", statestore.StepRunning); err != nil {
			logging.Warn().Err(err).Msg("merge-staging: failed to record step start")
		}

		gate, closeGate, err := dedup.NewGate(factIndexPath(stateRoot))
		if err != nil {
			status.SetStepError("merge-staging", err)
			return errs.Fatal(errs.KindStore, 1, err)
		}
		defer closeGate()

		result, err := merge.Merge(cmd.Context(), stateRoot, gate, time.Now())
		if err != nil {
			status.SetStepError("merge-staging", err)
			return err
		}

		logging.Info().
			Int("files_merged", result.FilesMerged).
			Int("files_failed", result.FilesFailed).
			Int("rows_merged", result.RowsMerged).
			Msg("merge-staging: run complete")

		if result.FilesFailed > 0 {
			err := errs.New(errs.KindTransient, "", fmt.Errorf("%d staging files failed to merge: %w", result.FilesFailed, result.FirstError))
			status.SetStepError("merge-staging", err)
			return err
		}
		if err := status.SetStep("merge-staging", statestore.StepDone); err != nil {
			logging.Warn().Err(err).Msg("merge-staging: failed to record step completion")
		}
		return nil
	})
}
