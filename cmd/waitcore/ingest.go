// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/dedup"
	"github.com/openwaits/waitcore/internal/errs"
	"github.com/openwaits/waitcore/internal/ingest"
	"github.com/openwaits/waitcore/internal/logging"
	"github.com/openwaits/waitcore/internal/statestore"
)

var ingestSourceDir string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Discover, classify, and parse historical source files into the canonical fact store (C2)",
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSourceDir, "source", "", "root directory of historical source files (required)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestSourceDir == "" {
		return errs.Config(fmt.Errorf("ingest: --source is required"))
	}

	return withPipelineLock("ingest", func() error {
		status := statestore.NewStatusWriter(stateRoot)
		if err := status.SetStep("ingest", statestore.StepRunning); err != nil {
			logging.Warn().Err(err).Msg("ingest: failed to record step start")
		}

		gate, closeGate, err := dedup.NewGate(factIndexPath(stateRoot))
		if err != nil {
			status.SetStepError("ingest", err)
			return errs.Fatal(errs.KindStore, 1, err)
		}
		defer closeGate()

		writer := canonical.NewWriter(stateRoot.FactDir(), false, gate)
		src := &ingest.FilesystemSource{Root: ingestSourceDir}

		opts := ingest.RunOptions{
			Scopes:        cfg.Ingest.Scopes,
			ChunkSize:     cfg.Ingest.ChunkSize,
			Root:          stateRoot,
			ParkTimezones: cfg.Ingest.ParkTimezones,
			FailThreshold: cfg.Ingest.FailThreshold,
			OldDays:       cfg.Ingest.OldDays,
		}

		result, err := ingest.Ingest(cmd.Context(), opts, src, writer)
		if err != nil {
			status.SetStepError("ingest", err)
			return err
		}

		logging.Info().
			Int("files_processed", result.FilesProcessed).
			Int("files_skipped", result.FilesSkipped).
			Int("files_failed", result.FilesFailed).
			Msg("ingest: run complete")

		if result.FilesFailed > 0 {
			err := errs.New(errs.KindTransient, "", fmt.Errorf("%d source files failed", result.FilesFailed))
			status.SetStepError("ingest", err)
			return err
		}
		if err := status.SetStep("ingest", statestore.StepDone); err != nil {
			logging.Warn().Err(err).Msg("ingest: failed to record step completion")
		}
		return nil
	})
}
