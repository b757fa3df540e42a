// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package main

import (
	"github.com/spf13/cobra"

	"github.com/openwaits/waitcore/internal/entityindex"
	"github.com/openwaits/waitcore/internal/errs"
	"github.com/openwaits/waitcore/internal/logging"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Entity index maintenance",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Discard and recompute every entity index record from a full scan of the fact store",
	RunE:  runIndexRebuild,
}

func init() {
	indexCmd.AddCommand(indexRebuildCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	return withPipelineLock("index-rebuild", func() error {
		idx, err := entityindex.Open(factIndexPath(stateRoot))
		if err != nil {
			return errs.Fatal(errs.KindStore, 1, err)
		}
		defer idx.Close()

		if err := entityindex.Rebuild(idx, stateRoot.FactDir()); err != nil {
			return errs.New(errs.KindStore, "", err)
		}
		logging.Info().Msg("index rebuild: complete")
		return nil
	})
}
