// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package main is the waitcore CLI: one binary exposing every pipeline
// step (ingest, morning merge, index maintenance, modeling, curve
// generation) as a subcommand, plus a serve subcommand that runs the
// live-feed poller and scheduled batch pipeline under the supervisor
// tree described in SPEC_FULL.md §9.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openwaits/waitcore/internal/config"
	"github.com/openwaits/waitcore/internal/errs"
	"github.com/openwaits/waitcore/internal/logging"
	"github.com/openwaits/waitcore/internal/statestore"
)

var (
	cfg       *config.Config
	stateRoot *statestore.Root

	configPathFlag string
	stateBaseFlag  string
	dimsPathFlag   string
)

var rootCmd = &cobra.Command{
	Use:           "waitcore",
	Short:         "Theme park wait-time data pipeline and modeling engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadFrom(configPathFlag)
		if err != nil {
			return errs.Config(fmt.Errorf("load configuration: %w", err))
		}
		if stateBaseFlag != "" {
			loaded.State.OutputBase = stateBaseFlag
		}
		cfg = loaded

		logging.Init(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})

		root, err := statestore.Open(cfg.State.OutputBase)
		if err != nil {
			return errs.Config(fmt.Errorf("open state root %s: %w", cfg.State.OutputBase, err))
		}
		stateRoot = root
		statestore.SetDefault(root)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "", "config file path (overrides config.DefaultConfigPaths search)")
	rootCmd.PersistentFlags().StringVar(&stateBaseFlag, "state", "", "state root directory (overrides state.output_base)")
	rootCmd.PersistentFlags().StringVar(&dimsPathFlag, "dims", "", "path to a JSON file of operational dimension tables (park hours, seasons, priority tiers, closures); empty uses defaults with no entries")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Err(err).Msg("waitcore: command failed")
		os.Exit(errs.ExitCode(err))
	}
}
