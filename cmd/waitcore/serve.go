// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openwaits/waitcore/internal/aggregates"
	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/dedup"
	"github.com/openwaits/waitcore/internal/errs"
	"github.com/openwaits/waitcore/internal/ingest"
	"github.com/openwaits/waitcore/internal/livefeed"
	"github.com/openwaits/waitcore/internal/logging"
	"github.com/openwaits/waitcore/internal/merge"
	"github.com/openwaits/waitcore/internal/modeling"
	"github.com/openwaits/waitcore/internal/regressor"
	"github.com/openwaits/waitcore/internal/statestore"
	"github.com/openwaits/waitcore/internal/statusapi"
	"github.com/openwaits/waitcore/internal/supervisor"
	"github.com/openwaits/waitcore/internal/supervisor/services"
)

var serveScheduleHour int
var serveScheduleMinute int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the live poller, status API, and the scheduled morning pipeline as a long-lived process (§9)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&serveScheduleHour, "schedule-hour", 4, "local hour (America/New_York) the daily pipeline run fires at")
	serveCmd.Flags().IntVar(&serveScheduleMinute, "schedule-minute", 0, "local minute the daily pipeline run fires at")
	rootCmd.AddCommand(serveCmd)
}

// runDailyPipeline performs one occurrence of the scheduled morning run:
// merge-staging, then (if a source drop directory is configured) ingest,
// then train-batch, then build-posted-aggregates, all under one
// pipeline.lock acquisition (spec.md §6.5's "strictly before ingest, under
// the same pipeline.lock").
func runDailyPipeline(ctx context.Context) error {
	return withPipelineLock("serve-daily-pipeline", func() error {
		status := statestore.NewStatusWriter(stateRoot)

		gate, closeGate, err := dedup.NewGate(factIndexPath(stateRoot))
		if err != nil {
			return errs.Fatal(errs.KindStore, 1, err)
		}
		defer closeGate()

		if err := status.SetStep("merge", statestore.StepRunning); err != nil {
			logging.Warn().Err(err).Msg("serve: failed to record merge step start")
		}
		mergeResult, err := merge.Merge(ctx, stateRoot, gate, time.Now())
		if err != nil {
			status.SetStepError("merge", err)
			return errs.New(errs.KindStore, "", err)
		}
		if mergeResult.FilesFailed > 0 {
			status.SetStepError("merge", mergeResult.FirstError)
			logging.Warn().Int("files_failed", mergeResult.FilesFailed).Msg("serve: merge completed with failures, continuing")
		} else if err := status.SetStep("merge", statestore.StepDone); err != nil {
			logging.Warn().Err(err).Msg("serve: failed to record merge step completion")
		}

		if cfg.Ingest.SourceDir != "" {
			if err := status.SetStep("ingest", statestore.StepRunning); err != nil {
				logging.Warn().Err(err).Msg("serve: failed to record ingest step start")
			}
			writer := canonical.NewWriter(stateRoot.FactDir(), false, gate)
			src := &ingest.FilesystemSource{Root: cfg.Ingest.SourceDir}
			opts := ingest.RunOptions{
				Scopes:        cfg.Ingest.Scopes,
				ChunkSize:     cfg.Ingest.ChunkSize,
				Root:          stateRoot,
				ParkTimezones: cfg.Ingest.ParkTimezones,
				FailThreshold: cfg.Ingest.FailThreshold,
				OldDays:       cfg.Ingest.OldDays,
			}
			ingestResult, err := ingest.Ingest(ctx, opts, src, writer)
			if err != nil {
				status.SetStepError("ingest", err)
				logging.Error().Err(err).Msg("serve: ingest stage failed, continuing to train-batch")
			} else if ingestResult.FilesFailed > 0 {
				status.SetStepError("ingest", fmt.Errorf("%d source files failed", ingestResult.FilesFailed))
				logging.Warn().Int("files_failed", ingestResult.FilesFailed).Msg("serve: ingest completed with failures, continuing")
			} else if err := status.SetStep("ingest", statestore.StepDone); err != nil {
				logging.Warn().Err(err).Msg("serve: failed to record ingest step completion")
			}
		}

		if err := status.SetStep("train-batch", statestore.StepRunning); err != nil {
			logging.Warn().Err(err).Msg("serve: failed to record train-batch step start")
		}
		idx := gate.Index()
		ds, err := loadDims(dimsPathFlag)
		if err != nil {
			status.SetStepError("train-batch", err)
			return errs.Config(err)
		}
		work, err := modeling.BuildWorkList(idx, ds.Priority, float64(cfg.Modeling.MinAgeHours), int64(cfg.Modeling.MinObservations))
		if err != nil {
			status.SetStepError("train-batch", err)
			return errs.New(errs.KindStore, "", err)
		}
		enc, err := modeling.LoadEncodingMap(stateRoot)
		if err != nil {
			status.SetStepError("train-batch", err)
			return errs.New(errs.KindStore, "", err)
		}
		workers := modeling.WorkerCount(runtime.NumCPU(), freeRAMBytes(), uint64(cfg.Modeling.PerWorkerRAMBytes))
		trainer := regressor.MeanRegressor{}
		trainOne := newTrainOne(idx, ds, enc, trainer, trainOptionsFromConfig())
		logging.Info().Int("entities", len(work)).Int("workers", workers).Msg("serve: train-batch starting")
		batchResult := modeling.RunBatch(ctx, work, workers, cfg.Modeling.EntityTimeout, trainOne, status)
		failed := 0
		for _, r := range batchResult.Results {
			if r.Status != modeling.EntityDone {
				failed++
			}
		}
		if batchResult.AnyFailed() {
			status.SetStepError("train-batch", fmt.Errorf("%d of %d entities did not complete", failed, len(batchResult.Results)))
			logging.Warn().Int("failed", failed).Int("total", len(batchResult.Results)).Msg("serve: train-batch completed with failures, continuing")
		} else if err := status.SetStep("train-batch", statestore.StepDone); err != nil {
			logging.Warn().Err(err).Msg("serve: failed to record train-batch step completion")
		}

		if err := status.SetStep("build-posted-aggregates", statestore.StepRunning); err != nil {
			logging.Warn().Err(err).Msg("serve: failed to record build-posted-aggregates step start")
		}
		rows, err := aggregates.ScanFactStore(stateRoot.FactDir(), ds.DateGroups)
		if err != nil {
			status.SetStepError("build-posted-aggregates", err)
			return errs.New(errs.KindStore, "", err)
		}
		aggStore, err := aggregates.Open(cfg.Database.Path)
		if err != nil {
			status.SetStepError("build-posted-aggregates", err)
			return errs.Fatal(errs.KindStore, 1, err)
		}
		defer aggStore.Close()
		if err := aggStore.Build(ctx, rows); err != nil {
			status.SetStepError("build-posted-aggregates", err)
			return errs.New(errs.KindStore, "", err)
		}
		if err := status.SetStep("build-posted-aggregates", statestore.StepDone); err != nil {
			logging.Warn().Err(err).Msg("serve: failed to record build-posted-aggregates step completion")
		}

		logging.Info().Msg("serve: daily pipeline run complete")
		return nil
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		return errs.Fatal(errs.KindConfig, 1, fmt.Errorf("create supervisor tree: %w", err))
	}

	ds, err := loadDims(dimsPathFlag)
	if err != nil {
		return errs.Config(err)
	}
	poller, err := newLivePoller(ds)
	if err != nil {
		return errs.Fatal(errs.KindConfig, 3, fmt.Errorf("build live poller: %w", err))
	}
	tree.AddLiveService(livefeed.NewService(poller))

	schedule := services.Schedule{Hour: serveScheduleHour, Minute: serveScheduleMinute, Location: easternLocation()}
	tree.AddPipelineService(services.NewPipelineService("daily-pipeline", runDailyPipeline, schedule))

	statusServer := statusapi.NewServer(stateRoot, statusapi.Config{
		Addr:           cfg.StatusAPI.Addr,
		AllowedOrigins: cfg.StatusAPI.AllowedOrigins,
	})
	shutdownTimeout := cfg.StatusAPI.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	tree.AddLiveService(services.NewHTTPServerService(statusServer, shutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("serve: received shutdown signal")
		cancel()
	}()

	logging.Info().Str("status_addr", cfg.StatusAPI.Addr).Int("schedule_hour", serveScheduleHour).Int("schedule_minute", serveScheduleMinute).Msg("serve: starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("serve: context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("serve: supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("serve: supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("serve: services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("serve: service failed to stop")
		}
	}

	logging.Info().Msg("serve: stopped gracefully")
	return nil
}

func easternLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}
