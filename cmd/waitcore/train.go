// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/spf13/cobra"

	"github.com/openwaits/waitcore/internal/entityindex"
	"github.com/openwaits/waitcore/internal/errs"
	"github.com/openwaits/waitcore/internal/logging"
	"github.com/openwaits/waitcore/internal/modeling"
	"github.com/openwaits/waitcore/internal/regressor"
	"github.com/openwaits/waitcore/internal/statestore"
)

var trainEntityCode string
var trainStopOnError bool

var trainBatchCmd = &cobra.Command{
	Use:   "train-batch",
	Short: "Train every entity due for modeling, sorted by park-priority tier (C7, spec.md §4.7.6)",
	RunE:  runTrainBatch,
}

var trainEntityCmd = &cobra.Command{
	Use:   "train-entity",
	Short: "Train a single entity, regardless of its due-for-modeling state",
	RunE:  runTrainEntity,
}

func init() {
	trainBatchCmd.Flags().BoolVar(&trainStopOnError, "stop-on-error", false, "exit non-zero if any entity fails or times out (spec.md §4.7.6 step 5)")
	trainEntityCmd.Flags().StringVar(&trainEntityCode, "entity", "", "entity_code to train (required)")
	rootCmd.AddCommand(trainBatchCmd, trainEntityCmd)
}

// newTrainOne builds the TrainOne closure RunBatch and train-entity both
// train through: per-entity feature construction off the fact store,
// dispatch to trainer, persistence, and entity-index bookkeeping.
func newTrainOne(idx *entityindex.Index, ds dimsSet, enc *modeling.EncodingMap, trainer regressor.RegressorTrainer, opts modeling.TrainOptions) modeling.TrainOne {
	hp := regressor.Hyperparameters{
		TreeDepth:      cfg.Modeling.TreeDepth,
		LearningRate:   cfg.Modeling.LearningRate,
		Rounds:         cfg.Modeling.Rounds,
		Subsample:      cfg.Modeling.Subsample,
		MinChildWeight: cfg.Modeling.MinChildWeight,
	}
	return func(ctx context.Context, entityCode string) error {
		now := time.Now()
		target, err := modeling.SelectTarget(entityCode, ds.Entities)
		if err != nil {
			return errs.New(errs.KindTraining, entityCode, fmt.Errorf("select target: %w", err))
		}
		rows := entityindex.Load(stateRoot.FactDir(), entityCode)
		features, err := modeling.BuildFeatures(rows, entityCode, target, now, ds.Hours, ds.DateGroups, ds.Seasons)
		if err != nil {
			return errs.New(errs.KindTraining, entityCode, fmt.Errorf("build features: %w", err))
		}
		if len(features) == 0 {
			return errs.New(errs.KindTraining, entityCode, fmt.Errorf("no feature rows"))
		}

		result, err := modeling.Train(features, entityCode, target, enc, trainer, hp, now, opts)
		if err != nil {
			return errs.New(errs.KindTraining, entityCode, fmt.Errorf("train: %w", err))
		}
		if err := modeling.Persist(stateRoot, result, trainer); err != nil {
			return errs.New(errs.KindTraining, entityCode, fmt.Errorf("persist: %w", err))
		}
		if err := idx.MarkModeled(entityCode, now); err != nil {
			return errs.New(errs.KindTraining, entityCode, fmt.Errorf("mark modeled: %w", err))
		}
		return nil
	}
}

func trainOptionsFromConfig() modeling.TrainOptions {
	return modeling.TrainOptions{
		MinObservations: cfg.Modeling.MinObservations,
		Splits: modeling.SplitFractions{
			Train:      cfg.Modeling.TrainSplit,
			Validation: cfg.Modeling.ValSplit,
			Test:       cfg.Modeling.TestSplit,
		},
	}
}

// freeRAMBytes reports the host's currently available memory, for
// modeling.WorkerCount's sizing formula. A read failure falls back to 0,
// which WorkerCount treats as "no RAM headroom" and sizes the pool down to
// 1 rather than guessing.
func freeRAMBytes() uint64 {
	v, err := mem.VirtualMemory()
	if err != nil {
		logging.Warn().Err(err).Msg("train-batch: failed to read available memory, assuming none free")
		return 0
	}
	return v.Available
}

func runTrainBatch(cmd *cobra.Command, args []string) error {
	return withPipelineLock("train-batch", func() error {
		status := statestore.NewStatusWriter(stateRoot)
		if err := status.SetStep("train-batch", statestore.StepRunning); err != nil {
			logging.Warn().Err(err).Msg("train-batch: failed to record step start")
		}

		idx, err := entityindex.Open(factIndexPath(stateRoot))
		if err != nil {
			status.SetStepError("train-batch", err)
			return errs.Fatal(errs.KindStore, 1, err)
		}
		defer idx.Close()

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

		logging.Info().Int("entities", len(work)).Int("workers", workers).Msg("train-batch: starting")
		result := modeling.RunBatch(cmd.Context(), work, workers, cfg.Modeling.EntityTimeout, trainOne, status)

		failed := 0
		for _, r := range result.Results {
			if r.Status != modeling.EntityDone {
				failed++
			}
		}
		logging.Info().Int("total", len(result.Results)).Int("failed", failed).Msg("train-batch: complete")

		if result.AnyFailed() {
			err := errs.New(errs.KindTraining, "", fmt.Errorf("%d of %d entities did not complete", failed, len(result.Results)))
			status.SetStepError("train-batch", err)
			if trainStopOnError {
				return err
			}
			return nil
		}
		if err := status.SetStep("train-batch", statestore.StepDone); err != nil {
			logging.Warn().Err(err).Msg("train-batch: failed to record step completion")
		}
		return nil
	})
}

func runTrainEntity(cmd *cobra.Command, args []string) error {
	if trainEntityCode == "" {
		return errs.Config(fmt.Errorf("train-entity: --entity is required"))
	}
	return withPipelineLock("train-entity", func() error {
		idx, err := entityindex.Open(factIndexPath(stateRoot))
		if err != nil {
			return errs.Fatal(errs.KindStore, 1, err)
		}
		defer idx.Close()

		ds, err := loadDims(dimsPathFlag)
		if err != nil {
			return errs.Config(err)
		}
		enc, err := modeling.LoadEncodingMap(stateRoot)
		if err != nil {
			return errs.New(errs.KindStore, "", err)
		}

		trainer := regressor.MeanRegressor{}
		trainOne := newTrainOne(idx, ds, enc, trainer, trainOptionsFromConfig())
		if err := trainOne(cmd.Context(), trainEntityCode); err != nil {
			return err
		}
		logging.Info().Str("entity_code", trainEntityCode).Msg("train-entity: complete")
		return nil
	})
}
