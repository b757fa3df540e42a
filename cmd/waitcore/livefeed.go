// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/dedup"
	"github.com/openwaits/waitcore/internal/dims"
	"github.com/openwaits/waitcore/internal/errs"
	"github.com/openwaits/waitcore/internal/livefeed"
	"github.com/openwaits/waitcore/internal/logging"
)

var pollLiveCmd = &cobra.Command{
	Use:   "poll-live",
	Short: "Run the live wait-time feed poller standalone until interrupted (C3)",
	RunE:  runPollLive,
}

func init() {
	rootCmd.AddCommand(pollLiveCmd)
}

// dimsParkHoursAdapter adapts internal/dims.ParkHoursDimension (resolved
// per park_date) to internal/livefeed.ParkHoursProvider (resolved per
// instant): it determines the park_date the instant falls in using the
// park's own configured timezone and the fact store's 6am rule, then
// delegates to the dims lookup.
type dimsParkHoursAdapter struct {
	hours dims.ParkHoursDimension
	tz    map[string]string
}

func (a *dimsParkHoursAdapter) Hours(ctx context.Context, parkCode string, at time.Time) (livefeed.ParkHours, error) {
	loc, err := parkLocation(a.tz, parkCode)
	if err != nil {
		return livefeed.ParkHours{}, err
	}
	parkDate := canonical.ParkDateOf(at, loc)
	h, err := a.hours.Hours(parkCode, parkDate)
	if err != nil {
		return livefeed.ParkHours{}, err
	}
	return livefeed.ParkHours{ParkCode: parkCode, OpenLocal: h.OpenLocal, CloseLocal: h.CloseLocal}, nil
}

func parkLocation(parkTimezones map[string]string, parkCode string) (*time.Location, error) {
	name, ok := parkTimezones[parkCode]
	if !ok {
		return nil, fmt.Errorf("no timezone mapping for park_code %q", parkCode)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q for park_code %q: %w", name, parkCode, err)
	}
	return loc, nil
}

// newLivePoller builds the live-feed poller from cfg.Live and the loaded
// dims set, shared by poll-live and serve.
func newLivePoller(ds dimsSet) (*livefeed.Poller, error) {
	dedupSet, err := dedup.Open(liveDedupPath(stateRoot))
	if err != nil {
		return nil, fmt.Errorf("open live dedup set: %w", err)
	}

	parkCodes := make([]string, 0, len(cfg.Live.Endpoints))
	for park := range cfg.Live.Endpoints {
		parkCodes = append(parkCodes, park)
	}

	client := livefeed.NewCircuitBreakerClient(livefeed.NewHTTPFeedClient(cfg.Live.Endpoints), parkCodes)
	hours := &dimsParkHoursAdapter{hours: ds.Hours, tz: cfg.Ingest.ParkTimezones}

	poller := livefeed.NewPoller(livefeed.Config{
		ParkCodes:     parkCodes,
		PollInterval:  cfg.Live.PollInterval,
		WindowPadding: cfg.Live.WindowPadding,
		IDMap:         cfg.Live.IDMap,
	}, client, hours, dedupSet, stateRoot.StagingDir())
	return poller, nil
}

func runPollLive(cmd *cobra.Command, args []string) error {
	ds, err := loadDims(dimsPathFlag)
	if err != nil {
		return errs.Config(err)
	}
	poller, err := newLivePoller(ds)
	if err != nil {
		return errs.Fatal(errs.KindConfig, 3, err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("poll-live: received shutdown signal")
		cancel()
	}()

	if err := poller.Start(ctx); err != nil {
		return errs.New(errs.KindTransient, "", err)
	}
	logging.Info().Msg("poll-live: started")
	<-ctx.Done()
	if err := poller.Stop(); err != nil {
		return errs.New(errs.KindTransient, "", err)
	}
	logging.Info().Msg("poll-live: stopped")
	return nil
}
