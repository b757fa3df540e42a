// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package livefeed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/dedup"
	"github.com/openwaits/waitcore/internal/logging"
	"github.com/openwaits/waitcore/internal/metrics"
)

// ParkHoursProvider resolves a park's local operating hours for the
// park_date containing instant at. Implementations own the park's IANA
// timezone and the 6 AM rule used to pick the operational day; the poller
// only ever compares absolute instants, so it never needs the timezone
// itself. A fixed-table implementation backs this in the pipeline's
// default configuration (internal/dims.ParkHoursDimension).
type ParkHoursProvider interface {
	Hours(ctx context.Context, parkCode string, at time.Time) (ParkHours, error)
}

// Config controls one Poller.
type Config struct {
	ParkCodes     []string
	PollInterval  time.Duration
	WindowPadding time.Duration
	// IDMap maps the upstream provider's external ride ID to entity_code.
	IDMap map[string]string
	// RatePerSecond and RateBurst bound fetch concurrency per park.
	RatePerSecond float64
	RateBurst     int
	// StaleAfter is how far fetch time may lag an observation's own
	// timestamp before it is logged as stale. Defaults to 24h.
	StaleAfter time.Duration
}

func (c Config) staleAfter() time.Duration {
	if c.StaleAfter <= 0 {
		return 24 * time.Hour
	}
	return c.StaleAfter
}

// Poller fetches every in-window park's live feed once per PollInterval,
// maps external IDs to entity codes, and stages admitted rows through a
// canonical.Writer. It implements the Start/Stop lifecycle the
// supervisor's suture.Service adapter expects (see Service).
type Poller struct {
	cfg      Config
	client   FeedClient
	hours    ParkHoursProvider
	writer   *canonical.Writer
	dedupSet *dedup.Set

	limiters map[string]*rate.Limiter

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller builds a Poller. dedupSet should be a dedup.Set opened on a
// path scoped to the live poller alone (the CLI opens
// state/live_dedup.badger), separate
// from the fact store's dedup set, so repeat polls of an unchanged ride
// are absorbed without ever touching fact-store state.
func NewPoller(cfg Config, client FeedClient, hours ParkHoursProvider, dedupSet *dedup.Set, stagingDir string) *Poller {
	limiters := make(map[string]*rate.Limiter, len(cfg.ParkCodes))
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	for _, park := range cfg.ParkCodes {
		limiters[park] = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &Poller{
		cfg:      cfg,
		client:   client,
		hours:    hours,
		writer:   canonical.NewWriter(stagingDir, true, newDedupGate(dedupSet)),
		dedupSet: dedupSet,
		limiters: limiters,
	}
}

// Start begins the poll loop in a background goroutine and returns
// immediately; Serve (via Service) blocks on context cancellation instead.
func (p *Poller) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	interval := p.cfg.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		p.runCycle(runCtx)
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.runCycle(runCtx)
			}
		}
	}()
	return nil
}

// Stop cancels the poll loop and waits for the in-flight cycle to finish.
func (p *Poller) Stop() error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return p.writer.Flush(context.Background())
}

// runCycle polls every in-window park once and flushes staged rows.
func (p *Poller) runCycle(ctx context.Context) {
	now := time.Now().UTC()
	parks := append([]string(nil), p.cfg.ParkCodes...)
	sort.Strings(parks)

	for _, park := range parks {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := p.pollPark(ctx, park, now); err != nil {
			logging.Warn().Err(err).Str("park_code", park).Msg("livefeed: poll cycle failed for park")
		}
	}

	if err := p.writer.Flush(ctx); err != nil {
		logging.Error().Err(err).Msg("livefeed: flush staging writer failed")
	}
}

func (p *Poller) pollPark(ctx context.Context, parkCode string, now time.Time) error {
	hours, err := p.hours.Hours(ctx, parkCode, now)
	if err != nil {
		return fmt.Errorf("resolve operating hours: %w", err)
	}
	open, closeAt := OperatingWindow(hours, p.cfg.WindowPadding)
	if !InWindow(now, open, closeAt) {
		return nil
	}

	if lim, ok := p.limiters[parkCode]; ok {
		if lim.Tokens() < 1 {
			metrics.RecordLiveFeedRateLimited(parkCode)
		}
		if err := lim.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	raw, err := p.client.Fetch(ctx, parkCode)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer func() {
		metrics.RecordLiveFeedPoll(parkCode, time.Since(start), len(raw))
	}()

	unmapped := 0
	for _, r := range raw {
		entityCode, ok := p.cfg.IDMap[r.ExternalID]
		if !ok {
			unmapped++
			continue
		}
		if stale := now.Sub(r.ObservedAt); stale > p.cfg.staleAfter() {
			logging.Warn().Str("entity_code", entityCode).Dur("lag", stale).
				Msg("livefeed: observation older than staleness threshold")
		}
		for _, obs := range observationsFor(entityCode, r) {
			if err := p.writer.Accept(ctx, obs); err != nil {
				logging.Warn().Err(err).Str("entity_code", entityCode).Msg("livefeed: rejected observation")
			}
		}
	}
	if unmapped > 0 {
		logging.Warn().Str("park_code", parkCode).Int("unmapped", unmapped).
			Msg("livefeed: external IDs with no entity_code mapping")
	}
	return nil
}

// observationsFor expands one raw upstream reading into the canonical
// POSTED/ACTUAL/PRIORITY rows it carries.
func observationsFor(entityCode string, r RawRecord) []canonical.Observation {
	var out []canonical.Observation
	if r.SoldOut {
		out = append(out, canonical.Observation{
			EntityCode:      entityCode,
			ObservedAt:      r.ObservedAt,
			WaitTimeType:    canonical.Priority,
			WaitTimeMinutes: canonical.SoldOutSentinel,
		})
		return out
	}
	if r.PostedMinutes != nil {
		out = append(out, canonical.Observation{
			EntityCode:      entityCode,
			ObservedAt:      r.ObservedAt,
			WaitTimeType:    canonical.Posted,
			WaitTimeMinutes: *r.PostedMinutes,
		})
	}
	if r.ActualMinutes != nil {
		out = append(out, canonical.Observation{
			EntityCode:      entityCode,
			ObservedAt:      r.ObservedAt,
			WaitTimeType:    canonical.Actual,
			WaitTimeMinutes: *r.ActualMinutes,
		})
	}
	return out
}
