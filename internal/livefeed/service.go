// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package livefeed

import (
	"context"
	"fmt"
)

// StartStopManager matches *Poller's lifecycle, letting Service adapt it
// to suture's Serve pattern without Poller knowing anything about suture.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// Service adapts a Poller's Start/Stop lifecycle to suture.Service:
// Start spawns the poll loop, Serve blocks on context cancellation, Stop
// drains the in-flight cycle and flushes staged rows on the way out.
type Service struct {
	manager StartStopManager
	name    string
}

// NewService wraps manager (typically a *Poller) as a supervised service.
func NewService(manager StartStopManager) *Service {
	return &Service{manager: manager, name: "live-feed-poller"}
}

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("live feed poller start failed: %w", err)
	}
	<-ctx.Done()
	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("live feed poller stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer; suture uses it to identify the service
// in restart and shutdown log messages.
func (s *Service) String() string {
	return s.name
}
