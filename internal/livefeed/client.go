// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package livefeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/openwaits/waitcore/internal/logging"
	"github.com/openwaits/waitcore/internal/metrics"
)

// RawRecord is one ride's live reading as the upstream feed reports it,
// keyed by the provider's own external ride ID rather than an entity_code.
type RawRecord struct {
	ExternalID    string
	ObservedAt    time.Time
	PostedMinutes *int
	ActualMinutes *int
	SoldOut       bool
}

// feedPayload is the upstream feed's wire shape.
type feedPayload struct {
	Rides []struct {
		ID            string `json:"id"`
		LastUpdated   int64  `json:"last_updated"`
		WaitMinutes   *int   `json:"wait_minutes"`
		ActualMinutes *int   `json:"actual_minutes"`
		Status        string `json:"status"`
	} `json:"rides"`
}

// FeedClient fetches one park's current ride states.
type FeedClient interface {
	Fetch(ctx context.Context, parkCode string) ([]RawRecord, error)
}

// HTTPFeedClient fetches a park's live feed over HTTP. Proxy environment
// variables are explicitly bypassed: a live poller in a containerized
// pipeline must not silently route ride-status traffic through whatever
// HTTP_PROXY happens to be set for outbound mail or package mirrors.
type HTTPFeedClient struct {
	endpoints map[string]string
	http      *http.Client
}

// NewHTTPFeedClient builds a client that fetches park_code -> URL from
// endpoints.
func NewHTTPFeedClient(endpoints map[string]string) *HTTPFeedClient {
	return &HTTPFeedClient{
		endpoints: endpoints,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				Proxy: nil,
			},
		},
	}
}

// Fetch implements FeedClient.
func (c *HTTPFeedClient) Fetch(ctx context.Context, parkCode string) ([]RawRecord, error) {
	url, ok := c.endpoints[parkCode]
	if !ok {
		return nil, fmt.Errorf("no live-feed endpoint configured for park_code %q", parkCode)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", parkCode, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch live feed for %s: %w", parkCode, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("live feed for %s returned status %d", parkCode, resp.StatusCode)
	}
	var payload feedPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode live feed for %s: %w", parkCode, err)
	}
	out := make([]RawRecord, 0, len(payload.Rides))
	for _, r := range payload.Rides {
		out = append(out, RawRecord{
			ExternalID:    r.ID,
			ObservedAt:    time.Unix(r.LastUpdated, 0).UTC(),
			PostedMinutes: r.WaitMinutes,
			ActualMinutes: r.ActualMinutes,
			SoldOut:       r.Status == "SOLD_OUT",
		})
	}
	return out, nil
}

// CircuitBreakerClient wraps a FeedClient per park_code with its own
// gobreaker.CircuitBreaker, so one park's failing feed trips open and is
// skipped for a cooldown instead of slowing down or blocking the whole
// poll cycle.
type CircuitBreakerClient struct {
	client   FeedClient
	breakers map[string]*gobreaker.CircuitBreaker[[]RawRecord]
}

// NewCircuitBreakerClient builds one circuit breaker per park_code in
// parkCodes, wrapping client.
func NewCircuitBreakerClient(client FeedClient, parkCodes []string) *CircuitBreakerClient {
	cbc := &CircuitBreakerClient{
		client:   client,
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]RawRecord], len(parkCodes)),
	}
	for _, park := range parkCodes {
		cbc.breakers[park] = newParkBreaker(park)
	}
	return cbc
}

func newParkBreaker(parkCode string) *gobreaker.CircuitBreaker[[]RawRecord] {
	name := "livefeed-" + parkCode
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[[]RawRecord](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(n string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", n).Str("from", stateString(from)).Str("to", stateString(to)).
				Msg("livefeed: circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(n).Set(stateFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(n, stateString(from), stateString(to)).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(n).Set(0)
			}
		},
	})
}

// Fetch runs the park's fetch through its circuit breaker. A park with no
// configured breaker (not in the original parkCodes list) fetches directly.
func (c *CircuitBreakerClient) Fetch(ctx context.Context, parkCode string) ([]RawRecord, error) {
	cb, ok := c.breakers[parkCode]
	if !ok {
		return c.client.Fetch(ctx, parkCode)
	}
	name := "livefeed-" + parkCode
	records, err := cb.Execute(func() ([]RawRecord, error) {
		return c.client.Fetch(ctx, parkCode)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(name, "failure").Inc()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(float64(cb.Counts().ConsecutiveFailures))
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
	return records, nil
}

func stateFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
