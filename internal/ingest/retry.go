// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package ingest

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy carries the exponential backoff ingest uses for transient
// I/O errors: three attempts total, waiting 1s then 2s between them
// (spec.md §4.2 step 7).
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy is spec.md's fixed schedule: max 3 attempts, with
// 1s and 2s waits between them.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     3,
	InitialInterval: time.Second,
	Multiplier:      2,
}

// newBackOff builds a deterministic (no jitter) exponential backoff bounded
// to MaxAttempts-1 retries after the first attempt.
func (p RetryPolicy) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.Multiplier = p.Multiplier
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	if p.MaxAttempts <= 1 {
		return &backoff.StopBackOff{}
	}
	return backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1))
}

// Retry runs op under p's schedule, retrying only when op returns a
// transient error (isTransient). Any other error, or exhaustion of the
// schedule, is returned immediately. onRetry, if non-nil, is called once per
// retry (not for the first attempt).
func Retry(op func() error, isTransient func(error) bool, policy RetryPolicy, onRetry ...func(error)) error {
	notify := func(error, time.Duration) {}
	if len(onRetry) > 0 && onRetry[0] != nil {
		cb := onRetry[0]
		notify = func(err error, _ time.Duration) { cb(err) }
	}
	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy.newBackOff(), notify)
}
