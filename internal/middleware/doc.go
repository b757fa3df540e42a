// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package middleware provides HTTP middleware for the status API
// (internal/statusapi). PrometheusMetrics wraps a chi handler to record
// request count, duration, and in-flight gauges to internal/metrics,
// alongside chi's own RequestID/RealIP/Recoverer/CORS middleware.
package middleware
