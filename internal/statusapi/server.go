// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package statusapi exposes state/pipeline_status.json read-only over
// HTTP for the external monitoring dashboard (SPEC_FULL.md §4, §6.1).
// It is intentionally small: two GET endpoints, no auth, no write
// operations — the dashboard renderer itself stays external.
package statusapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/openwaits/waitcore/internal/middleware"
	"github.com/openwaits/waitcore/internal/statestore"
)

// Config configures the status API server.
type Config struct {
	// Addr is the listen address, e.g. ":8090".
	Addr string

	// AllowedOrigins is the CORS allow-list for the status dashboard's
	// origin. Empty means no cross-origin access is permitted.
	AllowedOrigins []string
}

// NewServer builds the chi-routed *http.Server for the status API,
// reading pipeline status from root.
func NewServer(root *statestore.Root, cfg Config) *http.Server {
	handler := NewHandler(root)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet},
			MaxAge:         300,
		}))
	}

	r.Get("/status", handler.Status)
	r.Get("/healthz", handler.Healthz)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
