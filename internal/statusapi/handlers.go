// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package statusapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/openwaits/waitcore/internal/statestore"
)

// Handler serves the read-only monitoring endpoints described in
// SPEC_FULL.md §6.1: a view of state/pipeline_status.json for the
// external dashboard to poll, plus a liveness check for the process
// itself.
type Handler struct {
	root      *statestore.Root
	startedAt time.Time
}

// NewHandler creates a Handler reading pipeline status from root.
func NewHandler(root *statestore.Root) *Handler {
	return &Handler{root: root, startedAt: time.Now()}
}

// Status handles GET /status, returning the current PipelineStatus
// snapshot. A status file that hasn't been written yet (no pipeline
// run has started) is reported as 200 with a nil data field rather
// than an error, since "no run yet" is a normal state for a freshly
// provisioned deployment.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := statestore.ReadStatus(h.root)
	if err != nil {
		if errors.Is(err, statestore.ErrNotFound) {
			respondJSON(w, http.StatusOK, nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "STATUS_READ_FAILED", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// Healthz handles GET /healthz, a liveness probe that reports the
// process is up regardless of pipeline state.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startedAt).Seconds(),
	})
}
