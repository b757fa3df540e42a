// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package statusapi

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/openwaits/waitcore/internal/logging"
)

// response is the envelope every statusapi endpoint returns. It mirrors
// the status/data/metadata/error shape of a conventional JSON API
// response without pulling in any write-path or auth concerns — this
// surface is read-only and unauthenticated by design (SPEC_FULL.md §4:
// an internal monitoring view, not a public API).
type response struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata metadata    `json:"metadata"`
	Error    *apiError   `json:"error,omitempty"`
}

type metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	body, err := json.Marshal(&response{
		Status:   "success",
		Data:     data,
		Metadata: metadata{Timestamp: time.Now().UTC()},
	})
	if err != nil {
		logging.Error().Err(err).Msg("marshal status api response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Error().Err(err).Msg("write status api response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	body, err := json.Marshal(&response{
		Status:   "error",
		Metadata: metadata{Timestamp: time.Now().UTC()},
		Error:    &apiError{Code: code, Message: message},
	})
	if err != nil {
		logging.Error().Err(err).Msg("marshal status api error response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Error().Err(err).Msg("write status api error response")
	}
}
