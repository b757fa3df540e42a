// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package statusapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openwaits/waitcore/internal/statestore"
)

func openTestRoot(t *testing.T) *statestore.Root {
	t.Helper()
	root, err := statestore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return root
}

func TestHandlerStatus_NoRunYet(t *testing.T) {
	t.Parallel()

	handler := NewHandler(openTestRoot(t))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	handler.Status(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status() code = %d, want 200", w.Code)
	}

	var body response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Status != "success" {
		t.Errorf("Status field = %q, want success", body.Status)
	}
	if body.Data != nil {
		t.Errorf("Data = %v, want nil when no pipeline run has started", body.Data)
	}
}

func TestHandlerStatus_WithWrittenStatus(t *testing.T) {
	t.Parallel()

	root := openTestRoot(t)
	writer := statestore.NewStatusWriter(root)
	if err := writer.SetStep("ingest", statestore.StepRunning); err != nil {
		t.Fatalf("SetStep() error = %v", err)
	}
	if err := writer.SetProgress("entity-1", 1, 10); err != nil {
		t.Fatalf("SetProgress() error = %v", err)
	}

	handler := NewHandler(root)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	handler.Status(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status() code = %d, want 200", w.Code)
	}

	var body struct {
		Data statestore.PipelineStatus `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Data.Steps["ingest"] != statestore.StepRunning {
		t.Errorf("Steps[ingest] = %q, want running", body.Data.Steps["ingest"])
	}
	if body.Data.CurrentEntity != "entity-1" || body.Data.EntitiesTotal != 10 {
		t.Errorf("progress fields not reflected: %+v", body.Data)
	}
}

func TestHandlerHealthz(t *testing.T) {
	t.Parallel()

	handler := NewHandler(openTestRoot(t))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handler.Healthz(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Healthz() code = %d, want 200", w.Code)
	}

	var body struct {
		Data struct {
			Alive bool `json:"alive"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !body.Data.Alive {
		t.Error("expected alive=true")
	}
}
