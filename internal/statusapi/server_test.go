// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package statusapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openwaits/waitcore/internal/statestore"
)

func TestServerRoutesStatusAndHealthz(t *testing.T) {
	t.Parallel()

	root, err := statestore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	server := NewServer(root, Config{Addr: ":0"})
	handler, ok := server.Handler.(http.Handler)
	if !ok {
		t.Fatal("server.Handler does not implement http.Handler")
	}

	ts := httptest.NewServer(handler)
	defer ts.Close()

	for _, path := range []string{"/status", "/healthz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestServerRejectsUnknownRoute(t *testing.T) {
	t.Parallel()

	root, err := statestore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	server := NewServer(root, Config{Addr: ":0"})
	ts := httptest.NewServer(server.Handler.(http.Handler))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/unknown")
	if err != nil {
		t.Fatalf("GET /unknown: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /unknown status = %d, want 404", resp.StatusCode)
	}
}
