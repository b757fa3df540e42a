// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package statestore

import (
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"
)

// ProcessedCatalog tracks the source-object marker (last-modified) recorded
// at the time each source key was last successfully processed. A key is
// considered processed iff its catalog entry equals the source's current
// marker (spec.md §3 "Processed-file catalog").
type ProcessedCatalog struct {
	path string
	mu   sync.Mutex
	data map[string]string // source key -> source marker
}

// LoadProcessedCatalog loads state/processed_files.json, starting empty if
// it does not exist yet.
func LoadProcessedCatalog(r *Root) (*ProcessedCatalog, error) {
	path := r.StatePath("processed_files.json")
	c := &ProcessedCatalog{path: path, data: map[string]string{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read processed catalog: %w", err)
	}
	if err := json.Unmarshal(raw, &c.data); err != nil {
		return nil, fmt.Errorf("parse processed catalog: %w", err)
	}
	return c, nil
}

// IsProcessed reports whether key's catalog marker matches currentMarker.
func (c *ProcessedCatalog) IsProcessed(key, currentMarker string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	marker, ok := c.data[key]
	return ok && marker == currentMarker
}

// Mark records key as processed as of marker and persists the catalog.
// A file must only be marked after its rows have been committed to the
// canonical store and the dedup set (spec.md invariant I5).
func (c *ProcessedCatalog) Mark(key, marker string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = marker
	return c.flushLocked()
}

// Clear removes full-rebuild state, discarding all recorded markers.
func (c *ProcessedCatalog) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = map[string]string{}
	return c.flushLocked()
}

func (c *ProcessedCatalog) flushLocked() error {
	data, err := json.Marshal(c.data)
	if err != nil {
		return fmt.Errorf("marshal processed catalog: %w", err)
	}
	return WriteAtomic(c.path, data, 0o640)
}
