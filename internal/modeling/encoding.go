// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package modeling

import (
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"github.com/openwaits/waitcore/internal/statestore"
)

// EncodingMap is the persistent integer label map for categorical
// features (spec.md §4.7.3): state/encoding_mappings.json. It is
// append-only — an unknown category at encode time mints a new ID and is
// persisted, but an existing mapping is never rewritten, so a model
// trained against an older snapshot of the map still decodes correctly.
type EncodingMap struct {
	path string
	mu   sync.Mutex
	// categories maps feature name -> category value -> integer ID.
	categories map[string]map[string]int
	// next tracks the next ID to mint per feature name.
	next map[string]int
}

type encodingFile struct {
	Categories map[string]map[string]int `json:"categories"`
}

// LoadEncodingMap reads state/encoding_mappings.json, creating a fresh
// empty map if it does not yet exist.
func LoadEncodingMap(root *statestore.Root) (*EncodingMap, error) {
	path := root.StatePath("encoding_mappings.json")
	m := &EncodingMap{
		path:       path,
		categories: map[string]map[string]int{},
		next:       map[string]int{},
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("read encoding map: %w", err)
	}
	var f encodingFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse encoding map: %w", err)
	}
	m.categories = f.Categories
	if m.categories == nil {
		m.categories = map[string]map[string]int{}
	}
	for feature, ids := range m.categories {
		max := -1
		for _, id := range ids {
			if id > max {
				max = id
			}
		}
		m.next[feature] = max + 1
	}
	return m, nil
}

// Encode returns value's integer ID for feature, minting and persisting a
// new one if value hasn't been seen before for that feature.
func (m *EncodingMap) Encode(feature, value string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids, ok := m.categories[feature]
	if !ok {
		ids = map[string]int{}
		m.categories[feature] = ids
	}
	if id, ok := ids[value]; ok {
		return id, nil
	}
	id := m.next[feature]
	ids[value] = id
	m.next[feature] = id + 1

	if err := m.persistLocked(); err != nil {
		// Roll back the in-memory mint so a transient write failure
		// doesn't leave a category "encoded" that was never durably
		// recorded.
		delete(ids, value)
		m.next[feature] = id
		return 0, err
	}
	return id, nil
}

func (m *EncodingMap) persistLocked() error {
	data, err := json.Marshal(encodingFile{Categories: m.categories})
	if err != nil {
		return fmt.Errorf("marshal encoding map: %w", err)
	}
	return statestore.WriteAtomic(m.path, data, 0o640)
}
