// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package modeling

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/openwaits/waitcore/internal/regressor"
	"github.com/openwaits/waitcore/internal/statestore"
)

// LoadedVariant is one variant read back from models/{entity_code}/,
// paired with the metadata Persist wrote alongside it.
type LoadedVariant struct {
	Model    regressor.Model
	Metadata VariantMetadata
}

// LoadVariant reads back the artifact and metadata Persist wrote for
// entityCode's variant. ok is false, with no error, when the entity has
// never been trained with this variant at all — curve generation treats
// that as "fall through to the next candidate variant" rather than a
// failure.
func LoadVariant(root *statestore.Root, entityCode string, variant Variant, sl regressor.SaveLoad) (LoadedVariant, bool, error) {
	dir := filepath.Join(root.ModelsDir(), entityCode)
	metaPath := filepath.Join(dir, string(variant)+"_metadata.json")
	data, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return LoadedVariant{}, false, nil
	}
	if err != nil {
		return LoadedVariant{}, false, fmt.Errorf("read metadata for %s variant %s: %w", entityCode, variant, err)
	}
	var meta VariantMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return LoadedVariant{}, false, fmt.Errorf("unmarshal metadata for %s variant %s: %w", entityCode, variant, err)
	}

	artifactPath := filepath.Join(dir, string(variant)+".json")
	m, err := sl.Load(artifactPath)
	if err != nil {
		return LoadedVariant{}, false, fmt.Errorf("load model for %s variant %s: %w", entityCode, variant, err)
	}
	return LoadedVariant{Model: m, Metadata: meta}, true, nil
}
