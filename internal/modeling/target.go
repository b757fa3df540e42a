// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package modeling is the per-entity training pipeline (C7): target
// selection, feature construction, encoding, the train/mean-fallback
// decision, and batch orchestration across the work list C6 produces.
package modeling

import (
	"fmt"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/dims"
)

// SelectTarget picks the modeling target type for an entity: PRIORITY for
// entities with a paid/virtual priority queue, ACTUAL otherwise. POSTED is
// never a target — it is a covariate for ACTUAL targets and absent
// entirely for PRIORITY targets (spec.md §4.7.1).
func SelectTarget(entityCode string, ed dims.EntityDimension) (canonical.WaitTimeType, error) {
	hasPriority, err := ed.HasPriorityQueue(entityCode)
	if err != nil {
		return "", fmt.Errorf("resolve has_priority_queue for %s: %w", entityCode, err)
	}
	if hasPriority {
		return canonical.Priority, nil
	}
	return canonical.Actual, nil
}

// UsesPostedCovariate reports whether target's feature set includes the
// posted-wait-time series as a covariate.
func UsesPostedCovariate(target canonical.WaitTimeType) bool {
	return target == canonical.Actual
}
