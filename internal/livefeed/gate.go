// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package livefeed

import (
	"context"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/dedup"
)

// dedupGate adapts a dedup.Set to canonical.Gate for the live-staging
// Writer. Unlike the fact-store Gate (internal/dedup.Gate), it has no
// entity-index side: the live poller only needs repeat-poll absorption,
// and entity-index upserts happen once for real at the Morning Merge when
// a staged row becomes a canonical fact.
type dedupGate struct {
	set *dedup.Set
}

func newDedupGate(set *dedup.Set) *dedupGate {
	return &dedupGate{set: set}
}

// Admit implements canonical.Gate.
func (g *dedupGate) Admit(_ context.Context, _ canonical.Bucket, rows []canonical.Observation) ([]canonical.Observation, error) {
	return g.set.Admit(rows)
}
