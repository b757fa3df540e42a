// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package dedup

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/entityindex"
)

// Gate implements canonical.Gate over a single shared Badger DB, so a
// bucket's dedup admission and its entity-index upsert commit as one
// transaction — the "logical transaction" spec.md §5 requires: the
// entity-index upsert for a batch is only durable once the batch's dedup
// keys are too, and vice versa.
type Gate struct {
	db *badger.DB
}

// NewGate opens the shared Badger DB at path used by both the dedup set
// and the entity index for the fact store.
func NewGate(path string) (*Gate, func() error, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("open fact dedup+index db at %s: %w", path, err)
	}
	return &Gate{db: db}, db.Close, nil
}

// Admit implements canonical.Gate.
func (g *Gate) Admit(ctx context.Context, _ canonical.Bucket, rows []canonical.Observation) ([]canonical.Observation, error) {
	var admitted []canonical.Observation
	err := g.db.Update(func(txn *badger.Txn) error {
		var err error
		admitted, err = admitTxn(txn, rows)
		if err != nil {
			return err
		}
		if len(admitted) == 0 {
			return nil
		}
		return entityindex.RecordBatchTxn(txn, admitted)
	})
	if err != nil {
		return nil, fmt.Errorf("fact gate admit: %w", err)
	}
	return admitted, nil
}

// Index returns an entityindex.Index sharing this Gate's DB, for read paths
// (ListForModeling, Get, MarkModeled) that don't need dedup at all.
func (g *Gate) Index() *entityindex.Index {
	return entityindex.OpenShared(g.db)
}
