// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package dedup

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/openwaits/waitcore/internal/canonical"
)

// Set is a Badger-backed set of the observation 4-tuple keys already seen.
// Two independent key sets are used in practice (spec.md §5/§9): one in
// the state directory's fact_index.badger, shared with the entity index
// through Gate, backing the Canonical Writer's per-batch admission check,
// and one in state/live_dedup.badger scoped to the live-feed poller's
// repeat-poll absorption.
type Set struct {
	db     *badger.DB
	ownsDB bool
}

// Open opens (creating if absent) a Badger DB at path dedicated to a dedup
// set.
func Open(path string) (*Set, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open dedup set at %s: %w", path, err)
	}
	return &Set{db: db, ownsDB: true}, nil
}

// OpenShared wraps a Badger DB a caller already owns, so dedup keys and
// other state can be committed in one transaction.
func OpenShared(db *badger.DB) *Set {
	return &Set{db: db}
}

// DB exposes the underlying handle for combiners that need to enlist dedup
// writes in a larger transaction (see Gate).
func (s *Set) DB() *badger.DB { return s.db }

// Close releases the DB if this Set opened it itself.
func (s *Set) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// Contains reports whether o's key is already recorded.
func (s *Set) Contains(o canonical.Observation) (bool, error) {
	key, err := Key(o)
	if err != nil {
		return false, err
	}
	var found bool
	err = s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// Admit filters rows down to the ones not already in the set, recording
// the survivors as seen in the same transaction. It has no opinion on
// entity-index bookkeeping — use Gate when both must commit together.
func (s *Set) Admit(rows []canonical.Observation) ([]canonical.Observation, error) {
	var admitted []canonical.Observation
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		admitted, err = admitTxn(txn, rows)
		return err
	})
	return admitted, err
}

func admitTxn(txn *badger.Txn, rows []canonical.Observation) ([]canonical.Observation, error) {
	admitted := make([]canonical.Observation, 0, len(rows))
	for _, o := range rows {
		key, err := Key(o)
		if err != nil {
			return nil, err
		}
		_, err = txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			if err := txn.Set(key, nil); err != nil {
				return nil, fmt.Errorf("record dedup key: %w", err)
			}
			admitted = append(admitted, o)
		case err == nil:
			// already seen, drop silently
		default:
			return nil, fmt.Errorf("check dedup key: %w", err)
		}
	}
	return admitted, nil
}
