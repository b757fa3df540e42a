// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package entityindex

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/logging"
)

var keyPrefix = []byte("entity:")

func recordKey(entityCode string) []byte {
	return append(append([]byte{}, keyPrefix...), entityCode...)
}

// Index is a Badger-backed store of one Record per entity.
type Index struct {
	db     *badger.DB
	ownsDB bool
}

// Open opens (creating if absent) a Badger DB at path dedicated to the
// entity index.
func Open(path string) (*Index, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open entity index at %s: %w", path, err)
	}
	return &Index{db: db, ownsDB: true}, nil
}

// OpenShared wraps a Badger DB owned by a caller (e.g. the canonical
// writer's dedup+index Gate, which needs the dedup keys and entity records
// committed in the same transaction). Close is then a no-op for the DB
// itself.
func OpenShared(db *badger.DB) *Index {
	return &Index{db: db}
}

// DB exposes the underlying handle so a combiner (internal/dedup's Gate)
// can enlist entity-index writes in its own transaction.
func (idx *Index) DB() *badger.DB { return idx.db }

// Close releases the DB if this Index opened it itself.
func (idx *Index) Close() error {
	if idx.ownsDB {
		return idx.db.Close()
	}
	return nil
}

func getRecord(txn *badger.Txn, entityCode string) (Record, bool, error) {
	item, err := txn.Get(recordKey(entityCode))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var rec Record
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func putRecord(txn *badger.Txn, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return txn.Set(recordKey(rec.EntityCode), data)
}

// RecordBatchTxn upserts the summary rows for rows within an
// already-open Badger transaction, letting a caller (the canonical
// writer's Gate) commit entity-index updates atomically with dedup-set
// writes.
func RecordBatchTxn(txn *badger.Txn, rows []canonical.Observation) error {
	byEntity := make(map[string][]canonical.Observation, len(rows))
	for _, o := range rows {
		byEntity[o.EntityCode] = append(byEntity[o.EntityCode], o)
	}
	for entityCode, obs := range byEntity {
		rec, found, err := getRecord(txn, entityCode)
		if err != nil {
			return fmt.Errorf("read entity record %s: %w", entityCode, err)
		}
		if !found {
			rec = Record{
				SchemaVersion:   schemaVersion,
				EntityCode:      entityCode,
				ParkCode:        canonical.ParkCodeOf(entityCode),
				FirstObservedAt: obs[0].ObservedAt,
			}
		}
		for _, o := range obs {
			if rec.FirstObservedAt.IsZero() || o.ObservedAt.Before(rec.FirstObservedAt) {
				rec.FirstObservedAt = o.ObservedAt
			}
			if o.ObservedAt.After(rec.LastObservedAt) {
				rec.LastObservedAt = o.ObservedAt
			}
		}
		rec.ObservationCount += int64(len(obs))
		if err := putRecord(txn, rec); err != nil {
			return fmt.Errorf("write entity record %s: %w", entityCode, err)
		}
	}
	return nil
}

// RecordBatch upserts summary rows in its own transaction. Use
// RecordBatchTxn instead when the caller already holds a transaction that
// must commit atomically with other writes.
func (idx *Index) RecordBatch(rows []canonical.Observation) error {
	return idx.db.Update(func(txn *badger.Txn) error {
		return RecordBatchTxn(txn, rows)
	})
}

// MarkModeled stamps an entity's LastModeledAt.
func (idx *Index) MarkModeled(entityCode string, at time.Time) error {
	return idx.db.Update(func(txn *badger.Txn) error {
		rec, found, err := getRecord(txn, entityCode)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("mark modeled: entity %s not in index", entityCode)
		}
		rec.LastModeledAt = at
		return putRecord(txn, rec)
	})
}

// Get returns one entity's record.
func (idx *Index) Get(entityCode string) (Record, bool, error) {
	var rec Record
	var found bool
	err := idx.db.View(func(txn *badger.Txn) error {
		r, f, err := getRecord(txn, entityCode)
		rec, found = r, f
		return err
	})
	return rec, found, err
}

// ListForModeling yields every entity whose LastObservedAt is at least
// minAgeHours old and whose ObservationCount is at least minObs — the
// candidate set the training batch orchestrator iterates.
func (idx *Index) ListForModeling(minAgeHours float64, minObs int64) iter.Seq[string] {
	now := time.Now()
	return func(yield func(string) bool) {
		err := idx.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = keyPrefix
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Rewind(); it.Valid(); it.Next() {
				var rec Record
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &rec)
				})
				if err != nil {
					logging.Warn().Err(err).Msg("entityindex: skipping unreadable record during ListForModeling scan")
					continue
				}
				if rec.ObservationCount < minObs {
					continue
				}
				if rec.AgeHours(now) < minAgeHours {
					continue
				}
				if !yield(rec.EntityCode) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			logging.Error().Err(err).Msg("entityindex: ListForModeling scan failed")
		}
	}
}

// All yields every entity record in the index, in key (entity_code) order.
// Curve generation (forecast/backfill/WTI) uses this to enumerate every
// entity belonging to a park, rather than only those due for training.
func (idx *Index) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		err := idx.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = keyPrefix
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Rewind(); it.Valid(); it.Next() {
				var rec Record
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &rec)
				})
				if err != nil {
					if !yield(Record{}, err) {
						return nil
					}
					continue
				}
				if !yield(rec, nil) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(Record{}, err)
		}
	}
}

// Rebuild discards and recomputes every record from a full scan of the fact
// store, used after a schema bump or index corruption.
func Rebuild(idx *Index, factDir string) error {
	rows, err := scanFactDir(factDir)
	if err != nil {
		return fmt.Errorf("rebuild entity index: %w", err)
	}
	return idx.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			k := make([]byte, len(it.Item().Key()))
			copy(k, it.Item().Key())
			keys = append(keys, k)
		}
		it.Close()
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return RecordBatchTxn(txn, rows)
	})
}
