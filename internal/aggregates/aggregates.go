// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package aggregates computes and serves posted-wait-time aggregates
// (spec.md §4.7.7): the imputation source for future posted predictions
// and for backfill's missing-POSTED interpolation. One DuckDB database
// under aggregates/ holds the raw reduced rows and five pre-aggregated
// views; Lookup resolves the five-level fallback chain in one query.
package aggregates

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/openwaits/waitcore/internal/cache"
	"github.com/openwaits/waitcore/internal/logging"
	"github.com/openwaits/waitcore/internal/metrics"
)

// lookupCacheTTL bounds how long a Lookup result is reused before the next
// query hits DuckDB again. Build clears the cache outright, so a rebuild is
// always immediately visible regardless of this TTL.
const lookupCacheTTL = 10 * time.Minute

// Store wraps the DuckDB database backing posted aggregates.
type Store struct {
	conn    *sql.DB
	lookups *cache.Cache
}

// Open opens (creating if absent) the DuckDB database file at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create aggregates directory %s: %w", dir, err)
		}
	}
	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb at %s: %w", path, err)
	}
	s := &Store{conn: conn, lookups: cache.New(lookupCacheTTL)}
	if err := s.createSchema(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying DuckDB connection.
func (s *Store) Close() error { return s.conn.Close() }

func (s *Store) createSchema(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS posted_observations (
			entity_code VARCHAR,
			park_code   VARCHAR,
			dategroupid INTEGER,
			hour        INTEGER,
			minutes     INTEGER
		)`)
	if err != nil {
		return fmt.Errorf("create posted_observations table: %w", err)
	}
	return nil
}

// rebuildBatchSize bounds how many rows go into a single multi-row INSERT
// statement during Build, keeping the generated SQL text a manageable size.
const rebuildBatchSize = 1000

// Build replaces the posted-aggregates store's contents with rows: the raw
// reduced table, and the five pre-aggregated fallback views queried by
// Lookup (spec.md §4.7.7's five-level fallback). It is a full rebuild, not
// an incremental update — callers re-scan the whole fact store with
// ScanFactStore first.
func (s *Store) Build(ctx context.Context, rows []PostedRow) (err error) {
	buildStart := time.Now()
	defer func() {
		metrics.RecordDBQuery("aggregates", "build", time.Since(buildStart), err)
		if err == nil {
			metrics.RecordAggregatesBuild(time.Since(buildStart), len(rows))
		}
	}()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin aggregates rebuild transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	if _, err := tx.ExecContext(ctx, "DELETE FROM posted_observations"); err != nil {
		return fmt.Errorf("clear posted_observations: %w", err)
	}

	for start := 0; start < len(rows); start += rebuildBatchSize {
		end := start + rebuildBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := insertBatch(ctx, tx, rows[start:end]); err != nil {
			return fmt.Errorf("insert posted_observations rows %d-%d: %w", start, end, err)
		}
	}

	for _, stmt := range aggregateViewStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rebuild aggregate view: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit aggregates rebuild: %w", err)
	}
	s.lookups.Clear()
	logging.Info().Int("rows", len(rows)).Msg("aggregates: posted aggregates rebuilt")
	return nil
}

// lookupResult is what Lookup caches per key, since the cache is typed as
// interface{} and a bare ok=false must be distinguishable from a cache miss.
type lookupResult struct {
	value float64
	ok    bool
}

func insertBatch(ctx context.Context, tx *sql.Tx, rows []PostedRow) error {
	placeholders := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*5)
	for _, r := range rows {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?)")
		args = append(args, r.EntityCode, r.ParkCode, r.DateGroupID, r.Hour, r.Minutes)
	}
	query := fmt.Sprintf(
		"INSERT INTO posted_observations (entity_code, park_code, dategroupid, hour, minutes) VALUES %s",
		joinPlaceholders(placeholders),
	)
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func joinPlaceholders(placeholders []string) string {
	out := placeholders[0]
	for _, p := range placeholders[1:] {
		out += ", " + p
	}
	return out
}

// aggregateViewStatements rebuilds the five fallback levels of spec.md
// §4.7.7 as materialized tables over posted_observations.
var aggregateViewStatements = []string{
	`CREATE OR REPLACE TABLE agg_entity_dategroup_hour AS
		SELECT entity_code, dategroupid, hour, median(minutes) AS median_wait
		FROM posted_observations GROUP BY entity_code, dategroupid, hour`,
	`CREATE OR REPLACE TABLE agg_entity_dategroup AS
		SELECT entity_code, dategroupid, median(minutes) AS median_wait
		FROM posted_observations GROUP BY entity_code, dategroupid`,
	`CREATE OR REPLACE TABLE agg_entity_hour AS
		SELECT entity_code, hour, median(minutes) AS median_wait
		FROM posted_observations GROUP BY entity_code, hour`,
	`CREATE OR REPLACE TABLE agg_entity AS
		SELECT entity_code, median(minutes) AS median_wait
		FROM posted_observations GROUP BY entity_code`,
	`CREATE OR REPLACE TABLE agg_park_hour AS
		SELECT park_code, hour, median(minutes) AS median_wait
		FROM posted_observations GROUP BY park_code, hour`,
}

// Lookup resolves spec.md §4.7.7's five-level posted-aggregate fallback for
// one (entity_code, park_code, dategroupid, hour) in a single query:
//  1. (entity, dategroupid, hour)
//  2. (entity, dategroupid) median across hours
//  3. (entity, hour) median across dategroupids
//  4. (entity) median across all
//  5. (park_code, hour) park-level median
//
// ok is false only if none of the five levels has any data at all for this
// entity/park.
func (s *Store) Lookup(ctx context.Context, entityCode, parkCode string, dategroupID, hour int) (value float64, ok bool, err error) {
	key := cache.GenerateKey("aggregates.Lookup", []interface{}{entityCode, parkCode, dategroupID, hour})
	if cached, found := s.lookups.Get(key); found {
		r := cached.(lookupResult)
		return r.value, r.ok, nil
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("aggregates", "lookup", time.Since(start), err) }()

	const query = `
		SELECT COALESCE(
			(SELECT median_wait FROM agg_entity_dategroup_hour WHERE entity_code = ? AND dategroupid = ? AND hour = ?),
			(SELECT median_wait FROM agg_entity_dategroup WHERE entity_code = ? AND dategroupid = ?),
			(SELECT median_wait FROM agg_entity_hour WHERE entity_code = ? AND hour = ?),
			(SELECT median_wait FROM agg_entity WHERE entity_code = ?),
			(SELECT median_wait FROM agg_park_hour WHERE park_code = ? AND hour = ?)
		)`
	var result sql.NullFloat64
	row := s.conn.QueryRowContext(ctx, query,
		entityCode, dategroupID, hour,
		entityCode, dategroupID,
		entityCode, hour,
		entityCode,
		parkCode, hour,
	)
	if err := row.Scan(&result); err != nil {
		return 0, false, fmt.Errorf("lookup posted aggregate for %s: %w", entityCode, err)
	}
	if !result.Valid {
		s.lookups.Set(key, lookupResult{})
		return 0, false, nil
	}
	s.lookups.Set(key, lookupResult{value: result.Float64, ok: true})
	return result.Float64, true, nil
}
