// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package curves

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/openwaits/waitcore/internal/metrics"
)

// Store is the DuckDB-backed columnar store forecast, backfill, and WTI
// curve output is written to and served from (SPEC_FULL.md's curve-output
// dependency table entry for duckdb-go).
type Store struct {
	conn *sql.DB
}

// OpenStore opens (creating if absent) the DuckDB database file at path
// and ensures its schema exists.
func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create curves directory %s: %w", dir, err)
		}
	}
	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb at %s: %w", path, err)
	}
	s := &Store{conn: conn}
	if err := s.createSchema(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying DuckDB connection.
func (s *Store) Close() error { return s.conn.Close() }

func (s *Store) createSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS forecast (
			entity_code VARCHAR, park_date DATE, time_slot TIMESTAMP,
			actual_predicted DOUBLE, posted_predicted DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS backfill (
			entity_code VARCHAR, park_date DATE, time_slot TIMESTAMP,
			actual DOUBLE, source VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS wti (
			park_code VARCHAR, park_date DATE, time_slot TIMESTAMP,
			wti DOUBLE, n_entities INTEGER, min_actual DOUBLE, max_actual DOUBLE
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create curves schema: %w", err)
		}
	}
	return nil
}

// WriteForecast replaces entityCode's forecast rows for parkDate.
func (s *Store) WriteForecast(ctx context.Context, entityCode string, parkDate time.Time, rows []ForecastRow) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("curves", "write_forecast", time.Since(start), err) }()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin forecast write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM forecast WHERE entity_code = ? AND park_date = ?`, entityCode, parkDate); err != nil {
		return fmt.Errorf("clear forecast partition for %s on %s: %w", entityCode, parkDate, err)
	}
	for _, r := range rows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO forecast (entity_code, park_date, time_slot, actual_predicted, posted_predicted) VALUES (?, ?, ?, ?, ?)`,
			r.EntityCode, r.ParkDate, r.TimeSlot, nullable(r.ActualPredicted), nullable(r.PostedPredicted))
		if err != nil {
			return fmt.Errorf("insert forecast row for %s at %s: %w", entityCode, r.TimeSlot, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit forecast write for %s: %w", entityCode, err)
	}
	return nil
}

// WriteBackfill replaces entityCode's backfill rows for parkDate.
func (s *Store) WriteBackfill(ctx context.Context, entityCode string, parkDate time.Time, rows []BackfillRow) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("curves", "write_backfill", time.Since(start), err) }()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin backfill write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM backfill WHERE entity_code = ? AND park_date = ?`, entityCode, parkDate); err != nil {
		return fmt.Errorf("clear backfill partition for %s on %s: %w", entityCode, parkDate, err)
	}
	for _, r := range rows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO backfill (entity_code, park_date, time_slot, actual, source) VALUES (?, ?, ?, ?, ?)`,
			r.EntityCode, r.ParkDate, r.TimeSlot, nullable(r.Actual), string(r.Source))
		if err != nil {
			return fmt.Errorf("insert backfill row for %s at %s: %w", entityCode, r.TimeSlot, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit backfill write for %s: %w", entityCode, err)
	}
	return nil
}

// WriteWTI replaces parkCode's WTI rows for parkDate.
func (s *Store) WriteWTI(ctx context.Context, parkCode string, parkDate time.Time, rows []WTIRow) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("curves", "write_wti", time.Since(start), err) }()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin wti write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM wti WHERE park_code = ? AND park_date = ?`, parkCode, parkDate); err != nil {
		return fmt.Errorf("clear wti partition for %s on %s: %w", parkCode, parkDate, err)
	}
	for _, r := range rows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO wti (park_code, park_date, time_slot, wti, n_entities, min_actual, max_actual) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ParkCode, r.ParkDate, r.TimeSlot, r.WTI, r.NEntities, r.MinActual, r.MaxActual)
		if err != nil {
			return fmt.Errorf("insert wti row for %s at %s: %w", parkCode, r.TimeSlot, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit wti write for %s: %w", parkCode, err)
	}
	return nil
}

// nullable converts a possibly-nil float pointer into a driver value that
// binds to NULL, rather than panicking on a typed nil *float64.
func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
