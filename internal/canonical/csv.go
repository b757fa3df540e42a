// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package canonical

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// timeLayout always renders a numeric zone offset, never the "Z" shorthand
// RFC3339's default layout substitutes for a zero offset (spec.md §3:
// "never a Z suffix").
const timeLayout = "2006-01-02T15:04:05-07:00"

// Header is the canonical CSV header row, shared by fact/ and staging/
// files.
var Header = []string{"entity_code", "observed_at", "wait_time_type", "wait_time_minutes"}

// FormatObservedAt renders t in the canonical wire format.
func FormatObservedAt(t time.Time) string {
	return t.Format(timeLayout)
}

// ParseObservedAt parses the canonical wire format (explicit numeric
// offset). Input that does not match it is retried as RFC3339, so a bare
// "Z" suffix is accepted on read; FormatObservedAt never writes one.
func ParseObservedAt(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Fall back to RFC3339 for tolerance of external staged/legacy data
		// that may have been written with the Z-permitting layout.
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse observed_at %q: %w", s, err)
		}
	}
	return t, nil
}

// EncodeRow renders o as a CSV record.
func EncodeRow(o Observation) []string {
	return []string{
		o.EntityCode,
		FormatObservedAt(o.ObservedAt),
		string(o.WaitTimeType),
		strconv.Itoa(o.WaitTimeMinutes),
	}
}

// DecodeRow parses a CSV record into an Observation.
func DecodeRow(row []string) (Observation, error) {
	if len(row) != 4 {
		return Observation{}, fmt.Errorf("expected 4 columns, got %d", len(row))
	}
	t, err := ParseObservedAt(row[1])
	if err != nil {
		return Observation{}, err
	}
	minutes, err := strconv.Atoi(row[3])
	if err != nil {
		return Observation{}, fmt.Errorf("parse wait_time_minutes %q: %w", row[3], err)
	}
	return Observation{
		EntityCode:      row[0],
		ObservedAt:      t,
		WaitTimeType:    WaitTimeType(row[2]),
		WaitTimeMinutes: minutes,
	}, nil
}

// WriteCSV writes header + rows (in the given order) to w.
func WriteCSV(w io.Writer, rows []Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, o := range rows {
		if err := cw.Write(EncodeRow(o)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// RowScanner reads a canonical CSV file one row at a time, for callers (the
// entity index's k-way merge) that need to hold many files open at once
// without loading each one fully into memory.
type RowScanner struct {
	cr *csv.Reader
}

// NewRowScanner opens a scanner over r, consuming and validating the header.
func NewRowScanner(r io.Reader) (*RowScanner, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return &RowScanner{cr: cr}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(Header) {
		return nil, fmt.Errorf("unexpected header %v", header)
	}
	return &RowScanner{cr: cr}, nil
}

// Next returns the next row, or ok=false at EOF.
func (s *RowScanner) Next() (Observation, bool, error) {
	row, err := s.cr.Read()
	if err == io.EOF {
		return Observation{}, false, nil
	}
	if err != nil {
		return Observation{}, false, fmt.Errorf("read row: %w", err)
	}
	obs, err := DecodeRow(row)
	if err != nil {
		return Observation{}, false, err
	}
	return obs, true, nil
}

// ReadCSV reads a full canonical CSV file (header + rows) from r.
func ReadCSV(r io.Reader) ([]Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(Header) {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	var out []Observation
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		obs, err := DecodeRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, nil
}
