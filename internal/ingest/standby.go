// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/errs"
)

// Documented standby source schema columns.
const (
	colEntityCode = "entity_code"
	colObservedAt = "observed_at"
	colPosted     = "posted_wait_minutes"
	colActual     = "actual_wait_minutes"
)

type standbyParser struct {
	source string
	cr     *csv.Reader
	loc    *time.Location
	idx    map[string]int
	row    int
}

func newStandbyParser(source string, r io.Reader, loc *time.Location) (*standbyParser, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, errs.New(errs.KindParse, source, fmt.Errorf("read standby header: %w", err))
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{colEntityCode, colObservedAt} {
		if _, ok := idx[required]; !ok {
			return nil, errs.New(errs.KindParse, source, fmt.Errorf("standby source missing required column %q", required))
		}
	}
	if _, ok := idx[colPosted]; !ok {
		if _, ok := idx[colActual]; !ok {
			return nil, errs.New(errs.KindParse, source, fmt.Errorf("standby source has neither %q nor %q column", colPosted, colActual))
		}
	}
	return &standbyParser{source: source, cr: cr, loc: loc, idx: idx}, nil
}

func (p *standbyParser) ParseChunk(chunkSize int) (ParseResult, bool, error) {
	var result ParseResult
	read := 0
	for read < chunkSize {
		rec, err := p.cr.Read()
		if err == io.EOF {
			return result, false, nil
		}
		if err != nil {
			return result, false, errs.New(errs.KindParse, p.source, fmt.Errorf("read row: %w", err))
		}
		p.row++
		read++

		entityCode := strings.ToUpper(strings.TrimSpace(field(rec, p.idx, colEntityCode)))
		observedStr := field(rec, p.idx, colObservedAt)
		observedAt, err := parseNaiveLocal(observedStr, p.loc)
		if err != nil {
			result.Errors = append(result.Errors, errs.NewRow(errs.KindParse, p.source, p.row, fmt.Errorf("observed_at %q: %w", observedStr, err)))
			continue
		}

		postedOK, postedMinutes := parseOptionalMinutes(field(rec, p.idx, colPosted))
		actualOK, actualMinutes := parseOptionalMinutes(field(rec, p.idx, colActual))
		if !postedOK && !actualOK {
			result.Errors = append(result.Errors, errs.NewRow(errs.KindParse, p.source, p.row, fmt.Errorf("both posted and actual wait fields null/unparseable")))
			continue
		}
		if postedOK {
			obs := canonical.Observation{EntityCode: entityCode, ObservedAt: observedAt, WaitTimeType: canonical.Posted, WaitTimeMinutes: postedMinutes}
			result.Records = append(result.Records, obs)
			if err := obs.Validate(); err != nil {
				result.Errors = append(result.Errors, errs.NewRow(errs.KindValidation, p.source, p.row, err))
			}
		}
		if actualOK {
			obs := canonical.Observation{EntityCode: entityCode, ObservedAt: observedAt, WaitTimeType: canonical.Actual, WaitTimeMinutes: actualMinutes}
			result.Records = append(result.Records, obs)
			if err := obs.Validate(); err != nil {
				result.Errors = append(result.Errors, errs.NewRow(errs.KindValidation, p.source, p.row, err))
			}
		}
	}
	return result, true, nil
}

func field(rec []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func parseOptionalMinutes(s string) (ok bool, minutes int) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "na") {
		return false, 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return false, 0
	}
	return true, v
}

// parseNaiveLocal parses a naive "YYYY-MM-DD HH:MM:SS" timestamp (no zone)
// as wall-clock time in loc, per spec.md §4.2 step 4 ("local naive -> local
// with offset").
func parseNaiveLocal(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04"}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
