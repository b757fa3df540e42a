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

// Documented new-fastpass source schema columns.
const (
	colReturnOpens = "return_opens_at"
)

// soldOutSentinelThreshold: an integer return_opens_at value at or above
// this marks the slot as sold out (documented encoding), rather than a
// timestamp.
const soldOutSentinelThreshold = 8000

type fastpassNewParser struct {
	source string
	cr     *csv.Reader
	loc    *time.Location
	idx    map[string]int
	row    int
}

func newFastpassNewParser(source string, r io.Reader, loc *time.Location) (*fastpassNewParser, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, errs.New(errs.KindParse, source, fmt.Errorf("read fastpass header: %w", err))
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{colEntityCode, colObservedAt, colReturnOpens} {
		if _, ok := idx[required]; !ok {
			return nil, errs.New(errs.KindParse, source, fmt.Errorf("fastpass source missing required column %q", required))
		}
	}
	return &fastpassNewParser{source: source, cr: cr, loc: loc, idx: idx}, nil
}

func (p *fastpassNewParser) ParseChunk(chunkSize int) (ParseResult, bool, error) {
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

		returnStr := strings.TrimSpace(field(rec, p.idx, colReturnOpens))
		minutes, err := fastpassReturnMinutes(returnStr, observedAt, p.loc)
		if err != nil {
			result.Errors = append(result.Errors, errs.NewRow(errs.KindParse, p.source, p.row, err))
			continue
		}

		obs := canonical.Observation{EntityCode: entityCode, ObservedAt: observedAt, WaitTimeType: canonical.Priority, WaitTimeMinutes: minutes}
		result.Records = append(result.Records, obs)
		if err := obs.Validate(); err != nil {
			result.Errors = append(result.Errors, errs.NewRow(errs.KindValidation, p.source, p.row, err))
		}
	}
	return result, true, nil
}

// fastpassReturnMinutes computes wait_time_minutes = minutes_between(return_opens, observed_at),
// or the sold-out sentinel when returnStr encodes an integer >= soldOutSentinelThreshold.
func fastpassReturnMinutes(returnStr string, observedAt time.Time, loc *time.Location) (int, error) {
	if v, err := strconv.Atoi(returnStr); err == nil {
		if v >= soldOutSentinelThreshold {
			return canonical.SoldOutSentinel, nil
		}
		return v, nil
	}
	returnOpens, err := parseNaiveLocal(returnStr, loc)
	if err != nil {
		return 0, fmt.Errorf("return_opens_at %q: %w", returnStr, err)
	}
	return int(returnOpens.Sub(observedAt).Round(time.Minute).Minutes()), nil
}
