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

// Legacy FASTPASS exports are headerless and positional: line 0 is an
// inter-file title row repeated at the top of every file (skipped), line
// 1 is the true header row (skipped), and data begins at the third line —
// "first data row is position 2" using 0-based line numbering. Per row:
// entity_code, date (MM/DD/YYYY), observed time (HH:MM), return-opens time
// (HH:MM, or the literal "SOLDOUT").
const legacyHeaderRowsToSkip = 2

const legacySoldOutLiteral = "SOLDOUT"

type fastpassLegacyParser struct {
	source string
	cr     *csv.Reader
	loc    *time.Location
	row    int
}

func newFastpassLegacyParser(source string, r io.Reader, loc *time.Location) (*fastpassLegacyParser, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	for i := 0; i < legacyHeaderRowsToSkip; i++ {
		if _, err := cr.Read(); err != nil {
			return nil, errs.New(errs.KindParse, source, fmt.Errorf("read legacy header row %d: %w", i, err))
		}
	}
	return &fastpassLegacyParser{source: source, cr: cr, loc: loc}, nil
}

func (p *fastpassLegacyParser) ParseChunk(chunkSize int) (ParseResult, bool, error) {
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

		if len(rec) < 4 {
			result.Errors = append(result.Errors, errs.NewRow(errs.KindParse, p.source, p.row, fmt.Errorf("expected at least 4 positional columns, got %d", len(rec))))
			continue
		}
		entityCode := strings.ToUpper(strings.TrimSpace(rec[0]))
		dateStr, obsTimeStr, returnTimeStr := strings.TrimSpace(rec[1]), strings.TrimSpace(rec[2]), strings.TrimSpace(rec[3])

		obsAt, err := parseLegacyDateTime(dateStr, obsTimeStr, p.loc)
		if err != nil {
			result.Errors = append(result.Errors, errs.NewRow(errs.KindParse, p.source, p.row, err))
			continue
		}

		var minutes int
		if strings.EqualFold(returnTimeStr, legacySoldOutLiteral) {
			minutes = canonical.SoldOutSentinel
		} else {
			returnAt, err := parseLegacyDateTime(dateStr, returnTimeStr, p.loc)
			if err != nil {
				result.Errors = append(result.Errors, errs.NewRow(errs.KindParse, p.source, p.row, err))
				continue
			}
			minutes = int(returnAt.Sub(obsAt).Round(time.Minute).Minutes())
		}

		obs := canonical.Observation{EntityCode: entityCode, ObservedAt: obsAt, WaitTimeType: canonical.Priority, WaitTimeMinutes: minutes}
		result.Records = append(result.Records, obs)
		if err := obs.Validate(); err != nil {
			result.Errors = append(result.Errors, errs.NewRow(errs.KindValidation, p.source, p.row, err))
		}
	}
	return result, true, nil
}

// parseLegacyDateTime parses the legacy MM/DD/YYYY + HH:MM convention and
// rejects pathological years outside the documented legacy era — a
// corrupted field (e.g. "2813", observed in real legacy exports from a
// column-shift bug) must fail the row rather than silently produce a wrong
// instant.
func parseLegacyDateTime(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(dateStr, "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("legacy date %q not in MM/DD/YYYY form", dateStr)
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("legacy date %q: bad year: %w", dateStr, err)
	}
	if year < legacyYearMin || year > legacyYearMax {
		return time.Time{}, fmt.Errorf("legacy date %q: pathological year %d outside [%d,%d]", dateStr, year, legacyYearMin, legacyYearMax)
	}
	t, err := time.ParseInLocation("1/2/2006 15:04", dateStr+" "+timeStr, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("legacy datetime %q %q: %w", dateStr, timeStr, err)
	}
	return t, nil
}
