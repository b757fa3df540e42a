// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/openwaits/waitcore/internal/canonical"
)

func mustLocIngest(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return loc
}

func TestStandbyParserEmitsPostedAndActual(t *testing.T) {
	loc := mustLocIngest(t)
	csvData := "entity_code,observed_at,posted_wait_minutes,actual_wait_minutes\n" +
		"mk101,2026-06-01 10:00:00,30,35\n" +
		"mk101,2026-06-01 10:05:00,,\n"
	p, err := newStandbyParser("test", strings.NewReader(csvData), loc)
	if err != nil {
		t.Fatalf("newStandbyParser: %v", err)
	}
	var all []canonical.Observation
	for {
		res, ok, err := p.ParseChunk(100)
		if err != nil {
			t.Fatalf("ParseChunk: %v", err)
		}
		all = append(all, res.Records...)
		if !ok {
			break
		}
	}
	if len(all) != 2 {
		t.Fatalf("got %d records, want 2 (one POSTED, one ACTUAL from the first row)", len(all))
	}
	if all[0].WaitTimeType != canonical.Posted || all[0].WaitTimeMinutes != 30 {
		t.Errorf("record 0 = %+v", all[0])
	}
	if all[1].WaitTimeType != canonical.Actual || all[1].WaitTimeMinutes != 35 {
		t.Errorf("record 1 = %+v", all[1])
	}
}

func TestFastpassNewParserSoldOutSentinel(t *testing.T) {
	loc := mustLocIngest(t)
	csvData := "entity_code,observed_at,return_opens_at\n" +
		"mk102,2026-06-01 10:00:00,8500\n" +
		"mk102,2026-06-01 10:00:00,2026-06-01 10:45:00\n"
	p, err := newFastpassNewParser("test", strings.NewReader(csvData), loc)
	if err != nil {
		t.Fatalf("newFastpassNewParser: %v", err)
	}
	res, _, err := p.ParseChunk(100)
	if err != nil {
		t.Fatalf("ParseChunk: %v", err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(res.Records))
	}
	if res.Records[0].WaitTimeMinutes != canonical.SoldOutSentinel {
		t.Errorf("sold-out row minutes = %d, want %d", res.Records[0].WaitTimeMinutes, canonical.SoldOutSentinel)
	}
	if res.Records[1].WaitTimeMinutes != 45 {
		t.Errorf("timed row minutes = %d, want 45", res.Records[1].WaitTimeMinutes)
	}
}

func TestFastpassLegacyParserRejectsPathologicalYear(t *testing.T) {
	loc := mustLocIngest(t)
	csvData := "Legacy FASTPASS Export\n" +
		"entity,date,obs_time,return_time\n" +
		"mk103,6/1/2813,10:00,10:45\n" +
		"mk103,6/1/2005,10:00,10:45\n"
	p, err := newFastpassLegacyParser("test", strings.NewReader(csvData), loc)
	if err != nil {
		t.Fatalf("newFastpassLegacyParser: %v", err)
	}
	res, _, err := p.ParseChunk(100)
	if err != nil {
		t.Fatalf("ParseChunk: %v", err)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors, want 1 (the pathological-year row)", len(res.Errors))
	}
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	if res.Records[0].WaitTimeMinutes != 45 {
		t.Errorf("minutes = %d, want 45", res.Records[0].WaitTimeMinutes)
	}
}

func TestFastpassLegacySoldOutLiteral(t *testing.T) {
	loc := mustLocIngest(t)
	csvData := "Legacy FASTPASS Export\n" +
		"entity,date,obs_time,return_time\n" +
		"mk104,6/1/2005,10:00,SOLDOUT\n"
	p, err := newFastpassLegacyParser("test", strings.NewReader(csvData), loc)
	if err != nil {
		t.Fatalf("newFastpassLegacyParser: %v", err)
	}
	res, _, err := p.ParseChunk(100)
	if err != nil {
		t.Fatalf("ParseChunk: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].WaitTimeMinutes != canonical.SoldOutSentinel {
		t.Fatalf("expected a single sold-out record, got %+v", res.Records)
	}
}
