// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package ingest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/errs"
	"github.com/openwaits/waitcore/internal/logging"
	"github.com/openwaits/waitcore/internal/metrics"
	"github.com/openwaits/waitcore/internal/statestore"
)

// RunOptions configures one Ingest invocation (spec.md §4.2 public contract).
type RunOptions struct {
	Scopes        []string
	ChunkSize     int
	FullRebuild   bool
	Root          *statestore.Root
	ParkTimezones map[string]string
	FailThreshold int
	OldDays       int
}

// IngestResult summarizes one Ingest run.
type IngestResult struct {
	FilesProcessed  int
	FilesSkipped    int
	FilesFailed     int
	RowsByType      map[canonical.WaitTimeType]int
	RowsByParkCode  map[string]int
}

// Writer is the subset of canonical.Writer Ingest needs, so tests can
// substitute a recorder.
type Writer interface {
	AcceptBatch(ctx context.Context, rows []canonical.Observation) error
	Flush(ctx context.Context) error
}

// Ingest runs discovery, classification, parsing, and state-store
// bookkeeping for every eligible source file, per spec.md §4.2.
func Ingest(ctx context.Context, opts RunOptions, src Source, w Writer) (IngestResult, error) {
	result := IngestResult{
		RowsByType:     make(map[canonical.WaitTimeType]int),
		RowsByParkCode: make(map[string]int),
	}

	catalog, err := statestore.LoadProcessedCatalog(opts.Root)
	if err != nil {
		return result, errs.Fatal(errs.KindStore, 1, fmt.Errorf("load processed catalog: %w", err))
	}
	tally, err := statestore.LoadFailureTally(opts.Root, opts.FailThreshold, opts.OldDays)
	if err != nil {
		return result, errs.Fatal(errs.KindStore, 1, fmt.Errorf("load failure tally: %w", err))
	}
	if opts.FullRebuild {
		if err := catalog.Clear(); err != nil {
			return result, errs.Fatal(errs.KindStore, 1, fmt.Errorf("clear processed catalog for full rebuild: %w", err))
		}
	}

	objects, err := src.List(ctx, opts.Scopes)
	if err != nil {
		return result, errs.Fatal(errs.KindStore, 1, fmt.Errorf("list source objects: %w", err))
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })

	for _, obj := range objects {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		marker := strconv.FormatInt(obj.LastModified.UnixNano(), 10)
		class := Classify(obj.Key)
		if class == ClassUnknown {
			logging.Warn().Str("key", obj.Key).Msg("ingest: unknown file class, skipping")
			continue
		}
		if !opts.FullRebuild && catalog.IsProcessed(obj.Key, marker) {
			result.FilesSkipped++
			metrics.RecordIngestFile(class.String(), "skipped", 0)
			continue
		}
		if tally.IsQuarantined(obj.Key) {
			result.FilesSkipped++
			metrics.RecordIngestFile(class.String(), "skipped", 0)
			continue
		}

		loc, err := parkLocation(opts.ParkTimezones, scopeOf(obj.Key))
		if err != nil {
			// Park mapping for a file's scope is a configuration problem, not
			// a transient one; record and move on rather than retry it.
			if recErr := tally.Record(obj.Key, obj.LastModified, err); recErr != nil {
				logging.Error().Err(recErr).Str("key", obj.Key).Msg("ingest: failed to record failure tally")
			}
			result.FilesFailed++
			metrics.RecordIngestFile(class.String(), "failed", 0)
			continue
		}

		fileStart := time.Now()
		rowCounts, fileErr := ingestOneFile(ctx, opts, src, w, obj, class, loc)
		if fileErr != nil {
			if recErr := tally.Record(obj.Key, obj.LastModified, fileErr); recErr != nil {
				logging.Error().Err(recErr).Str("key", obj.Key).Msg("ingest: failed to record failure tally")
			}
			result.FilesFailed++
			metrics.RecordIngestFile(class.String(), "failed", time.Since(fileStart))
			continue
		}

		if err := tally.Clear(obj.Key); err != nil {
			logging.Warn().Err(err).Str("key", obj.Key).Msg("ingest: failed to clear failure tally after success")
		}
		if err := catalog.Mark(obj.Key, marker); err != nil {
			return result, errs.Fatal(errs.KindStore, 1, fmt.Errorf("mark processed %s: %w", obj.Key, err))
		}
		result.FilesProcessed++
		metrics.RecordIngestFile(class.String(), "processed", time.Since(fileStart))
		for t, n := range rowCounts.byType {
			result.RowsByType[t] += n
			metrics.RecordIngestRows(string(t), n)
		}
		for park, n := range rowCounts.byPark {
			result.RowsByParkCode[park] += n
		}
	}

	if err := w.Flush(ctx); err != nil {
		return result, errs.Fatal(errs.KindStore, 1, fmt.Errorf("flush canonical writer: %w", err))
	}
	return result, nil
}

type rowCounts struct {
	byType map[canonical.WaitTimeType]int
	byPark map[string]int
}

func ingestOneFile(ctx context.Context, opts RunOptions, src Source, w Writer, obj ObjectMeta, class FileClass, loc *time.Location) (rowCounts, error) {
	counts := rowCounts{byType: make(map[canonical.WaitTimeType]int), byPark: make(map[string]int)}

	isTransient := func(err error) bool { return errs.Is(err, errs.KindTransient) }

	var parser Parser
	var rc io.ReadCloser
	openErr := Retry(func() error {
		var err error
		rc, err = src.Open(ctx, obj.Key)
		if err != nil {
			return errs.New(errs.KindTransient, obj.Key, err)
		}
		parser, err = ParserFor(class, obj.Key, rc, loc)
		return err
	}, isTransient, DefaultRetryPolicy, func(error) {
		metrics.RecordIngestRetry(class.String())
	})
	if openErr != nil {
		return counts, fmt.Errorf("open/parse %s: %w", obj.Key, openErr)
	}
	defer rc.Close()

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 250_000
	}

	var produced, parseFailed int
	for {
		result, ok, err := parser.ParseChunk(chunkSize)
		if err != nil {
			return counts, fmt.Errorf("parse chunk of %s: %w", obj.Key, err)
		}
		for _, rowErr := range result.Errors {
			logging.Warn().Err(rowErr).Str("key", obj.Key).Msg("ingest: row dropped or flagged")
			if rowErr.Kind == errs.KindParse {
				parseFailed++
			}
		}
		produced += len(result.Records)
		if len(result.Records) > 0 {
			if err := w.AcceptBatch(ctx, result.Records); err != nil {
				return counts, errs.New(errs.KindStore, obj.Key, fmt.Errorf("accept batch: %w", err))
			}
			for _, rec := range result.Records {
				counts.byType[rec.WaitTimeType]++
				counts.byPark[rec.ParkCode()]++
			}
		}
		if !ok {
			break
		}
	}
	if produced == 0 && parseFailed > 0 {
		return counts, errs.New(errs.KindParse, obj.Key, fmt.Errorf("all %d rows failed to parse", parseFailed))
	}
	return counts, nil
}

func parkLocation(parkTimezones map[string]string, parkCode string) (*time.Location, error) {
	name, ok := parkTimezones[parkCode]
	if !ok {
		return nil, fmt.Errorf("no timezone mapping for park_code %q", parkCode)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q for park_code %q: %w", name, parkCode, err)
	}
	return loc, nil
}

// scopeOf returns a source key's leading path segment — its property scope,
// which is also its park_code — used to resolve the file's timezone before
// any row has been parsed.
func scopeOf(key string) string {
	for i, c := range key {
		if c == '/' {
			return key[:i]
		}
	}
	return key
}
