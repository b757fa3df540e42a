// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package ingest

import (
	"io"
	"time"

	"github.com/openwaits/waitcore/internal/canonical"
	"github.com/openwaits/waitcore/internal/errs"
)

// ParseResult is one parser invocation's output: the canonical records it
// produced (which may still fail Observation.Validate — validation is
// reported, not filtered, per spec.md §7) plus the row-level errors
// encountered along the way (dropped/unparseable rows).
type ParseResult struct {
	Records []canonical.Observation
	Errors  []*errs.Error
}

// Parser reads one open source file in chunked batches of at most
// chunkSize rows, tagging each record's ObservedAt with loc. A parser
// variant exists per FileClass; the ingest driver selects one via
// ParserFor.
type Parser interface {
	// ParseChunk reads up to chunkSize rows starting at the parser's
	// current position and returns the canonical records they produced.
	// ok is false once the source is exhausted.
	ParseChunk(chunkSize int) (result ParseResult, ok bool, err error)
}

// ParserFor selects the parser variant for class, reading from r with rows
// timestamped in loc.
func ParserFor(class FileClass, source string, r io.Reader, loc *time.Location) (Parser, error) {
	switch class {
	case ClassStandby:
		return newStandbyParser(source, r, loc)
	case ClassFastpassNew:
		return newFastpassNewParser(source, r, loc)
	case ClassFastpassOld:
		return newFastpassLegacyParser(source, r, loc)
	default:
		return nil, errs.New(errs.KindParse, source, errUnknownClass)
	}
}

var errUnknownClass = errUnknownClassErr{}

type errUnknownClassErr struct{}

func (errUnknownClassErr) Error() string { return "no parser for file class UNKNOWN" }
