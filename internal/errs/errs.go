// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package errs defines the pipeline's error taxonomy and the exit-code
// mapping the CLI uses to translate a run's terminal error into a process
// exit status.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for exit-code mapping and pipeline-status
// reporting. Kinds are not Go types; a single Kind can wrap many concrete
// causes (a dropped connection, a timeout, a malformed row).
type Kind int

const (
	// KindTransient is a retryable I/O failure (stream reset, HTTP error,
	// read timeout). Retried locally before the file is counted as failed.
	KindTransient Kind = iota
	// KindParse is a schema mismatch or unparseable field. The offending
	// row is dropped; the file is not failed unless every row fails.
	KindParse
	// KindValidation is a row outside its documented numeric range.
	// Reported downstream; never blocks ingest.
	KindValidation
	// KindStore is a dedup-set or entity-index write failure. Aborts the
	// current batch; the file is marked failed with no catalog update.
	KindStore
	// KindLockContention means a second pipeline driver could not acquire
	// the exclusive lock. Fatal to the contender.
	KindLockContention
	// KindTraining is a per-entity training failure. Recorded per entity;
	// never aborts the batch.
	KindTraining
	// KindTimeout is a hard per-file or per-entity deadline exceeded.
	KindTimeout
	// KindConfig is a fatal configuration error. No state is written.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindStore:
		return "store"
	case KindLockContention:
		return "lock_contention"
	case KindTraining:
		return "training"
	case KindTimeout:
		return "timeout"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error is a taxonomy-tagged error carrying the context needed to populate
// the pipeline status record and decide a file's or entity's fate.
type Error struct {
	Kind     Kind
	Source   string // source object key or entity code, when applicable
	Row      int    // 1-based row number within the source file, 0 if n/a
	Err      error
	ExitCode int // process exit code this error should escalate to, 0 = does not abort the run
}

func (e *Error) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Source, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err under the given Kind with no exit-code escalation (per-row
// and per-file errors are absorbed and summarized, per spec).
func New(kind Kind, source string, err error) *Error {
	return &Error{Kind: kind, Source: source, Err: err}
}

// NewRow wraps a per-row parse/validation error with its row number.
func NewRow(kind Kind, source string, row int, err error) *Error {
	return &Error{Kind: kind, Source: source, Row: row, Err: err}
}

// Fatal wraps err as a run-aborting error with the given process exit code.
func Fatal(kind Kind, exitCode int, err error) *Error {
	return &Error{Kind: kind, ExitCode: exitCode, Err: err}
}

// LockContention builds the fatal error a second pipeline driver returns
// when it cannot acquire the exclusive lock (exit code 2).
func LockContention(lockPath string, err error) *Error {
	return &Error{Kind: KindLockContention, Source: lockPath, ExitCode: 2, Err: err}
}

// Config builds the fatal error for a configuration failure (exit code 3).
func Config(err error) *Error {
	return &Error{Kind: KindConfig, ExitCode: 3, Err: err}
}

// ExitCode extracts the process exit code a terminal error should produce.
// Non-*Error values, and *Error values with ExitCode 0, map to 1 ("validation
// failed or pipeline step failed") once the caller has already determined
// the run should not exit 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) && e.ExitCode != 0 {
		return e.ExitCode
	}
	return 1
}

// Is reports whether err is (or wraps) an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
