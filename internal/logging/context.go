// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	// runIDKey identifies a single pipeline-driver invocation (one daily run).
	runIDKey contextKey = "run_id"

	// entityKey identifies the entity code a log line concerns, when the
	// call site is inside per-entity training/forecast/backfill work.
	entityKey contextKey = "entity_code"

	// loggerKey stores a pre-configured logger in the context.
	loggerKey contextKey = "logger"
)

// GenerateRunID creates a new unique pipeline-run identifier.
func GenerateRunID() string {
	return uuid.New().String()
}

// ContextWithRunID returns a context carrying the given run ID.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// ContextWithNewRunID returns a context carrying a freshly generated run ID.
func ContextWithNewRunID(ctx context.Context) context.Context {
	return ContextWithRunID(ctx, GenerateRunID())
}

// RunIDFromContext retrieves the run ID from context, or "" if absent.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithEntity returns a context carrying the given entity code.
func ContextWithEntity(ctx context.Context, entityCode string) context.Context {
	return context.WithValue(ctx, entityKey, entityCode)
}

// EntityFromContext retrieves the entity code from context, or "" if absent.
func EntityFromContext(ctx context.Context) string {
	if code, ok := ctx.Value(entityKey).(string); ok {
		return code
	}
	return ""
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves a logger from context, falling back to the
// global logger.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with run_id/entity_code fields automatically added
// from ctx. This is the recommended way to log inside pipeline stages.
//
//	logging.Ctx(ctx).Info().Msg("ingest started")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := LoggerFromContext(ctx).With()
	if runID := RunIDFromContext(ctx); runID != "" {
		logCtx = logCtx.Str("run_id", runID)
	}
	if entity := EntityFromContext(ctx); entity != "" {
		logCtx = logCtx.Str("entity_code", entity)
	}
	logger := logCtx.Logger()
	return &logger
}

// WithComponent creates a child logger tagged with a component field.
//
//	ingestLogger := logging.WithComponent("ingest")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
