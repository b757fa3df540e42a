// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package logging provides the zerolog-based logging used across waitcore:
// package-level level helpers (Info, Warn, Error, ...), context-carried
// run/entity identifiers (Ctx, ContextWithRunID), and a StepLogger for the
// pipeline driver's per-step transition lines.
package logging
