// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package statestore is C1: the shared filesystem root and its atomic
// write, locking, status, processed-catalog, and failure-tally primitives.
// The embedded dedup set and entity index live in the sibling internal/dedup
// and internal/entityindex packages, both rooted under state/ via *Root.
package statestore
