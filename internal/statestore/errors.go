// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package statestore

import "errors"

// ErrNotFound is returned by read-only accessors when the underlying state
// file does not exist yet.
var ErrNotFound = errors.New("statestore: not found")
