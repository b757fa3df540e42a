// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package dedup provides the Badger-backed observation dedup set: a
// compact binary encoding of the (entity_code, observed_at,
// wait_time_type, wait_time_minutes) 4-tuple stored as a Badger key with an
// empty value, mirroring the teacher WAL's prefixed-key convention.
package dedup

import (
	"encoding/binary"
	"fmt"

	"github.com/openwaits/waitcore/internal/canonical"
)

// keyPrefix namespaces dedup keys within a shared Badger DB, matching the
// teacher WAL's prefixPending/prefixConfirmed convention.
var keyPrefix = []byte("dedup:")

// Key encodes the 4-tuple that identifies a unique observation:
//
//	prefix | len(entity_code) byte | entity_code bytes | observed_at UTC unix nanos (8 bytes, big-endian) | wait_time_type (1 byte) | wait_time_minutes (zigzag varint)
//
// observed_at is first normalized to UTC so two equal instants recorded with
// different zone offsets collide to the same key, matching spec.md's
// "observed_at" being a single point in time irrespective of how its offset
// was rendered.
func Key(o canonical.Observation) ([]byte, error) {
	if len(o.EntityCode) > 255 {
		return nil, fmt.Errorf("entity_code too long for dedup key: %d bytes", len(o.EntityCode))
	}
	typeByte, err := encodeType(o.WaitTimeType)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(keyPrefix)+1+len(o.EntityCode)+8+1+binary.MaxVarintLen64)
	buf = append(buf, keyPrefix...)
	buf = append(buf, byte(len(o.EntityCode)))
	buf = append(buf, o.EntityCode...)

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(o.ObservedAt.UTC().UnixNano()))
	buf = append(buf, tsBuf[:]...)

	buf = append(buf, typeByte)
	buf = binary.AppendVarint(buf, int64(o.WaitTimeMinutes))
	return buf, nil
}

func encodeType(t canonical.WaitTimeType) (byte, error) {
	switch t {
	case canonical.Posted:
		return 0, nil
	case canonical.Actual:
		return 1, nil
	case canonical.Priority:
		return 2, nil
	default:
		return 0, fmt.Errorf("unknown wait_time_type %q", t)
	}
}
