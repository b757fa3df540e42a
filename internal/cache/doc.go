// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

/*
Package cache provides a thread-safe in-memory cache with TTL support.

It is used to memoize posted-aggregate lookups (internal/aggregates) so
that repeated requests for the same entity/park/dategroup/hour within the
TTL window don't re-run the underlying DuckDB query.

# Overview

The cache provides:
  - Thread-safe concurrent access (sync.RWMutex)
  - Time-to-live (TTL) expiration with background cleanup
  - Simple key-value storage with any value type (interface{})
  - A GenerateKey helper for building stable cache keys from a method
    name and a slice of parameters

# Usage

	c := cache.New(10 * time.Minute)

	key := cache.GenerateKey("aggregates.Lookup", []interface{}{entityCode, parkCode, dategroupID, hour})
	if cached, ok := c.Get(key); ok {
	    result := cached.(lookupResult)
	    // use result
	}

	c.Set(key, lookupResult{value: 12.5, ok: true})

# Invalidation

Build calls Clear() after a successful rebuild, so a fresh aggregates
rebuild is always visible immediately regardless of the configured TTL.

# Limitations

No maximum size limit and no LRU eviction; entries are removed only by
TTL expiry or an explicit Clear/Delete. This is acceptable for the
aggregates lookup cache, whose key space is bounded by the number of
distinct (entity_code, park_code, dategroupid, hour) combinations.
*/
package cache
