// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package lrustats wraps elastic/go-freelru.LRU with atomic hit/miss/added/
// evicted counters, so callers get cache statistics without instrumenting
// every call site themselves.
package lrustats

import (
	"sync/atomic"

	freelru "github.com/elastic/go-freelru"
)

// Cache wraps a fixed-capacity freelru.LRU and tallies usage counters.
type Cache[K comparable, V any] struct {
	inner freelru.LRU[K, V]

	hits     atomic.Uint64
	misses   atomic.Uint64
	inserted atomic.Uint64
	evicted  atomic.Uint64
}

// Stats is a point-in-time snapshot of a Cache's counters.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Inserted uint64
	Evicted  uint64
}

// New builds a Cache with room for capacity entries, hashed by hash.
func New[K comparable, V any](capacity uint32, hash freelru.HashKeyCallback[K]) (*Cache[K, V], error) {
	inner, err := freelru.New[K, V](capacity, hash)
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{inner: *inner}, nil
}

// Add inserts or updates key's value, reporting whether an older entry was
// evicted to make room.
func (c *Cache[K, V]) Add(key K, value V) (evicted bool) {
	evicted = c.inner.Add(key, value)
	if evicted {
		c.evicted.Add(1)
	}
	c.inserted.Add(1)
	return evicted
}

// Get looks up key, bumping the hit or miss counter accordingly.
func (c *Cache[K, V]) Get(key K) (value V, ok bool) {
	value, ok = c.inner.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return value, ok
}

// Remove evicts key if present.
func (c *Cache[K, V]) Remove(key K) (present bool) {
	present = c.inner.Remove(key)
	if present {
		c.evicted.Add(1)
	}
	return present
}

// Len reports the current number of entries.
func (c *Cache[K, V]) Len() int { return c.inner.Len() }

// Snapshot returns and resets the counters.
func (c *Cache[K, V]) Snapshot() Stats {
	return Stats{
		Hits:     c.hits.Swap(0),
		Misses:   c.misses.Swap(0),
		Inserted: c.inserted.Swap(0),
		Evicted:  c.evicted.Swap(0),
	}
}
