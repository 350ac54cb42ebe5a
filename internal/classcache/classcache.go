// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package classcache fronts the external class-file bytes provider (spec.md
// §6 "fetch(name, location) -> bytes") with an LRU byte cache and
// singleflight-deduplicated first-touch fetches, so two goroutines racing
// to load the same (name, loaderID) block on one fetch instead of issuing
// two (spec.md §5).
package classcache

import (
	"context"
	"fmt"

	"github.com/elastic/jfluid-agent/internal/classrecord"
	"github.com/elastic/jfluid-agent/internal/lrustats"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"
)

// Fetcher is the external class-file bytes provider. It may fail with an
// I/O error, which classcache propagates unchanged.
type Fetcher interface {
	Fetch(ctx context.Context, name string, loader classrecord.LoaderID) ([]byte, error)
}

type cacheKey struct {
	name   string
	loader classrecord.LoaderID
}

func hashKey(k cacheKey) uint32 {
	return uint32(xxh3.HashString(fmt.Sprintf("%s\x00%d", k.name, k.loader)))
}

// Client is the cached, deduplicating front end for a Fetcher.
type Client struct {
	fetcher Fetcher
	cache   *lrustats.Cache[cacheKey, []byte]
	group   singleflight.Group
}

// New builds a Client with room for capacity class-file entries.
func New(fetcher Fetcher, capacity uint32) (*Client, error) {
	cache, err := lrustats.New[cacheKey, []byte](capacity, hashKey)
	if err != nil {
		return nil, fmt.Errorf("classcache: %w", err)
	}
	return &Client{fetcher: fetcher, cache: cache}, nil
}

// Fetch returns the bytes of the named class under the given loader,
// serving from cache when possible and deduplicating concurrent first-touch
// fetches for the same key.
func (c *Client) Fetch(ctx context.Context, name string, loader classrecord.LoaderID) ([]byte, error) {
	key := cacheKey{name: name, loader: loader}
	if b, ok := c.cache.Get(key); ok {
		return b, nil
	}

	sfKey := fmt.Sprintf("%s\x00%d", name, loader)
	v, err, _ := c.group.Do(sfKey, func() (any, error) {
		if b, ok := c.cache.Get(key); ok {
			return b, nil
		}
		b, err := c.fetcher.Fetch(ctx, name, loader)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Stats returns and resets the underlying cache's hit/miss counters.
func (c *Client) Stats() lrustats.Stats { return c.cache.Snapshot() }
