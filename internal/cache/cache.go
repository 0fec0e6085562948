// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache provides a bounded response cache with LRU eviction and a
// time-to-live, shared by the enrichment clients and external API wrappers.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a size-bounded, TTL-expiring LRU cache. It is safe for use from
// multiple goroutines.
type Cache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

// New creates a cache holding at most size entries, each expiring ttl after
// insertion. A non-positive size falls back to 128 entries; a non-positive
// ttl falls back to one hour.
func New[K comparable, V any](size int, ttl time.Duration) *Cache[K, V] {
	if size <= 0 {
		size = 128
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache[K, V]{lru: expirable.NewLRU[K, V](size, nil, ttl)}
}

// Get returns the cached value for key and whether it was present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Put stores value under key, evicting the least-recently-used entry when
// the cache is full.
func (c *Cache[K, V]) Put(key K, value V) {
	c.lru.Add(key, value)
}

// Len returns the number of live entries.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}
