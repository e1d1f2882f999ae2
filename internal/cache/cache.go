// SPDX-License-Identifier: MIT

// Package cache provides the routine result cache with TTL support.
// Generated routines are keyed by a hash of the source article so re-runs
// skip unchanged inputs.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Cache is a thread-safe string cache with expiration.
type Cache interface {
	// Get retrieves a value. The second return is false if absent or expired.
	Get(key string) (string, bool)
	// Set stores a value with the specified TTL.
	Set(key, value string, ttl time.Duration)
	// Delete removes a value.
	Delete(key string)
	// Clear removes all values.
	Clear()
	// Stats returns cache statistics.
	Stats() Stats
}

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Evictions   int64
	CurrentSize int
}

type entry struct {
	value      string
	expiration time.Time
}

func (e *entry) expired() bool {
	return time.Now().After(e.expiration)
}

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	janitor *janitor

	// Counters are atomics, not guarded by mu: Get only takes the read lock
	// and is called concurrently by pipeline workers.
	stats struct {
		hits      atomic.Int64
		misses    atomic.Int64
		sets      atomic.Int64
		evictions atomic.Int64
	}
}

// NewMemory creates an in-memory cache with automatic cleanup. The
// cleanupInterval determines how often expired entries are removed;
// zero disables the janitor.
func NewMemory(cleanupInterval time.Duration) Cache {
	c := &memoryCache{entries: make(map[string]*entry)}
	if cleanupInterval > 0 {
		c.janitor = &janitor{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
		}
		go c.janitor.run(c)
	}
	return c
}

func (c *memoryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, found := c.entries[key]
	if !found || e.expired() {
		c.stats.misses.Add(1)
		return "", false
	}
	c.stats.hits.Add(1)
	return e.value, true
}

func (c *memoryCache) Set(key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value, expiration: time.Now().Add(ttl)}
	c.stats.sets.Add(1)
}

func (c *memoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *memoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func (c *memoryCache) Stats() Stats {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Hits:        c.stats.hits.Load(),
		Misses:      c.stats.misses.Load(),
		Sets:        c.stats.sets.Load(),
		Evictions:   c.stats.evictions.Load(),
		CurrentSize: size,
	}
}

func (c *memoryCache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, e := range c.entries {
		if e.expired() {
			delete(c.entries, key)
			count++
		}
	}
	c.stats.evictions.Add(int64(count))
	return count
}

// Stop stops the background cleanup goroutine.
func (c *memoryCache) Stop() {
	if c.janitor != nil {
		c.janitor.stop <- struct{}{}
	}
}

type janitor struct {
	interval time.Duration
	stop     chan struct{}
}

func (j *janitor) run(c *memoryCache) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-j.stop:
			return
		}
	}
}

// NewNoOp creates a cache that never stores anything (caching disabled).
func NewNoOp() Cache {
	return &noOpCache{}
}

type noOpCache struct{}

func (c *noOpCache) Get(key string) (string, bool)            { return "", false }
func (c *noOpCache) Set(key, value string, ttl time.Duration) {}
func (c *noOpCache) Delete(key string)                        {}
func (c *noOpCache) Clear()                                   {}
func (c *noOpCache) Stats() Stats                             { return Stats{} }
