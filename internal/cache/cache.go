// Package cache provides the process-local TTL cache used to coalesce hot
// reads (monitor lists, history ranges, stats, log queries).
//
// The cache is single-process and lossy: entries vanish on TTL expiry, on
// explicit invalidation, or on process restart, and callers must tolerate
// arbitrary eviction. Staleness up to the TTL is an accepted trade-off that
// keeps read volume off the store.
package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Well-known key prefixes and their TTLs.
const (
	KeyAllMonitors     = "all_monitor_configs"
	KeyMonitorHistory  = "monitor_history"
	KeyMonitorStats    = "monitor_stats"
	KeySystemLogs      = "system_logs"

	TTLMonitors   = 2 * time.Minute
	TTLHistory    = 5 * time.Minute
	TTLStats      = 5 * time.Minute
	TTLSystemLogs = 3 * time.Minute
)

// Cache wraps a go-cache instance with prefix-aware invalidation. The
// underlying janitor evicts expired entries on the configured interval.
type Cache struct {
	inner *gocache.Cache
}

// New creates a cache whose janitor sweeps expired entries every
// cleanupInterval.
func New(cleanupInterval time.Duration) *Cache {
	return &Cache{inner: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Get returns the cached value for key, or (nil, false) when absent or
// expired.
func (c *Cache) Get(key string) (any, bool) {
	return c.inner.Get(key)
}

// Set stores value under key with a per-entry TTL.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.inner.Set(key, value, ttl)
}

// Delete removes one entry.
func (c *Cache) Delete(key string) {
	c.inner.Delete(key)
}

// Has reports whether key currently holds an unexpired entry.
func (c *Cache) Has(key string) bool {
	_, ok := c.inner.Get(key)
	return ok
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.inner.Flush()
}

// ClearPrefix removes every entry whose key starts with prefix.
func (c *Cache) ClearPrefix(prefix string) {
	for key := range c.inner.Items() {
		if strings.HasPrefix(key, prefix) {
			c.inner.Delete(key)
		}
	}
}

// Cleanup evicts expired entries immediately, independent of the janitor.
func (c *Cache) Cleanup() {
	c.inner.DeleteExpired()
}

// Len returns the number of stored entries, expired ones included until
// the next sweep.
func (c *Cache) Len() int {
	return c.inner.ItemCount()
}

// Keys returns the current cache keys, unexpired entries only.
func (c *Cache) Keys() []string {
	items := c.inner.Items()
	keys := make([]string, 0, len(items))
	for key, item := range items {
		if item.Expired() {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}
