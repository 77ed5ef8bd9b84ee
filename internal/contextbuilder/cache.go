package contextbuilder

import (
	"sort"
	"sync"
	"time"
)

// stableCacheMax and stableCacheTTL bound the stable-block cache: entries
// older than the TTL are treated as misses, and once the cache exceeds
// stableCacheMax entries the oldest are evicted. Matches
// _STABLE_CONTEXT_CACHE_TTL_S / _STABLE_CONTEXT_CACHE_MAX.
const (
	stableCacheTTL = 5 * time.Minute
	stableCacheMax = 256
)

type stableCacheEntry struct {
	storedAt time.Time
	block    string
}

// StableBlockCache caches the stable context block per
// (user, specialist, settings stamp, specialist-config stamp, framework
// stamp) key, grounded on goa-ai's registry.MemoryCache TTL-map pattern
// (runtime/registry/cache.go), simplified to drop background refresh since
// a miss here just costs one rebuild rather than blocking a tool schema
// fetch.
type StableBlockCache struct {
	mu      sync.Mutex
	entries map[string]stableCacheEntry
}

// NewStableBlockCache returns an empty cache.
func NewStableBlockCache() *StableBlockCache {
	return &StableBlockCache{entries: make(map[string]stableCacheEntry)}
}

// Get returns the cached block for key if present and not expired.
func (c *StableBlockCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if time.Since(entry.storedAt) > stableCacheTTL {
		delete(c.entries, key)
		return "", false
	}
	return entry.block, true
}

// Put stores block under key and prunes the oldest entries if the cache has
// grown past stableCacheMax.
func (c *StableBlockCache) Put(key, block string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = stableCacheEntry{storedAt: time.Now(), block: block}
	c.pruneLocked()
}

func (c *StableBlockCache) pruneLocked() {
	overflow := len(c.entries) - stableCacheMax
	if overflow <= 0 {
		return
	}
	type keyStamp struct {
		key      string
		storedAt time.Time
	}
	ordered := make([]keyStamp, 0, len(c.entries))
	for k, v := range c.entries {
		ordered = append(ordered, keyStamp{k, v.storedAt})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].storedAt.Before(ordered[j].storedAt) })
	for i := 0; i < overflow && i < len(ordered); i++ {
		delete(c.entries, ordered[i].key)
	}
}

// Len reports the number of cached entries, for tests.
func (c *StableBlockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
