package cache

import (
	"sync"
	"time"

	"tunelink/pkg/models"
)

// entry is a cached resolution with its insertion time.
type entry struct {
	value   models.ResolvedAudio
	addedAt time.Time
}

// expired reports whether the entry is older than ttl. A zero ttl means
// entries never expire.
func (e *entry) expired(ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return time.Since(e.addedAt) > ttl
}

// ResolutionCache maps a search query to its previously resolved audio so
// repeated requests skip the expensive search and extraction path. Keys are
// matched exactly, case sensitive, with no normalization.
//
// TTL and max-entry bounds are both optional; with both at zero the cache
// grows without limit for the life of the process, which matches the
// original behavior this service replaces.
type ResolutionCache struct {
	items map[string]*entry
	order []string // insertion order, oldest first
	mutex sync.RWMutex
	ttl   time.Duration
	max   int
}

// NewResolutionCache creates a resolution cache. ttl <= 0 disables expiry,
// maxEntries <= 0 disables the size bound.
func NewResolutionCache(ttl time.Duration, maxEntries int) *ResolutionCache {
	c := &ResolutionCache{
		items: make(map[string]*entry),
		ttl:   ttl,
		max:   maxEntries,
	}

	if ttl > 0 {
		go c.cleanupExpired()
	}

	return c
}

// Set stores a resolution under its query. Concurrent resolutions of the
// same query are not coordinated; last write wins, which is fine because
// results for the same query are interchangeable.
func (c *ResolutionCache) Set(query string, value models.ResolvedAudio) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.items[query]; !exists {
		c.order = append(c.order, query)
	}
	c.items[query] = &entry{value: value, addedAt: time.Now()}

	// Evict oldest entries when over capacity
	for c.max > 0 && len(c.items) > c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
}

// Get retrieves a cached resolution for the query.
func (c *ResolutionCache) Get(query string) (models.ResolvedAudio, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, exists := c.items[query]
	if !exists || e.expired(c.ttl) {
		return models.ResolvedAudio{}, false
	}

	return e.value, true
}

// Delete removes a cached resolution.
func (c *ResolutionCache) Delete(query string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.items[query]; exists {
		delete(c.items, query)
		c.removeFromOrder(query)
	}
}

// Clear removes all cached resolutions.
func (c *ResolutionCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[string]*entry)
	c.order = nil
}

// Size returns the number of cached resolutions.
func (c *ResolutionCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// removeFromOrder drops a key from the insertion-order slice. Caller holds
// the write lock.
func (c *ResolutionCache) removeFromOrder(query string) {
	for i, k := range c.order {
		if k == query {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// cleanupExpired removes expired entries periodically
func (c *ResolutionCache) cleanupExpired() {
	ticker := time.NewTicker(time.Minute * 5)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		for key, e := range c.items {
			if e.expired(c.ttl) {
				delete(c.items, key)
				c.removeFromOrder(key)
			}
		}
		c.mutex.Unlock()
	}
}
