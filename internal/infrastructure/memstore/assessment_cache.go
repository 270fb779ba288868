package memstore

import (
	"sync"
	"time"

	"github.com/davidleathers/auth-risk-engine/internal/domain/assessment"
)

// AssessmentCache memoizes assessments keyed by the context's composite
// fingerprint. Expiry is lazy: a stale entry is treated as a miss on read.
// Purge exists for memory bounding and can run on a background ticker.
type AssessmentCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry

	now func() time.Time // injectable clock for tests
}

type cacheEntry struct {
	value      *assessment.Assessment
	insertedAt time.Time
}

// NewAssessmentCache creates a cache with the given TTL.
func NewAssessmentCache(ttl time.Duration) *AssessmentCache {
	return &AssessmentCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached assessment for the key while the entry is fresh.
func (c *AssessmentCache) Get(key string) (*assessment.Assessment, bool) {
	if key == "" {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.insertedAt) >= c.ttl {
		return nil, false
	}
	return e.value, true
}

// Put stores the assessment under the key, resetting its insertion time.
func (c *AssessmentCache) Put(key string, a *assessment.Assessment) {
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: a, insertedAt: c.now()}
}

// Purge removes expired entries and returns how many were dropped.
func (c *AssessmentCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	dropped := 0
	for key, e := range c.entries {
		if now.Sub(e.insertedAt) >= c.ttl {
			delete(c.entries, key)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of entries, expired or not.
func (c *AssessmentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops all entries.
func (c *AssessmentCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
