package forecast

import (
	"sync"
	"time"

	"finops-forecast/pkg/metrics"
)

// DefaultForecastTTL is the recommended cache lifetime. Forecasts are
// expensive to compute (full model fit) and change slowly, so they live
// longer than live billing totals typically would (900s vs the 300s
// common for dashboard data).
const DefaultForecastTTL = 900 * time.Second

// ScopeGlobal is the cache scope for the unfiltered forecast;
// per-service forecasts get their own scopes.
const ScopeGlobal = "global"

// Key identifies one cache slot. A result is a function of the scope
// and both horizons, so all three participate: an entry computed for
// one horizon must never be served to a request for another (a 90-day
// total handed to a 30-day request would triple everything derived
// from it).
type Key struct {
	Scope          string
	ForecastDays   int
	HistoricalDays int
}

type cacheEntry struct {
	result    *Result
	createdAt time.Time
}

// Cache holds recent forecast results per key. It is the only shared
// mutable state in the pipeline; an RWMutex makes reads cheap and
// replaces slots wholesale, never partially. Reads are side-effect-free:
// a miss is signaled, recomputation is the caller's responsibility.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[Key]cacheEntry
	metrics *metrics.Metrics
}

// NewCache creates a cache with the given TTL. Metrics may be nil.
func NewCache(ttl time.Duration, m *metrics.Metrics) *Cache {
	if ttl <= 0 {
		ttl = DefaultForecastTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[Key]cacheEntry),
		metrics: m,
	}
}

// Get returns the cached result for key if it is younger than the TTL.
// A stale entry is a miss; it stays in place until the next Put
// overwrites it.
func (c *Cache) Get(key Key, now time.Time) (*Result, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || now.Sub(entry.createdAt) >= c.ttl {
		c.metrics.CacheMiss(key.Scope)
		return nil, false
	}
	c.metrics.CacheHit(key.Scope)
	return entry.result, true
}

// Put unconditionally replaces the slot for key.
func (c *Cache) Put(key Key, result *Result, now time.Time) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{result: result, createdAt: now}
	c.mu.Unlock()
}

// Invalidate clears every slot for one scope, across all horizons.
func (c *Cache) Invalidate(scope string) {
	c.mu.Lock()
	for key := range c.entries {
		if key.Scope == scope {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// InvalidateAll clears every slot, e.g. on configuration change.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[Key]cacheEntry)
	c.mu.Unlock()
}
