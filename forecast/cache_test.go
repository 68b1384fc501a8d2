package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cacheNow() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func globalKey(forecastDays, historicalDays int) Key {
	return Key{Scope: ScopeGlobal, ForecastDays: forecastDays, HistoricalDays: historicalDays}
}

func TestCache_PutThenGet(t *testing.T) {
	c := NewCache(DefaultForecastTTL, nil)
	now := cacheNow()
	result := &Result{ForecastDays: 90, Trend: TrendStable}

	c.Put(globalKey(90, 180), result, now)

	got, ok := c.Get(globalKey(90, 180), now.Add(time.Minute))
	require.True(t, ok)
	assert.Same(t, result, got, "cache returns the stored result, not a copy")
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	c := NewCache(DefaultForecastTTL, nil)

	_, ok := c.Get(Key{Scope: "service:bigquery", ForecastDays: 30, HistoricalDays: 90}, cacheNow())
	assert.False(t, ok)
}

func TestCache_HorizonsAreDistinctSlots(t *testing.T) {
	c := NewCache(DefaultForecastTTL, nil)
	now := cacheNow()
	quarter := &Result{ForecastDays: 90}
	month := &Result{ForecastDays: 30}

	c.Put(globalKey(90, 180), quarter, now)
	c.Put(globalKey(30, 180), month, now)

	got, ok := c.Get(globalKey(30, 180), now)
	require.True(t, ok)
	assert.Same(t, month, got)

	got, ok = c.Get(globalKey(90, 180), now)
	require.True(t, ok)
	assert.Same(t, quarter, got)

	_, ok = c.Get(globalKey(90, 365), now)
	assert.False(t, ok, "a different history window is a different slot")
}

func TestCache_ExpiryBoundary(t *testing.T) {
	ttl := 900 * time.Second
	c := NewCache(ttl, nil)
	now := cacheNow()
	c.Put(globalKey(90, 180), &Result{}, now)

	_, ok := c.Get(globalKey(90, 180), now.Add(ttl-time.Second))
	assert.True(t, ok, "one second before expiry is a hit")

	_, ok = c.Get(globalKey(90, 180), now.Add(ttl))
	assert.False(t, ok, "exactly at the TTL the entry is stale")
}

func TestCache_ScopesAreIndependent(t *testing.T) {
	c := NewCache(DefaultForecastTTL, nil)
	now := cacheNow()
	global := &Result{Trend: TrendStable}
	compute := &Result{Trend: TrendIncreasing}
	serviceKey := Key{Scope: "service:Compute Engine", ForecastDays: 90, HistoricalDays: 180}

	c.Put(globalKey(90, 180), global, now)
	c.Put(serviceKey, compute, now)

	got, ok := c.Get(serviceKey, now)
	require.True(t, ok)
	assert.Same(t, compute, got)

	c.Invalidate("service:Compute Engine")

	_, ok = c.Get(serviceKey, now)
	assert.False(t, ok)
	_, ok = c.Get(globalKey(90, 180), now)
	assert.True(t, ok, "invalidating one scope leaves the others alone")
}

func TestCache_InvalidateClearsAllHorizonsOfScope(t *testing.T) {
	c := NewCache(DefaultForecastTTL, nil)
	now := cacheNow()
	c.Put(globalKey(30, 180), &Result{}, now)
	c.Put(globalKey(90, 180), &Result{}, now)
	c.Put(globalKey(90, 365), &Result{}, now)

	c.Invalidate(ScopeGlobal)

	for _, key := range []Key{globalKey(30, 180), globalKey(90, 180), globalKey(90, 365)} {
		_, ok := c.Get(key, now)
		assert.False(t, ok, "key %+v", key)
	}
}

func TestCache_PutOverwrites(t *testing.T) {
	c := NewCache(DefaultForecastTTL, nil)
	now := cacheNow()

	stale := &Result{Trend: TrendDecreasing}
	fresh := &Result{Trend: TrendStable}
	c.Put(globalKey(90, 180), stale, now.Add(-time.Hour))
	c.Put(globalKey(90, 180), fresh, now)

	got, ok := c.Get(globalKey(90, 180), now)
	require.True(t, ok)
	assert.Same(t, fresh, got)
}

func TestCache_InvalidateAll(t *testing.T) {
	c := NewCache(DefaultForecastTTL, nil)
	now := cacheNow()
	c.Put(globalKey(90, 180), &Result{}, now)
	c.Put(Key{Scope: "service:Cloud Storage", ForecastDays: 30, HistoricalDays: 90}, &Result{}, now)

	c.InvalidateAll()

	_, ok := c.Get(globalKey(90, 180), now)
	assert.False(t, ok)
	_, ok = c.Get(Key{Scope: "service:Cloud Storage", ForecastDays: 30, HistoricalDays: 90}, now)
	assert.False(t, ok)
}

func TestCache_ZeroTTLFallsBackToDefault(t *testing.T) {
	c := NewCache(0, nil)
	now := cacheNow()
	c.Put(globalKey(90, 180), &Result{}, now)

	_, ok := c.Get(globalKey(90, 180), now.Add(DefaultForecastTTL-time.Second))
	assert.True(t, ok)
}
