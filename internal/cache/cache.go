package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/kjstillabower/portfolio-service/internal/models"
	"github.com/kjstillabower/portfolio-service/internal/validation"
)

// DefaultTTL is how long a fetched forecast stays servable.
const DefaultTTL = 30 * time.Minute

// Key identifies a cacheable forecast: latitude and longitude rounded to three
// decimals (about 111m at the equator) plus the timezone, e.g. "43.651,-79.347,America/Toronto".
type Key string

// NewKey derives the cache key for a location. Coordinates that round to the
// same three decimals and share a timezone map to the same key.
func NewKey(lat, lon float64, tz string) Key {
	return Key(round3(lat) + "," + round3(lon) + "," + validation.NormalizeTimezone(tz))
}

func (k Key) String() string { return string(k) }

func round3(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	if s == "-0.000" {
		return "0.000"
	}
	return s
}

// Entry is the last forecast fetched for a key. Entries are replaced whole, never patched.
type Entry struct {
	Key       Key                   `json:"key"`
	FetchedAt time.Time             `json:"fetchedAt"`
	Value     models.ForecastResult `json:"value"`
}

// IsFresh reports whether entry may be served without refetching.
func IsFresh(entry Entry, now time.Time, ttl time.Duration) bool {
	return now.Sub(entry.FetchedAt) < ttl
}

// Store holds the most recent forecast per key. Get is a pure lookup and
// returns stale entries too; freshness is the caller's decision via IsFresh.
// Put stamps the entry with the store's current time and overwrites any previous one.
type Store interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Put(ctx context.Context, key Key, value models.ForecastResult) error
}

// InMemoryCache is a process-local Store. Entries are never evicted; the map
// grows with the number of distinct keys seen until the process exits.
type InMemoryCache struct {
	mu   sync.RWMutex
	data map[Key]Entry
	now  func() time.Time
}

// NewInMemoryCache creates an empty in-memory store using the wall clock.
func NewInMemoryCache() *InMemoryCache {
	return NewInMemoryCacheWithClock(time.Now)
}

// NewInMemoryCacheWithClock creates an empty in-memory store that stamps entries with now().
func NewInMemoryCacheWithClock(now func() time.Time) *InMemoryCache {
	return &InMemoryCache{
		data: make(map[Key]Entry),
		now:  now,
	}
}

// Get returns the entry for key, fresh or not. It never fails.
func (c *InMemoryCache) Get(ctx context.Context, key Key) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.data[key]
	return entry, ok, nil
}

// Put inserts or overwrites the entry for key. Concurrent writers for the same
// key race; the last one wins. It never fails.
func (c *InMemoryCache) Put(ctx context.Context, key Key, value models.ForecastResult) error {
	entry := Entry{Key: key, FetchedAt: c.now(), Value: value}
	c.mu.Lock()
	c.data[key] = entry
	c.mu.Unlock()
	return nil
}

// Len returns the number of keys held.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
