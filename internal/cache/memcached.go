package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/portfolio-service/internal/models"
)

const keyPrefix = "weather:"

// MemcachedCache implements Store using memcached. Items are written without
// an expiration so staleness is decided from the stored FetchedAt, the same as
// the in-memory store; memcached's own LRU may still drop them under memory pressure.
type MemcachedCache struct {
	client *memcache.Client
	now    func() time.Time
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// use client defaults if zero.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) *MemcachedCache {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client, now: time.Now}
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// storageKey maps a Key onto memcached's key alphabet, which forbids spaces
// and control characters.
func storageKey(k Key) string {
	return keyPrefix + strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return '_'
		}
		return r
	}, string(k))
}

// Get implements Store.Get. Returns false, nil on a miss.
func (c *MemcachedCache) Get(ctx context.Context, key Key) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	item, err := c.client.Get(storageKey(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	var entry Entry
	if err := json.Unmarshal(item.Value, &entry); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// Put implements Store.Put.
func (c *MemcachedCache) Put(ctx context.Context, key Key, value models.ForecastResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(Entry{Key: key, FetchedAt: c.now(), Value: value})
	if err != nil {
		return err
	}
	return c.client.Set(&memcache.Item{Key: storageKey(key), Value: raw})
}

// Ping checks that memcached is reachable. Used by the health check.
func (c *MemcachedCache) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.client.Ping()
}

// Close closes idle client connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
