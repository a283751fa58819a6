package main

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/portfolio-service/internal/cache"
	"github.com/kjstillabower/portfolio-service/internal/config"
)

func TestNewCacheBackend_InMemory(t *testing.T) {
	b, err := newCacheBackend(&config.Config{CacheBackend: "in_memory"}, zap.NewNop())
	if err != nil {
		t.Fatalf("newCacheBackend() error = %v", err)
	}
	if _, ok := b.store.(*cache.InMemoryCache); !ok {
		t.Errorf("store = %T, want *cache.InMemoryCache", b.store)
	}
	if b.ping != nil || b.close != nil {
		t.Error("in_memory backend has ping/close hooks")
	}
}

// TestNewCacheBackend_MemcachedUnreachable verifies an unreachable memcached
// still yields a backend; health reports it instead of startup failing.
func TestNewCacheBackend_MemcachedUnreachable(t *testing.T) {
	b, err := newCacheBackend(&config.Config{
		CacheBackend:          "memcached",
		MemcachedAddrs:        "127.0.0.1:1",
		MemcachedTimeout:      100 * time.Millisecond,
		MemcachedMaxIdleConns: 1,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("newCacheBackend() error = %v", err)
	}
	if _, ok := b.store.(*cache.MemcachedCache); !ok {
		t.Errorf("store = %T, want *cache.MemcachedCache", b.store)
	}
	if b.ping == nil || b.close == nil {
		t.Fatal("memcached backend missing ping/close hooks")
	}
	_ = b.close()
}

func TestNewCacheBackend_ValkeyUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials the network")
	}
	_, err := newCacheBackend(&config.Config{CacheBackend: "valkey", ValkeyAddr: "127.0.0.1:1"}, zap.NewNop())
	if err == nil {
		t.Error("newCacheBackend(valkey) error = nil, want connection error")
	}
}
