//go:build integration
// +build integration

package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/portfolio-service/internal/cache"
	"github.com/kjstillabower/portfolio-service/internal/client"
	"github.com/kjstillabower/portfolio-service/internal/service"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	ForecastURL   string
	GeocodeURL    string
	CacheBackend  string // "in_memory", "memcached" or "valkey"
	MemcachedAddr string
	ValkeyAddr    string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips the test when SKIP_LIVE_API is set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	if os.Getenv("SKIP_LIVE_API") != "" {
		t.Skip("SKIP_LIVE_API set, skipping integration test")
	}
	cfg := IntegrationTestConfig{
		ForecastURL:   envOr("WEATHER_API_URL", client.DefaultForecastURL),
		GeocodeURL:    envOr("GEOCODE_API_URL", client.DefaultGeocodeURL),
		CacheBackend:  os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr: envOr("MEMCACHED_ADDRS", "localhost:11211"),
		ValkeyAddr:    envOr("VALKEY_ADDR", "localhost:6379"),
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// SetupIntegrationService wires a weather service against the live forecast API
// and the configured cache backend, falling back to in-memory when the backend
// is unreachable. The returned cleanup closes the backend.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) (*service.WeatherService, cache.Store, func()) {
	t.Helper()
	fc := client.NewOpenMeteoClient(cfg.ForecastURL, 10*time.Second)

	var store cache.Store = cache.NewInMemoryCache()
	cleanup := func() {}

	switch cfg.CacheBackend {
	case "memcached":
		mc := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := mc.Ping(ctx); err != nil {
			t.Logf("memcached not available (%v), using in-memory cache", err)
			break
		}
		store = mc
		cleanup = func() { _ = mc.Close() }
	case "valkey":
		vc, err := cache.NewValkeyCache(cache.ValkeyConfig{Addr: cfg.ValkeyAddr, ConnectTimeout: time.Second})
		if err != nil {
			t.Logf("valkey not available (%v), using in-memory cache", err)
			break
		}
		store = vc
		cleanup = func() { _ = vc.Close() }
	}

	return service.NewWeatherService(fc, store, cache.DefaultTTL, false), store, cleanup
}

// SetupIntegrationGeocoder returns a geocoder against the live geocoding API.
func SetupIntegrationGeocoder(t *testing.T, cfg IntegrationTestConfig) client.Geocoder {
	t.Helper()
	return client.NewGeocodeClient(cfg.GeocodeURL, 10*time.Second)
}
