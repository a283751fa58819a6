package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/portfolio-service/internal/cache"
	"github.com/kjstillabower/portfolio-service/internal/client"
	"github.com/kjstillabower/portfolio-service/internal/models"
	"github.com/kjstillabower/portfolio-service/internal/observability"
	"github.com/kjstillabower/portfolio-service/internal/validation"
)

// WeatherService returns forecasts through a cache-aside read: a fresh entry is
// served as is, anything else costs exactly one upstream request.
type WeatherService struct {
	client    client.ForecastClient
	store     cache.Store
	ttl       time.Duration
	now       func() time.Time
	stampede  *stampedeTracker
	coalescer *requestCoalescer // nil unless coalescing is enabled
}

// Option customizes a WeatherService.
type Option func(*WeatherService)

// WithClock replaces the wall clock used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(s *WeatherService) { s.now = now }
}

// NewWeatherService creates a WeatherService. A zero ttl means cache.DefaultTTL.
// With coalesceEnabled, overlapping misses for the same key share one upstream
// request; otherwise each refreshes independently and the last write wins.
func NewWeatherService(fc client.ForecastClient, store cache.Store, ttl time.Duration, coalesceEnabled bool, opts ...Option) *WeatherService {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	s := &WeatherService{
		client:   fc,
		store:    store,
		ttl:      ttl,
		now:      time.Now,
		stampede: newStampedeTracker(),
	}
	if coalesceEnabled {
		s.coalescer = newRequestCoalescer()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetWeather returns the forecast for the given coordinates. tz may be empty.
//
// Errors: validation.ErrInvalidInput for non-finite coordinates (no I/O is
// done), *client.UpstreamError or *client.TransportError when a refresh fails.
// A failed refresh never falls back to a stale entry and leaves the cache untouched.
func (s *WeatherService) GetWeather(ctx context.Context, lat, lon float64, tz string) (models.ForecastResult, error) {
	if err := validation.CheckCoordinates(lat, lon); err != nil {
		return models.ForecastResult{}, err
	}
	tz = validation.NormalizeTimezone(tz)
	key := cache.NewKey(lat, lon, tz)
	logger := observability.LoggerFrom(ctx)
	start := time.Now()

	entry, ok, err := s.store.Get(ctx, key)
	switch {
	case err != nil:
		observability.CacheErrorsTotal.WithLabelValues("get", string(client.CategorizeError(err))).Inc()
		observability.CacheMissesTotal.WithLabelValues("error").Inc()
		logger.Warn("cache get failed, fetching upstream", zap.String("key", key.String()), zap.Error(err))
	case ok && cache.IsFresh(entry, s.now(), s.ttl):
		observability.CacheHitsTotal.WithLabelValues("weather").Inc()
		logger.Debug("weather served", zap.String("key", key.String()), zap.Bool("cached", true))
		return entry.Value, nil
	case ok:
		observability.CacheMissesTotal.WithLabelValues("stale").Inc()
		logger.Debug("cache entry stale", zap.String("key", key.String()), zap.Time("fetched_at", entry.FetchedAt))
	default:
		observability.CacheMissesTotal.WithLabelValues("absent").Inc()
		logger.Debug("cache miss", zap.String("key", key.String()))
	}

	if n := s.stampede.begin(key); n > 1 {
		observability.CacheStampedeDetectedTotal.Inc()
		logger.Debug("concurrent refresh", zap.String("key", key.String()), zap.Int("in_progress", n))
	}
	defer s.stampede.end(key)

	// Detached from the caller's cancellation; only the client timeout bounds it.
	refreshCtx := context.WithoutCancel(ctx)
	refresh := func() (models.ForecastResult, error) {
		return s.refresh(refreshCtx, key, lat, lon, tz)
	}

	var result models.ForecastResult
	if s.coalescer != nil {
		result, err = s.coalescer.do(key, refresh)
	} else {
		result, err = refresh()
	}
	if err != nil {
		logger.Warn("weather refresh failed",
			zap.String("key", key.String()),
			zap.String("category", string(client.CategorizeError(err))),
			zap.Error(err),
		)
		return models.ForecastResult{}, err
	}
	logger.Debug("weather served", zap.String("key", key.String()), zap.Bool("cached", false), zap.Duration("duration", time.Since(start)))
	return result, nil
}

// refresh performs one upstream request and stores the normalized result.
// A failed store write is logged and counted; the caller still gets the value.
func (s *WeatherService) refresh(ctx context.Context, key cache.Key, lat, lon float64, tz string) (models.ForecastResult, error) {
	resp, err := s.client.GetForecast(ctx, client.ForecastQuery{Latitude: lat, Longitude: lon, Timezone: tz})
	if err != nil {
		return models.ForecastResult{}, fmt.Errorf("refresh %s: %w", key, err)
	}
	result := normalize(resp)

	if err := s.store.Put(ctx, key, result); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("put", string(client.CategorizeError(err))).Inc()
		observability.LoggerFrom(ctx).Warn("cache put failed", zap.String("key", key.String()), zap.Error(err))
	}
	return result, nil
}
