package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/kjstillabower/portfolio-service/internal/models"
	"github.com/kjstillabower/portfolio-service/internal/observability"
)

// WeatherFetcher is implemented by the service layer. Fetching through it
// populates the cache, so CacheWarmer never writes to a Store directly.
type WeatherFetcher interface {
	GetWeather(ctx context.Context, lat, lon float64, tz string) (models.ForecastResult, error)
}

// CacheWarmer prefetches forecasts for a fixed list of locations.
type CacheWarmer struct {
	fetcher WeatherFetcher
	logger  *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer that uses the given fetcher and logger.
func NewCacheWarmer(fetcher WeatherFetcher, logger *zap.Logger) *CacheWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheWarmer{fetcher: fetcher, logger: logger}
}

// Warm fetches every location concurrently. Failures are joined into the returned error.
func (w *CacheWarmer) Warm(ctx context.Context, locations []models.Coordinates) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	w.logger.Info("warming cache", zap.Int("locations", len(locations)))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, loc := range locations {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.fetcher.GetWeather(ctx, loc.Latitude, loc.Longitude, loc.Timezone); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("warm %s: %w", NewKey(loc.Latitude, loc.Longitude, loc.Timezone), err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	w.logger.Info("cache warming complete",
		zap.Int("locations", len(locations)),
		zap.Int("errors", len(errs)),
		zap.Float64("duration_seconds", duration),
	)
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %w", errors.Join(errs...))
	}
	return nil
}

// WarmPeriodic warms immediately and then every interval until ctx is done.
// A run that overlaps the next tick is not started twice.
func (w *CacheWarmer) WarmPeriodic(ctx context.Context, locations []models.Coordinates, interval time.Duration) error {
	if len(locations) == 0 {
		w.logger.Info("no warm locations configured; warming disabled")
		return nil
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	_, err := s.Every(interval).Do(func() {
		if err := w.Warm(ctx, locations); err != nil {
			w.logger.Warn("periodic cache warm failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule cache warming: %w", err)
	}
	s.StartAsync()

	<-ctx.Done()
	s.Stop()
	return ctx.Err()
}
