package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/portfolio-service/internal/cache"
	"github.com/kjstillabower/portfolio-service/internal/catalog"
	"github.com/kjstillabower/portfolio-service/internal/client"
	"github.com/kjstillabower/portfolio-service/internal/config"
	httphandler "github.com/kjstillabower/portfolio-service/internal/http"
	"github.com/kjstillabower/portfolio-service/internal/lifecycle"
	"github.com/kjstillabower/portfolio-service/internal/observability"
	"github.com/kjstillabower/portfolio-service/internal/service"
)

// cacheBackend is the store chosen by cache.backend plus its optional
// health probe and closer (both nil for in_memory).
type cacheBackend struct {
	store cache.Store
	ping  func(ctx context.Context) error
	close func() error
}

func newCacheBackend(cfg *config.Config, logger *zap.Logger) (cacheBackend, error) {
	switch cfg.CacheBackend {
	case "memcached":
		mc := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.MemcachedTimeout)
		defer cancel()
		if err := mc.Ping(ctx); err != nil {
			logger.Warn("memcached not reachable at startup", zap.String("addrs", cfg.MemcachedAddrs), zap.Error(err))
		}
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
		return cacheBackend{store: mc, ping: mc.Ping, close: mc.Close}, nil
	case "valkey":
		vc, err := cache.NewValkeyCache(cache.ValkeyConfig{
			Addr:     cfg.ValkeyAddr,
			Password: cfg.ValkeyPassword,
			DB:       cfg.ValkeyDB,
		})
		if err != nil {
			return cacheBackend{}, err
		}
		logger.Info("cache backend: valkey", zap.String("addr", cfg.ValkeyAddr), zap.Int("db", cfg.ValkeyDB))
		return cacheBackend{store: vc, ping: vc.Ping, close: vc.Close}, nil
	default:
		logger.Info("cache backend: in_memory")
		return cacheBackend{store: cache.NewInMemoryCache()}, nil
	}
}

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	lifecycle.Set(lifecycle.Starting)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	backend, err := newCacheBackend(cfg, logger)
	if err != nil {
		logger.Fatal("cache backend", zap.String("backend", cfg.CacheBackend), zap.Error(err))
	}

	forecastClient := client.NewOpenMeteoClient(cfg.WeatherAPIURL, cfg.WeatherAPITimeout)
	weatherService := service.NewWeatherService(forecastClient, backend.store, cfg.CacheTTL, cfg.CoalesceEnabled)

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			logger.Fatal("catalog", zap.String("path", cfg.CatalogPath), zap.Error(err))
		}
		logger.Info("catalog loaded", zap.String("path", cfg.CatalogPath), zap.Int("projects", len(cat.Projects())))
	}

	github := client.NewGitHubClient(client.GitHubConfig{
		BaseURL:         cfg.GitHubAPIURL,
		User:            cfg.GitHubUser,
		Token:           cfg.GitHubToken,
		PerPage:         cfg.GitHubPerPage,
		Timeout:         cfg.GitHubTimeout,
		BreakerFailures: cfg.GitHubBreakerFailures,
		BreakerTimeout:  cfg.GitHubBreakerTimeout,
	})

	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:       cfg.OverloadWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		RateLimitRPS:         cfg.RateLimitRPS,
		DegradedWindow:       cfg.DegradedWindow,
		DegradedErrorPct:     cfg.DegradedErrorPct,
		CachePing:            backend.ping,
		GitHubState:          func() string { return github.State().String() },
	}

	handler := httphandler.NewHandler(httphandler.Deps{
		Weather:  weatherService,
		Geocoder: client.NewGeocodeClient(cfg.GeocodeAPIURL, cfg.GeocodeAPITimeout),
		Repos:    github,
		Catalog:  cat,
	}, healthConfig, logger, cfg.GeocodeQueryMinLength, cfg.GeocodeQueryMaxLength)

	observability.RegisterTrafficGauges(cfg.OverloadWindow)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		Logger:         logger,
		Limiter:        limiter,
		RequestTimeout: cfg.RequestTimeout,
		StaticDir:      cfg.StaticDir,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	warmCtx, stopWarming := context.WithCancel(context.Background())
	defer stopWarming()
	if len(cfg.WarmLocations) > 0 {
		warmer := cache.NewCacheWarmer(weatherService, logger)
		go func() {
			if err := warmer.Warm(warmCtx, cfg.WarmLocations); err != nil {
				logger.Warn("cache warming failed", zap.Error(err))
			}
			if cfg.WarmInterval <= 0 {
				return
			}
			if err := warmer.WarmPeriodic(warmCtx, cfg.WarmLocations, cfg.WarmInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("periodic cache warming stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("static_dir", cfg.StaticDir))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()
	lifecycle.Set(lifecycle.Serving)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.Set(lifecycle.ShuttingDown)
	stopWarming()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if backend.close != nil {
		if err := backend.close(); err != nil {
			logger.Error("cache close", zap.String("backend", cfg.CacheBackend), zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
	if err := observability.FlushTelemetry(logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}
