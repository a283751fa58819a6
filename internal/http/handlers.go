package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/portfolio-service/internal/catalog"
	"github.com/kjstillabower/portfolio-service/internal/client"
	"github.com/kjstillabower/portfolio-service/internal/lifecycle"
	"github.com/kjstillabower/portfolio-service/internal/models"
	"github.com/kjstillabower/portfolio-service/internal/observability"
	"github.com/kjstillabower/portfolio-service/internal/traffic"
	"github.com/kjstillabower/portfolio-service/internal/validation"
)

const serviceName = "portfolio-service"

// WeatherProvider returns the normalized forecast for a coordinate pair.
type WeatherProvider interface {
	GetWeather(ctx context.Context, lat, lon float64, tz string) (models.ForecastResult, error)
}

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int // 0 when rate limiter disabled
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	// CachePing, when set, checks reachability of a remote cache backend.
	CachePing func(ctx context.Context) error
	// GitHubState, when set, reports the GitHub breaker state.
	GitHubState func() string
}

// Deps holds the collaborators a Handler serves from. Any of Geocoder and
// Repos may be nil, in which case their endpoints answer 503.
type Deps struct {
	Weather  WeatherProvider
	Geocoder client.Geocoder
	Repos    client.RepoLister
	Catalog  *catalog.Catalog
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weather        WeatherProvider
	geocoder       client.Geocoder
	repos          client.RepoLister
	catalog        *catalog.Catalog
	healthConfig   *HealthConfig
	logger         *zap.Logger
	queryMinLength int
	queryMaxLength int

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. queryMinLength and queryMaxLength bound
// geocoding queries; zero disables a bound.
func NewHandler(deps Deps, healthConfig *HealthConfig, logger *zap.Logger, queryMinLength, queryMaxLength int) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	return &Handler{
		weather:        deps.Weather,
		geocoder:       deps.Geocoder,
		repos:          deps.Repos,
		catalog:        deps.Catalog,
		healthConfig:   healthConfig,
		logger:         logger,
		queryMinLength: queryMinLength,
		queryMaxLength: queryMaxLength,
	}
}

// GetWeather handles GET /api/weather?lat=&lon=&tz=.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, err := validation.ParseCoordinates(q.Get("lat"), q.Get("lon"))
	if err != nil {
		writeError(w, http.StatusBadRequest, validation.ErrInvalidInput.Error())
		return
	}

	result, err := h.weather.GetWeather(r.Context(), lat, lon, q.Get("tz"))
	if err != nil {
		status, msg := weatherErrorResponse(err)
		if status != http.StatusBadRequest {
			traffic.RecordError()
			observability.LoggerFrom(r.Context()).Warn("weather fetch failed",
				zap.Error(err),
				zap.String("category", string(client.CategorizeError(err))))
		}
		writeError(w, status, msg)
		return
	}
	traffic.RecordSuccess()
	writeJSON(w, http.StatusOK, result)
}

func weatherErrorResponse(err error) (int, string) {
	if errors.Is(err, validation.ErrInvalidInput) {
		return http.StatusBadRequest, validation.ErrInvalidInput.Error()
	}
	var ue *client.UpstreamError
	if errors.As(err, &ue) {
		return http.StatusBadGateway, "Open-Meteo error"
	}
	var te *client.TransportError
	if errors.As(err, &te) {
		return http.StatusInternalServerError, te.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

// GetGeocode handles GET /api/geocode?q=.
func (h *Handler) GetGeocode(w http.ResponseWriter, r *http.Request) {
	query, err := validation.ValidatePlaceQuery(r.URL.Query().Get("q"), h.queryMinLength, h.queryMaxLength)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.geocoder == nil {
		writeError(w, http.StatusServiceUnavailable, "geocoding unavailable")
		return
	}

	place, err := h.geocoder.Search(r.Context(), query)
	if err != nil {
		var ue *client.UpstreamError
		switch {
		case errors.Is(err, client.ErrPlaceNotFound):
			writeError(w, http.StatusNotFound, "not found")
		case errors.As(err, &ue):
			observability.LoggerFrom(r.Context()).Warn("geocode failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "Geocode error")
		default:
			observability.LoggerFrom(r.Context()).Warn("geocode failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, place)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"weatherApi": "healthy"}
	if result.status == "degraded" {
		checks["weatherApi"] = "unhealthy"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		if err := h.healthConfig.CachePing(ctx); err != nil {
			checks["cache"] = "unhealthy"
			observability.LoggerFrom(r.Context()).Warn("cache ping failed", zap.Error(err))
		} else {
			checks["cache"] = "healthy"
		}
		cancel()
	}
	if h.healthConfig != nil && h.healthConfig.GitHubState != nil {
		checks["githubBreaker"] = h.healthConfig.GitHubState()
	}

	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   serviceName,
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	cfg := h.healthConfig
	if cfg.RateLimitRPS > 0 && cfg.OverloadWindow > 0 && cfg.OverloadThresholdPct > 0 {
		threshold := float64(cfg.RateLimitRPS) * cfg.OverloadWindow.Seconds() * float64(cfg.OverloadThresholdPct) / 100
		if float64(traffic.RequestCount(cfg.OverloadWindow)) > threshold {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
	}
	if cfg.DegradedWindow > 0 && cfg.DegradedErrorPct > 0 {
		errs, total := traffic.ErrorRate(cfg.DegradedWindow)
		if total > 0 && float64(errs)*100/float64(total) >= float64(cfg.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the flat {"error": message} body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
