package http

import (
	"net/http"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/portfolio-service/internal/observability"
)

// RouterConfig holds the transport settings for NewRouter.
type RouterConfig struct {
	Logger         *zap.Logger
	Limiter        *rate.Limiter // nil disables rate limiting
	RequestTimeout time.Duration
	StaticDir      string   // empty disables static file serving
	AllowedOrigins []string // empty allows any origin
}

// NewRouter wires the API, operational endpoints and static frontend.
// Rate limiting and the request timeout apply to /api only.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(RateLimitMiddleware(cfg.Limiter))
	api.Use(TimeoutMiddleware(cfg.RequestTimeout))
	api.HandleFunc("/weather", h.GetWeather).Methods(http.MethodGet)
	api.HandleFunc("/geocode", h.GetGeocode).Methods(http.MethodGet)
	api.HandleFunc("/projects", h.GetProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}", h.GetProject).Methods(http.MethodGet)
	api.HandleFunc("/skills", h.GetSkills).Methods(http.MethodGet)
	api.HandleFunc("/github/latest", h.GetGitHubLatest).Methods(http.MethodGet)
	api.HandleFunc("/contact", h.PostContact).Methods(http.MethodPost)
	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	if cfg.StaticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir))).Methods(http.MethodGet, http.MethodHead)
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", correlationHeader}),
		gorillahandlers.ExposedHeaders([]string{correlationHeader}),
	)(router)
}
