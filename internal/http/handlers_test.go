package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/portfolio-service/internal/client"
	"github.com/kjstillabower/portfolio-service/internal/lifecycle"
	"github.com/kjstillabower/portfolio-service/internal/models"
	"github.com/kjstillabower/portfolio-service/internal/traffic"
	"github.com/kjstillabower/portfolio-service/internal/validation"
)

type weatherCall struct {
	lat, lon float64
	tz       string
}

type fakeWeather struct {
	mu     sync.Mutex
	result models.ForecastResult
	err    error
	calls  []weatherCall
}

func (f *fakeWeather) GetWeather(ctx context.Context, lat, lon float64, tz string) (models.ForecastResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, weatherCall{lat, lon, tz})
	return f.result, f.err
}

type fakeGeocoder struct {
	place models.Place
	err   error
	query string
}

func (f *fakeGeocoder) Search(ctx context.Context, query string) (models.Place, error) {
	f.query = query
	return f.place, f.err
}

type fakeRepos struct {
	repos []models.Repo
	err   error
}

func (f *fakeRepos) LatestRepos(ctx context.Context) ([]models.Repo, error) {
	return f.repos, f.err
}

var torontoForecast = models.ForecastResult{
	Now:   models.CurrentConditions{Temperature: 22, Windspeed: 10, Weathercode: 3, Time: "2024-05-01T12:00"},
	Daily: models.DailyRange{TMax: 24, TMin: 14, Unit: "°C"},
}

func newTestHandler(deps Deps, hc *HealthConfig) *Handler {
	return NewHandler(deps, hc, zap.NewNop(), 2, 100)
}

func serve(t *testing.T, h *Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	NewRouter(h, RouterConfig{}).ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	msg, _ := body["error"].(string)
	return msg
}

func TestHandler_GetWeather_Success(t *testing.T) {
	traffic.Reset()
	defer traffic.Reset()
	fw := &fakeWeather{result: torontoForecast}
	h := newTestHandler(Deps{Weather: fw}, nil)

	w := serve(t, h, http.MethodGet, "/api/weather?lat=43.6532&lon=-79.3832&tz=America/Toronto", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var got models.ForecastResult
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != torontoForecast {
		t.Errorf("body = %+v, want %+v", got, torontoForecast)
	}
	if len(fw.calls) != 1 || fw.calls[0] != (weatherCall{43.6532, -79.3832, "America/Toronto"}) {
		t.Errorf("calls = %+v", fw.calls)
	}
	if _, total := traffic.ErrorRate(time.Minute); total != 1 {
		t.Errorf("traffic total = %d, want 1", total)
	}
}

func TestHandler_GetWeather_Errors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		err        error
		wantStatus int
		wantBody   string
		wantCalls  int
	}{
		{"missing lat", "/api/weather?lon=1", nil, 400, "lat/lon required", 0},
		{"missing lon", "/api/weather?lat=1", nil, 400, "lat/lon required", 0},
		{"non numeric", "/api/weather?lat=abc&lon=1", nil, 400, "lat/lon required", 0},
		{"nan", "/api/weather?lat=NaN&lon=1", nil, 400, "lat/lon required", 0},
		{
			name:       "upstream status",
			target:     "/api/weather?lat=1&lon=2",
			err:        &client.UpstreamError{Provider: client.ProviderOpenMeteo, StatusCode: 503},
			wantStatus: 502, wantBody: "Open-Meteo error", wantCalls: 1,
		},
		{
			name:       "malformed upstream body",
			target:     "/api/weather?lat=1&lon=2",
			err:        &client.UpstreamError{Provider: client.ProviderOpenMeteo, StatusCode: 200, Reason: "missing current_weather"},
			wantStatus: 502, wantBody: "Open-Meteo error", wantCalls: 1,
		},
		{
			name:       "transport",
			target:     "/api/weather?lat=1&lon=2",
			err:        &client.TransportError{Provider: client.ProviderOpenMeteo, Err: errors.New("connection refused")},
			wantStatus: 500, wantBody: "open-meteo request failed: connection refused", wantCalls: 1,
		},
		{
			name:       "service invalid input",
			target:     "/api/weather?lat=1&lon=2",
			err:        validation.ErrInvalidInput,
			wantStatus: 400, wantBody: "lat/lon required", wantCalls: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fw := &fakeWeather{err: tc.err}
			h := newTestHandler(Deps{Weather: fw}, nil)

			w := serve(t, h, http.MethodGet, tc.target, "")

			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if got := decodeError(t, w); got != tc.wantBody {
				t.Errorf("error = %q, want %q", got, tc.wantBody)
			}
			if len(fw.calls) != tc.wantCalls {
				t.Errorf("service calls = %d, want %d", len(fw.calls), tc.wantCalls)
			}
		})
	}
}

func TestHandler_GetWeather_UpstreamErrorCountsTowardDegraded(t *testing.T) {
	traffic.Reset()
	defer traffic.Reset()
	h := newTestHandler(Deps{Weather: &fakeWeather{err: &client.UpstreamError{Provider: client.ProviderOpenMeteo, StatusCode: 500}}}, nil)

	serve(t, h, http.MethodGet, "/api/weather?lat=1&lon=2", "")
	serve(t, h, http.MethodGet, "/api/weather?lon=2", "")

	errs, total := traffic.ErrorRate(time.Minute)
	if errs != 1 || total != 1 {
		t.Errorf("ErrorRate() = (%d, %d), want (1, 1)", errs, total)
	}
}

func TestHandler_GetGeocode(t *testing.T) {
	toronto := models.Place{Name: "Toronto", Latitude: 43.70011, Longitude: -79.4163, Country: "Canada"}
	tests := []struct {
		name       string
		target     string
		geo        *fakeGeocoder
		wantStatus int
		wantErr    string
	}{
		{"success", "/api/geocode?q=Toronto", &fakeGeocoder{place: toronto}, 200, ""},
		{"empty", "/api/geocode?q=", &fakeGeocoder{}, 400, "q required"},
		{"blank", "/api/geocode?q=%20%20", &fakeGeocoder{}, 400, "q required"},
		{"too short", "/api/geocode?q=A", &fakeGeocoder{}, 400, "q too short"},
		{"invalid chars", "/api/geocode?q=Toronto%3Cscript%3E", &fakeGeocoder{}, 400, "q contains invalid characters"},
		{"not found", "/api/geocode?q=Nowhereville", &fakeGeocoder{err: client.ErrPlaceNotFound}, 404, "not found"},
		{
			"upstream", "/api/geocode?q=Toronto",
			&fakeGeocoder{err: &client.UpstreamError{Provider: client.ProviderGeocoding, StatusCode: 500}},
			502, "Geocode error",
		},
		{
			"transport", "/api/geocode?q=Toronto",
			&fakeGeocoder{err: &client.TransportError{Provider: client.ProviderGeocoding, Err: errors.New("timeout")}},
			500, "geocoding request failed: timeout",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(Deps{Geocoder: tc.geo}, nil)
			w := serve(t, h, http.MethodGet, tc.target, "")
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if tc.wantErr != "" {
				if got := decodeError(t, w); got != tc.wantErr {
					t.Errorf("error = %q, want %q", got, tc.wantErr)
				}
				return
			}
			var got models.Place
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != toronto {
				t.Errorf("place = %+v, want %+v", got, toronto)
			}
			if tc.geo.query != "Toronto" {
				t.Errorf("query = %q, want Toronto", tc.geo.query)
			}
		})
	}
}

func TestHandler_GetGeocode_NoGeocoder(t *testing.T) {
	h := newTestHandler(Deps{}, nil)
	w := serve(t, h, http.MethodGet, "/api/geocode?q=Toronto", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestHandler_GetHealth(t *testing.T) {
	traffic.Reset()
	lifecycle.Set(lifecycle.Serving)
	defer traffic.Reset()

	h := newTestHandler(Deps{}, &HealthConfig{
		CachePing:   func(ctx context.Context) error { return nil },
		GitHubState: func() string { return "closed" },
	})
	w := serve(t, h, http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Status  string            `json:"status"`
		Service string            `json:"service"`
		Checks  map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" || body.Service != "portfolio-service" {
		t.Errorf("body = %+v", body)
	}
	if body.Checks["cache"] != "healthy" || body.Checks["githubBreaker"] != "closed" || body.Checks["weatherApi"] != "healthy" {
		t.Errorf("checks = %v", body.Checks)
	}
}

func TestHandler_GetHealth_CachePingFails(t *testing.T) {
	traffic.Reset()
	lifecycle.Set(lifecycle.Serving)
	h := newTestHandler(Deps{}, &HealthConfig{
		CachePing: func(ctx context.Context) error { return errors.New("dial tcp: refused") },
	})
	w := serve(t, h, http.MethodGet, "/health", "")
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	_ = json.NewDecoder(w.Body).Decode(&body)
	if body.Checks["cache"] != "unhealthy" {
		t.Errorf("checks[cache] = %q, want unhealthy", body.Checks["cache"])
	}
}

func TestHandler_ComputeHealthStatus(t *testing.T) {
	tests := []struct {
		name       string
		cfg        *HealthConfig
		setup      func()
		wantStatus string
		wantCode   int
	}{
		{
			name:       "no config",
			setup:      func() {},
			wantStatus: "healthy", wantCode: 200,
		},
		{
			name: "shutting down wins",
			cfg:  &HealthConfig{},
			setup: func() {
				lifecycle.Set(lifecycle.ShuttingDown)
			},
			wantStatus: "shutting-down", wantCode: 503,
		},
		{
			name: "overloaded",
			cfg:  &HealthConfig{RateLimitRPS: 1, OverloadWindow: 10 * time.Second, OverloadThresholdPct: 50},
			setup: func() {
				for i := 0; i < 6; i++ {
					traffic.RecordDenied()
				}
			},
			wantStatus: "overloaded", wantCode: 503,
		},
		{
			name: "degraded",
			cfg:  &HealthConfig{DegradedWindow: time.Minute, DegradedErrorPct: 50},
			setup: func() {
				traffic.RecordError()
				traffic.RecordSuccess()
			},
			wantStatus: "degraded", wantCode: 503,
		},
		{
			name: "below error threshold",
			cfg:  &HealthConfig{DegradedWindow: time.Minute, DegradedErrorPct: 50},
			setup: func() {
				traffic.RecordError()
				traffic.RecordSuccess()
				traffic.RecordSuccess()
			},
			wantStatus: "healthy", wantCode: 200,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			traffic.Reset()
			lifecycle.Set(lifecycle.Serving)
			defer func() {
				traffic.Reset()
				lifecycle.Set(lifecycle.Serving)
			}()
			tc.setup()

			h := newTestHandler(Deps{}, tc.cfg)
			got := h.computeHealthStatus()
			if got.status != tc.wantStatus || got.statusCode != tc.wantCode {
				t.Errorf("computeHealthStatus() = %+v, want %s/%d", got, tc.wantStatus, tc.wantCode)
			}
		})
	}
}

func TestHandler_GetHealth_LogsTransition(t *testing.T) {
	traffic.Reset()
	lifecycle.Set(lifecycle.Serving)
	defer func() {
		traffic.Reset()
		lifecycle.Set(lifecycle.Serving)
	}()

	core, logs := observer.New(zapcore.InfoLevel)
	h := NewHandler(Deps{}, &HealthConfig{}, zap.New(core), 0, 0)
	router := mux.NewRouter()
	router.HandleFunc("/health", h.GetHealth)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	lifecycle.Set(lifecycle.ShuttingDown)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	entries := logs.FilterMessage("health status transition").All()
	if len(entries) != 1 {
		t.Fatalf("transition logs = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["previous_status"] != "healthy" || fields["current_status"] != "shutting-down" {
		t.Errorf("fields = %v", fields)
	}
}
