package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kjstillabower/portfolio-service/internal/observability"
)

// DefaultForecastURL is the Open-Meteo forecast endpoint.
const DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

const maxBodyBytes = 1 << 20

// ForecastClient fetches a raw forecast for one location. Implementations make
// exactly one request per call and never retry.
type ForecastClient interface {
	GetForecast(ctx context.Context, q ForecastQuery) (ForecastResponse, error)
}

// ForecastQuery selects a location. Timezone is sent verbatim ("auto" lets the provider pick).
type ForecastQuery struct {
	Latitude  float64
	Longitude float64
	Timezone  string
}

// ForecastResponse is the subset of the Open-Meteo payload the service consumes.
// CurrentWeather is always non-nil on a nil error.
type ForecastResponse struct {
	CurrentWeather *CurrentWeather `json:"current_weather"`
	Daily          *DailySeries    `json:"daily"`
	DailyUnits     *DailyUnits     `json:"daily_units"`
}

type CurrentWeather struct {
	Temperature float64 `json:"temperature"`
	Windspeed   float64 `json:"windspeed"`
	Weathercode float64 `json:"weathercode"`
	Time        string  `json:"time"`
}

// DailySeries holds per-day values; elements may be null.
type DailySeries struct {
	TemperatureMax []*float64 `json:"temperature_2m_max"`
	TemperatureMin []*float64 `json:"temperature_2m_min"`
}

type DailyUnits struct {
	TemperatureMax string `json:"temperature_2m_max"`
}

// OpenMeteoClient calls the Open-Meteo forecast API.
type OpenMeteoClient struct {
	apiURL string
	client *http.Client
}

// NewOpenMeteoClient creates a client. timeout bounds the whole exchange,
// including reading the body; it is the only deadline applied.
func NewOpenMeteoClient(apiURL string, timeout time.Duration) *OpenMeteoClient {
	if apiURL == "" {
		apiURL = DefaultForecastURL
	}
	return &OpenMeteoClient{
		apiURL: apiURL,
		client: &http.Client{Timeout: timeout},
	}
}

// GetForecast requests current conditions plus daily max/min temperature.
func (c *OpenMeteoClient) GetForecast(ctx context.Context, q ForecastQuery) (ForecastResponse, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	params.Set("current_weather", "true")
	params.Set("daily", "temperature_2m_max,temperature_2m_min")
	params.Set("timezone", q.Timezone)

	var out ForecastResponse
	if err := getJSON(ctx, c.client, ProviderOpenMeteo, c.apiURL, params, &out); err != nil {
		return ForecastResponse{}, err
	}
	if out.CurrentWeather == nil {
		return ForecastResponse{}, &UpstreamError{Provider: ProviderOpenMeteo, StatusCode: http.StatusOK, Reason: "response missing current_weather"}
	}
	return out, nil
}

// getJSON performs one GET and decodes a 2xx JSON body into out. Failures are
// reported as *TransportError or *UpstreamError and recorded in the upstream metrics.
func getJSON(ctx context.Context, hc *http.Client, provider, rawURL string, params url.Values, out any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid %s URL: %w", provider, err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		observability.ObserveUpstream(provider, "error", time.Since(start))
		return &TransportError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	observability.ObserveUpstream(provider, observability.StatusLabel(resp.StatusCode), time.Since(start))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Provider: provider, StatusCode: resp.StatusCode}
	}
	if err != nil {
		return &TransportError{Provider: provider, Err: fmt.Errorf("read body: %w", err)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamError{Provider: provider, StatusCode: resp.StatusCode, Reason: "decode response: " + err.Error()}
	}
	return nil
}
