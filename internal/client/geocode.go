package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/kjstillabower/portfolio-service/internal/models"
)

// DefaultGeocodeURL is the Open-Meteo geocoding search endpoint.
const DefaultGeocodeURL = "https://geocoding-api.open-meteo.com/v1/search"

// Geocoder resolves a free-text place name to coordinates.
type Geocoder interface {
	Search(ctx context.Context, query string) (models.Place, error)
}

// GeocodeClient calls the Open-Meteo geocoding API and keeps the best match.
type GeocodeClient struct {
	apiURL string
	client *http.Client
}

func NewGeocodeClient(apiURL string, timeout time.Duration) *GeocodeClient {
	if apiURL == "" {
		apiURL = DefaultGeocodeURL
	}
	return &GeocodeClient{apiURL: apiURL, client: &http.Client{Timeout: timeout}}
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Country   string  `json:"country"`
	} `json:"results"`
}

// Search returns the first result for query, or ErrPlaceNotFound.
func (c *GeocodeClient) Search(ctx context.Context, query string) (models.Place, error) {
	params := url.Values{}
	params.Set("name", query)
	params.Set("count", "1")
	params.Set("language", "en")

	var out geocodeResponse
	if err := getJSON(ctx, c.client, ProviderGeocoding, c.apiURL, params, &out); err != nil {
		return models.Place{}, err
	}
	if len(out.Results) == 0 {
		return models.Place{}, ErrPlaceNotFound
	}
	best := out.Results[0]
	return models.Place{
		Name:      best.Name,
		Latitude:  best.Latitude,
		Longitude: best.Longitude,
		Country:   best.Country,
	}, nil
}
