package client

import (
	"errors"
	"fmt"
)

// Provider names used in errors, logs and the upstream metric labels.
const (
	ProviderOpenMeteo = "open-meteo"
	ProviderGeocoding = "geocoding"
	ProviderGitHub    = "github"
)

// UpstreamError means the provider answered but not with a usable success:
// a non-2xx status, or a 2xx whose body could not be used (Reason is set).
type UpstreamError struct {
	Provider   string
	StatusCode int
	Reason     string
}

func (e *UpstreamError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Provider, e.StatusCode)
}

// TransportError means the request never produced a response: DNS,
// connection or client timeout.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

var (
	// ErrPlaceNotFound is returned by geocoding when the query has no match.
	ErrPlaceNotFound = errors.New("not found")

	// ErrCircuitOpen is returned without calling GitHub while its breaker is open.
	ErrCircuitOpen = errors.New("github circuit breaker open")
)
