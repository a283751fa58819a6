package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/kjstillabower/portfolio-service/internal/validation"
)

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

const (
	ErrorCategoryTimeout      ErrorCategory = "timeout"
	ErrorCategoryNetwork      ErrorCategory = "network"
	ErrorCategoryInvalidInput ErrorCategory = "invalid_input"
	ErrorCategoryNotFound     ErrorCategory = "not_found"
	ErrorCategoryRateLimited  ErrorCategory = "rate_limited"
	ErrorCategoryUpstream4xx  ErrorCategory = "upstream_4xx"
	ErrorCategoryUpstream5xx  ErrorCategory = "upstream_5xx"
	ErrorCategoryParsing      ErrorCategory = "parsing"
	ErrorCategoryCircuitOpen  ErrorCategory = "circuit_open"
	ErrorCategoryUnknown      ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory for metrics.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorCategoryTimeout
	}

	switch {
	case errors.Is(err, validation.ErrInvalidInput):
		return ErrorCategoryInvalidInput
	case errors.Is(err, ErrPlaceNotFound):
		return ErrorCategoryNotFound
	case errors.Is(err, ErrCircuitOpen):
		return ErrorCategoryCircuitOpen
	}

	var ue *UpstreamError
	if errors.As(err, &ue) {
		switch {
		case ue.Reason != "":
			return ErrorCategoryParsing
		case ue.StatusCode == http.StatusTooManyRequests:
			return ErrorCategoryRateLimited
		case ue.StatusCode >= 500:
			return ErrorCategoryUpstream5xx
		default:
			return ErrorCategoryUpstream4xx
		}
	}

	var te *TransportError
	if errors.As(err, &te) {
		return ErrorCategoryNetwork
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return ErrorCategoryNetwork
	}
	if strings.Contains(errStr, "unmarshal") || strings.Contains(errStr, "decode") {
		return ErrorCategoryParsing
	}
	return ErrorCategoryUnknown
}
