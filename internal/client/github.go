package client

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/kjstillabower/portfolio-service/internal/models"
	"github.com/kjstillabower/portfolio-service/internal/observability"
)

const (
	DefaultGitHubURL = "https://api.github.com"
	userAgent        = "portfolio-app"
)

// GitHubConfig configures GitHubClient. Zero values fall back to defaults.
type GitHubConfig struct {
	BaseURL string
	User    string
	Token   string
	PerPage int
	Timeout time.Duration

	// BreakerFailures consecutive failures open the breaker for BreakerTimeout.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// RepoLister lists a user's most recently updated public repositories.
type RepoLister interface {
	LatestRepos(ctx context.Context) ([]models.Repo, error)
}

// GitHubClient lists repositories through a circuit breaker so a GitHub outage
// fails fast instead of holding a request for the full timeout each time.
type GitHubClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	user    string
	perPage int
}

// NewGitHubClient creates a client. A non-empty Token is sent as a bearer token
// and lifts the unauthenticated rate limit.
func NewGitHubClient(cfg GitHubConfig) *GitHubClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGitHubURL
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 6
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/vnd.github+json")
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}

	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    ProviderGitHub,
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	observability.CircuitBreakerState.WithLabelValues(ProviderGitHub).Set(float64(gobreaker.StateClosed))

	return &GitHubClient{
		http:    rc,
		breaker: breaker,
		user:    cfg.User,
		perPage: cfg.PerPage,
	}
}

// breakerSuccess decides what counts against the breaker. Client errors such
// as an unknown user are GitHub working correctly; only 5xx, 429 and transport
// failures indicate an outage.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode < 500 && ue.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// State returns the breaker state for health reporting.
func (c *GitHubClient) State() gobreaker.State {
	return c.breaker.State()
}

type githubRepo struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	HTMLURL     string  `json:"html_url"`
	Language    *string `json:"language"`
	UpdatedAt   string  `json:"updated_at"`
	Stars       int     `json:"stargazers_count"`
}

// LatestRepos returns the user's repos sorted by last update, keeping only
// those with a description or a language.
func (c *GitHubClient) LatestRepos(ctx context.Context) ([]models.Repo, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return mapRepos(result.([]githubRepo)), nil
}

func (c *GitHubClient) fetch(ctx context.Context) ([]githubRepo, error) {
	var repos []githubRepo
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("user", c.user).
		SetQueryParams(map[string]string{
			"sort":     "updated",
			"per_page": strconv.Itoa(c.perPage),
		}).
		SetResult(&repos)
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.SetHeader("X-Correlation-ID", corrID)
	}

	start := time.Now()
	resp, err := req.Get("/users/{user}/repos")
	if err != nil {
		if resp != nil && resp.StatusCode() != 0 {
			observability.ObserveUpstream(ProviderGitHub, observability.StatusLabel(resp.StatusCode()), time.Since(start))
			return nil, &UpstreamError{Provider: ProviderGitHub, StatusCode: resp.StatusCode(), Reason: "decode response: " + err.Error()}
		}
		observability.ObserveUpstream(ProviderGitHub, "error", time.Since(start))
		return nil, &TransportError{Provider: ProviderGitHub, Err: err}
	}
	observability.ObserveUpstream(ProviderGitHub, observability.StatusLabel(resp.StatusCode()), time.Since(start))
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &UpstreamError{Provider: ProviderGitHub, StatusCode: resp.StatusCode()}
	}
	return repos, nil
}

func mapRepos(in []githubRepo) []models.Repo {
	out := make([]models.Repo, 0, len(in))
	for _, r := range in {
		if isBlank(r.Description) && isBlank(r.Language) {
			continue
		}
		out = append(out, models.Repo{
			Name:        r.Name,
			Description: r.Description,
			URL:         r.HTMLURL,
			Language:    r.Language,
			Updated:     r.UpdatedAt,
			Stars:       r.Stars,
		})
	}
	return out
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}
