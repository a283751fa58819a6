package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/portfolio-service/internal/models"
)

// Config holds service configuration loaded from .env, YAML and env.
type Config struct {
	ServerPort string
	StaticDir  string

	WeatherAPIURL     string
	WeatherAPITimeout time.Duration

	GeocodeAPIURL         string
	GeocodeAPITimeout     time.Duration
	GeocodeQueryMinLength int
	GeocodeQueryMaxLength int

	GitHubAPIURL          string
	GitHubUser            string
	GitHubToken           string
	GitHubPerPage         int
	GitHubTimeout         time.Duration
	GitHubBreakerFailures uint32
	GitHubBreakerTimeout  time.Duration

	RequestTimeout time.Duration

	CacheBackend    string // "in_memory", "memcached" or "valkey"
	CacheTTL        time.Duration
	CoalesceEnabled bool

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	ValkeyAddr     string
	ValkeyPassword string
	ValkeyDB       int

	WarmLocations []models.Coordinates
	WarmInterval  time.Duration

	RateLimitRPS   int
	RateLimitBurst int

	CORSAllowedOrigins []string
	CatalogPath        string

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	OverloadWindow       time.Duration
	OverloadThresholdPct int
	DegradedWindow       time.Duration
	DegradedErrorPct     int
}

type fileConfig struct {
	Server struct {
		Port      string `yaml:"port"`
		StaticDir string `yaml:"static_dir"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	GeocodeAPI struct {
		URL            string `yaml:"url"`
		Timeout        string `yaml:"timeout"`
		QueryMinLength int    `yaml:"query_min_length"`
		QueryMaxLength int    `yaml:"query_max_length"`
	} `yaml:"geocode_api"`

	GitHub struct {
		APIURL          string `yaml:"api_url"`
		User            string `yaml:"user"`
		PerPage         int    `yaml:"per_page"`
		Timeout         string `yaml:"timeout"`
		BreakerFailures uint32 `yaml:"breaker_failures"`
		BreakerTimeout  string `yaml:"breaker_timeout"`
	} `yaml:"github"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend         string `yaml:"backend"`
		TTL             string `yaml:"ttl"`
		CoalesceEnabled bool   `yaml:"coalesce_enabled"`
		Memcached       struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Valkey struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"valkey"`
		WarmLocations []models.Coordinates `yaml:"warm_locations"`
		WarmInterval  string               `yaml:"warm_interval"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	Catalog struct {
		Path string `yaml:"path"`
	} `yaml:"catalog"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
	} `yaml:"lifecycle"`
}

type secretsFile struct {
	GitHubToken    string `yaml:"github_token"`
	ValkeyPassword string `yaml:"valkey_password"`
}

// Load reads configuration relative to the working directory. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadDir(cwd)
}

// LoadDir reads root/.env (optional), root/config/{ENV_NAME}.yaml (default dev)
// and root/config/secrets.yaml (optional). Environment variables override files.
func LoadDir(root string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(root, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	sec, err := readSecrets(filepath.Join(root, "config", "secrets.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, "3000")
	cfg.StaticDir = firstNonEmpty(fc.Server.StaticDir, "public")

	cfg.WeatherAPIURL = firstNonEmpty(os.Getenv("WEATHER_API_URL"), fc.WeatherAPI.URL, "https://api.open-meteo.com/v1/forecast")
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 10*time.Second)

	cfg.GeocodeAPIURL = firstNonEmpty(os.Getenv("GEOCODE_API_URL"), fc.GeocodeAPI.URL, "https://geocoding-api.open-meteo.com/v1/search")
	cfg.GeocodeAPITimeout = parseDuration(fc.GeocodeAPI.Timeout, 5*time.Second)
	cfg.GeocodeQueryMinLength = fc.GeocodeAPI.QueryMinLength
	if cfg.GeocodeQueryMinLength <= 0 {
		cfg.GeocodeQueryMinLength = 1
	}
	cfg.GeocodeQueryMaxLength = fc.GeocodeAPI.QueryMaxLength
	if cfg.GeocodeQueryMaxLength <= 0 {
		cfg.GeocodeQueryMaxLength = 100
	}

	cfg.GitHubAPIURL = firstNonEmpty(fc.GitHub.APIURL, "https://api.github.com")
	cfg.GitHubUser = firstNonEmpty(os.Getenv("GITHUB_USER"), fc.GitHub.User, "Shaillaja")
	cfg.GitHubToken = firstNonEmpty(os.Getenv("GITHUB_TOKEN"), sec.GitHubToken)
	cfg.GitHubPerPage = fc.GitHub.PerPage
	if cfg.GitHubPerPage <= 0 {
		cfg.GitHubPerPage = 6
	}
	cfg.GitHubTimeout = parseDuration(fc.GitHub.Timeout, 5*time.Second)
	cfg.GitHubBreakerFailures = fc.GitHub.BreakerFailures
	if cfg.GitHubBreakerFailures == 0 {
		cfg.GitHubBreakerFailures = 5
	}
	cfg.GitHubBreakerTimeout = parseDuration(fc.GitHub.BreakerTimeout, 30*time.Second)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)

	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(firstNonEmpty(os.Getenv("CACHE_BACKEND"), fc.Cache.Backend, "in_memory")))
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 30*time.Minute)
	cfg.CoalesceEnabled = fc.Cache.CoalesceEnabled

	cfg.MemcachedAddrs = strings.TrimSpace(firstNonEmpty(os.Getenv("MEMCACHED_ADDRS"), fc.Cache.Memcached.Addrs, "localhost:11211"))
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.ValkeyAddr = strings.TrimSpace(firstNonEmpty(os.Getenv("VALKEY_ADDR"), fc.Cache.Valkey.Addr, "localhost:6379"))
	cfg.ValkeyPassword = firstNonEmpty(os.Getenv("VALKEY_PASSWORD"), sec.ValkeyPassword)
	cfg.ValkeyDB = fc.Cache.Valkey.DB
	if v := os.Getenv("VALKEY_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid VALKEY_DB %q: %w", v, err)
		}
		cfg.ValkeyDB = db
	}

	cfg.WarmLocations = fc.Cache.WarmLocations
	cfg.WarmInterval = parseDurationOrZero(fc.Cache.WarmInterval, 0)

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	cfg.CORSAllowedOrigins = fc.CORS.AllowedOrigins
	cfg.CatalogPath = strings.TrimSpace(fc.Catalog.Path)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.OverloadWindow = parseDuration(fc.Lifecycle.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Lifecycle.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}
	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Lifecycle.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readSecrets(path string) (secretsFile, error) {
	var sec secretsFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sec, nil
		}
		return sec, fmt.Errorf("read secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return sec, fmt.Errorf("parse secrets file: %w", err)
	}
	return sec, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero and negative durations are returned as-is.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate checks loaded values. RequestTimeout is raised to
// WeatherAPITimeout+1s when it is not already above it.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + time.Second
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached", "valkey":
	default:
		return fmt.Errorf("cache.backend must be in_memory, memcached or valkey, got %q", cfg.CacheBackend)
	}
	if cfg.GeocodeQueryMinLength > cfg.GeocodeQueryMaxLength {
		return fmt.Errorf("geocode_api.query_min_length %d exceeds query_max_length %d", cfg.GeocodeQueryMinLength, cfg.GeocodeQueryMaxLength)
	}
	if cfg.WarmInterval < 0 {
		return fmt.Errorf("cache.warm_interval must not be negative")
	}
	for i, loc := range cfg.WarmLocations {
		if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
			return fmt.Errorf("cache.warm_locations[%d]: coordinates out of range", i)
		}
	}
	return nil
}
