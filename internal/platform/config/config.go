package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process level configuration for the discovery gateway and
// the agrictl CLI.
type Config struct {
	Addr      string
	LogLevel  string
	LogFormat string
	// KindsFile optionally replaces the embedded marketplace kind table.
	KindsFile string

	Upstream  UpstreamConfig
	Redis     RedisConfig
	Session   SessionConfig
	Map       MapConfig
	RateLimit RateLimitConfig
}

// UpstreamConfig points at the external marketplace API.
type UpstreamConfig struct {
	BaseURL string
	// MediaBaseURL prefixes relative image paths; defaults to BaseURL.
	MediaBaseURL string
	Timeout      time.Duration
}

// RedisConfig configures the optional session store backend. An empty URL
// selects the in-memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SessionConfig controls the session cookie and lifetime.
type SessionConfig struct {
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
	LoginURL     string
}

// MapConfig holds the viewport defaults used when no marker is visible and
// the zoom cap applied when fitting markers.
type MapConfig struct {
	DefaultLat  float64
	DefaultLng  float64
	DefaultZoom int
	MaxZoom     int
	Padding     float64
}

// RateLimitConfig bounds API requests per client. Requests of zero disables
// limiting.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Defaults for the map surface. The default center is the nominal centroid of
// the consultancy's East African service region.
const (
	DefaultMapLat  = 0.0236
	DefaultMapLng  = 37.9062
	DefaultMapZoom = 6
	DefaultMaxZoom = 12
	DefaultPadding = 0.1
)

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var errs []string
	cfg := Config{
		Addr:      envString("AGRIMARKET_ADDR", ":8080"),
		LogLevel:  envString("AGRIMARKET_LOG_LEVEL", "info"),
		LogFormat: envString("AGRIMARKET_LOG_FORMAT", "json"),
		KindsFile: os.Getenv("AGRIMARKET_KINDS_FILE"),
		Upstream: UpstreamConfig{
			BaseURL:      strings.TrimRight(envString("AGRIMARKET_API_BASE_URL", "http://localhost:5000"), "/"),
			MediaBaseURL: strings.TrimRight(os.Getenv("AGRIMARKET_MEDIA_BASE_URL"), "/"),
			Timeout:      envDuration("AGRIMARKET_UPSTREAM_TIMEOUT", 10*time.Second, &errs),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10, &errs),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2, &errs),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second, &errs),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second, &errs),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second, &errs),
		},
		Session: SessionConfig{
			TTL:          envDuration("AGRIMARKET_SESSION_TTL", 24*time.Hour, &errs),
			CookieName:   envString("AGRIMARKET_SESSION_COOKIE", "agrimarket_session"),
			CookieSecure: os.Getenv("AGRIMARKET_SESSION_COOKIE_SECURE") == "true",
			LoginURL:     envString("AGRIMARKET_LOGIN_URL", "/login"),
		},
		Map: MapConfig{
			DefaultLat:  envFloat("AGRIMARKET_MAP_DEFAULT_LAT", DefaultMapLat, &errs),
			DefaultLng:  envFloat("AGRIMARKET_MAP_DEFAULT_LNG", DefaultMapLng, &errs),
			DefaultZoom: envInt("AGRIMARKET_MAP_DEFAULT_ZOOM", DefaultMapZoom, &errs),
			MaxZoom:     envInt("AGRIMARKET_MAP_MAX_ZOOM", DefaultMaxZoom, &errs),
			Padding:     envFloat("AGRIMARKET_MAP_PADDING", DefaultPadding, &errs),
		},
		RateLimit: RateLimitConfig{
			Requests: envInt("AGRIMARKET_RATE_LIMIT_REQUESTS", 120, &errs),
			Window:   envDuration("AGRIMARKET_RATE_LIMIT_WINDOW", time.Minute, &errs),
		},
	}
	if cfg.Upstream.MediaBaseURL == "" {
		cfg.Upstream.MediaBaseURL = cfg.Upstream.BaseURL
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration, errs *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %v", key, err))
		return fallback
	}
	return d
}

func envInt(key string, fallback int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %v", key, err))
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64, errs *[]string) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %v", key, err))
		return fallback
	}
	return f
}
