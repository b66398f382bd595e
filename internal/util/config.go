package util

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

//nolint:gochecknoglobals // here its ok
var once sync.Once

func init() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	})
}

const (
	defaultServerAddr      = "localhost:8080"
	defaultWriteTimeout    = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultGracefulTimeout = 5 * time.Second

	defaultCSRFCookieTTL = 30 * time.Minute

	defaultClientTimeout = 30 * time.Second
	defaultRefreshAhead  = 60 * time.Second

	defaultRateLimit     = 10
	defaultRateInterval  = 1 * time.Minute
	defaultRateBlockTime = 5 * time.Minute
)

type ServerConfig struct {
	ServerAddr      string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

func NewServerConfig() *ServerConfig {
	addr := os.Getenv("SERVER_ADDRESS")
	if addr == "" {
		addr = defaultServerAddr
	}

	return &ServerConfig{
		ServerAddr:      addr,
		WriteTimeout:    parseDurationOrDefault("WRITE_TIMEOUT", defaultWriteTimeout),
		ReadTimeout:     parseDurationOrDefault("READ_TIMEOUT", defaultReadTimeout),
		IdleTimeout:     parseDurationOrDefault("IDLE_TIMEOUT", defaultIdleTimeout),
		GracefulTimeout: parseDurationOrDefault("GRACEFUL_TIMEOUT", defaultGracefulTimeout),
	}
}

type GateConfig struct {
	UpstreamURL   *url.URL
	SecureCookies bool
	CSRFCookieTTL time.Duration
}

func NewGateConfig() *GateConfig {
	raw := os.Getenv("UPSTREAM_URL")
	if raw == "" {
		log.Fatal("UPSTREAM_URL is not set")
	}
	upstream, err := url.Parse(raw)
	if err != nil {
		log.Fatalf("Invalid UPSTREAM_URL %q: %v", raw, err)
	}

	return &GateConfig{
		UpstreamURL:   upstream,
		SecureCookies: parseBoolOrDefault("SECURE_COOKIES", true),
		CSRFCookieTTL: parseDurationOrDefault("CSRF_COOKIE_TTL", defaultCSRFCookieTTL),
	}
}

type ClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RefreshEnabled bool
	RefreshAhead   time.Duration
}

func NewClientConfig() *ClientConfig {
	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		log.Fatal("API_BASE_URL is not set")
	}

	return &ClientConfig{
		BaseURL:        baseURL,
		Timeout:        parseDurationOrDefault("CLIENT_TIMEOUT", defaultClientTimeout),
		RefreshEnabled: parseBoolOrDefault("TOKEN_REFRESH_ENABLED", true),
		RefreshAhead:   parseDurationOrDefault("TOKEN_REFRESH_AHEAD", defaultRefreshAhead),
	}
}

type RateLimiterConfig struct {
	Limit     int
	Interval  time.Duration
	BlockTime time.Duration
}

func NewRateLimiterConfig() *RateLimiterConfig {
	limitStr := os.Getenv("RATE_LIMIT_LIMIT")
	limit := defaultRateLimit
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		} else {
			log.Printf("Invalid RATE_LIMIT_LIMIT: %s, using default %d", limitStr, defaultRateLimit)
		}
	}

	interval := parseDurationOrDefault("RATE_LIMIT_INTERVAL", defaultRateInterval)
	blockTime := parseDurationOrDefault("RATE_LIMIT_BLOCK_TIME", defaultRateBlockTime)

	return &RateLimiterConfig{
		Limit:     limit,
		Interval:  interval,
		BlockTime: blockTime,
	}
}

func parseDurationOrDefault(varName string, def time.Duration) time.Duration {
	if v := os.Getenv(varName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid duration in %s: %s, using default %s", varName, v, def)
	}
	return def
}

func parseBoolOrDefault(varName string, def bool) bool {
	if v := os.Getenv(varName); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("Invalid boolean in %s: %s, using default %t", varName, v, def)
	}
	return def
}
