package gate

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/catchup-feed/edge-gateway/internal/util"
)

const pruneThreshold = 1024

// LoginRateLimit throttles login attempts per client IP. Only POST /login is
// limited; everything else passes straight through.
func LoginRateLimit(cfg *util.RateLimiterConfig) echo.MiddlewareFunc {
	limiter := newIPRateLimiter(cfg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			if r.Method != http.MethodPost || r.URL.Path != loginPath {
				return next(c)
			}

			if !limiter.allow(c.RealIP()) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts")
			}
			return next(c)
		}
	}
}

type ipRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*ipRateEntry
	limit   rate.Limit
	burst   int
	maxAge  time.Duration
}

type ipRateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(cfg *util.RateLimiterConfig) *ipRateLimiter {
	return &ipRateLimiter{
		entries: make(map[string]*ipRateEntry),
		limit:   rate.Every(cfg.Interval / time.Duration(cfg.Limit)),
		burst:   cfg.Limit,
		maxAge:  cfg.BlockTime,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[ip]
	if !ok {
		entry = &ipRateEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = entry
	}
	entry.lastSeen = time.Now()

	if len(l.entries) > pruneThreshold {
		l.pruneLocked()
	}

	return entry.limiter.Allow()
}

// pruneLocked evicts limiters that have been idle longer than maxAge so the
// map does not grow without bound. Callers must hold the mutex.
func (l *ipRateLimiter) pruneLocked() {
	cutoff := time.Now().Add(-l.maxAge)
	for ip, entry := range l.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(l.entries, ip)
		}
	}
}
