package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/catchup-feed/edge-gateway/internal/util"
)

func newRateLimitedEcho(limit int) *echo.Echo {
	e := echo.New()
	e.Use(LoginRateLimit(&util.RateLimiterConfig{
		Limit:     limit,
		Interval:  time.Minute,
		BlockTime: time.Minute,
	}))
	handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.Any("/", handler)
	e.Any("/*", handler)
	return e
}

func TestLoginRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("burst beyond limit is throttled", func(t *testing.T) {
		e := newRateLimitedEcho(3)

		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			rec := serve(e, req)
			require.Equal(t, http.StatusOK, rec.Code)
		}

		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := serve(e, req)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("limits are per client IP", func(t *testing.T) {
		e := newRateLimitedEcho(1)

		first := httptest.NewRequest(http.MethodPost, "/login", nil)
		first.RemoteAddr = "10.0.0.1:1234"
		require.Equal(t, http.StatusOK, serve(e, first).Code)

		second := httptest.NewRequest(http.MethodPost, "/login", nil)
		second.RemoteAddr = "10.0.0.2:1234"
		require.Equal(t, http.StatusOK, serve(e, second).Code)
	})

	t.Run("other routes and methods are unaffected", func(t *testing.T) {
		e := newRateLimitedEcho(1)

		for i := 0; i < 5; i++ {
			get := httptest.NewRequest(http.MethodGet, "/login", nil)
			get.RemoteAddr = "10.0.0.1:1234"
			require.Equal(t, http.StatusOK, serve(e, get).Code)

			post := httptest.NewRequest(http.MethodPost, "/api/articles", nil)
			post.RemoteAddr = "10.0.0.1:1234"
			require.Equal(t, http.StatusOK, serve(e, post).Code)
		}
	})
}
