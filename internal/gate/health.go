package gate

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const readyCheckTimeout = 2 * time.Second

// ReadyCheck probes one dependency of the edge process (e.g. the redis
// backing store or the upstream API).
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

func (s *Server) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readinessHandler(c echo.Context) error {
	for _, check := range s.readyChecks {
		ctx, cancel := context.WithTimeout(c.Request().Context(), readyCheckTimeout)
		err := check.Check(ctx)
		cancel()

		if err != nil {
			s.log.Warnw("readiness check failed", "check", check.Name, "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"failed": check.Name,
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
