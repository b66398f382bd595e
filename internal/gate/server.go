package gate

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/catchup-feed/edge-gateway/internal/util"
)

const shutdownTimeout = 5 * time.Second

// Server runs the edge process: the gate middleware in front of a reverse
// proxy to the upstream frontend app, plus the edge's own health and
// readiness endpoints.
type Server struct {
	server          *echo.Echo
	gate            *Gate
	upstream        *url.URL
	rateLimiterCfg  *util.RateLimiterConfig
	readyChecks     []ReadyCheck
	log             *zap.SugaredLogger
	gracefulTimeout time.Duration
}

func NewServer(g *Gate, upstream *url.URL, sc *util.ServerConfig, rlc *util.RateLimiterConfig, checks []ReadyCheck, log *zap.SugaredLogger) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Server.Addr = sc.ServerAddr
	e.Server.WriteTimeout = sc.WriteTimeout
	e.Server.ReadTimeout = sc.ReadTimeout
	e.Server.IdleTimeout = sc.IdleTimeout
	e.HTTPErrorHandler = ErrorHandler(log)

	return &Server{
		server:          e,
		gate:            g,
		upstream:        upstream,
		rateLimiterCfg:  rlc,
		readyChecks:     checks,
		log:             log,
		gracefulTimeout: sc.GracefulTimeout,
	}
}

func (s *Server) Run(ctxBackground context.Context) {
	ctx, stop := signal.NotifyContext(ctxBackground, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.server.Use(echomiddleware.RequestLoggerWithConfig(loggerMiddlewareConfig(s.log)))
	s.server.Use(LoginRateLimit(s.rateLimiterCfg))
	s.server.Use(s.gate.Middleware())

	s.server.GET("/api/health", s.healthHandler)
	s.server.GET("/api/readiness", s.readinessHandler)

	// Everything the edge does not answer itself is forwarded upstream.
	s.server.Use(echomiddleware.ProxyWithConfig(echomiddleware.ProxyConfig{
		Skipper: func(c echo.Context) bool {
			return isLocalEndpoint(c.Request().URL.Path)
		},
		Balancer: echomiddleware.NewRoundRobinBalancer([]*echomiddleware.ProxyTarget{
			{URL: s.upstream},
		}),
	}))

	s.ListenGracefulShutdown(ctx)
}

func (s *Server) ListenGracefulShutdown(ctx context.Context) {
	go func() {
		err := s.server.Start(s.server.Server.Addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()
	s.log.Infof("edge gateway listening on: %s, upstream: %s", s.server.Server.Addr, s.upstream)

	<-ctx.Done()
	s.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	if err != nil {
		s.log.Errorf("shutdown: %v", err)
	}

	longShutdown := make(chan struct{}, 1)

	go func() {
		time.Sleep(s.gracefulTimeout)
		longShutdown <- struct{}{}
	}()

	select {
	case <-shutdownCtx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			s.log.Info("server shutdown completed")
		} else {
			s.log.Errorf("server shutdown: %v", ctx.Err())
		}
	case <-longShutdown:
		s.log.Infof("finished")
	}
}

func isLocalEndpoint(path string) bool {
	return strings.HasPrefix(path, "/api/health") || strings.HasPrefix(path, "/api/readiness")
}

func loggerMiddlewareConfig(log *zap.SugaredLogger) echomiddleware.RequestLoggerConfig {
	return echomiddleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,

		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", c.Request().Method,
				"uri", v.URI,
				"status", v.Status,
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				log.Errorw("Request", fields...)
			} else {
				log.Infow("Request", fields...)
			}
			return nil
		},
	}
}
