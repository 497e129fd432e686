// Package server hosts the HTTP API on echo.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/DjordjeVuckovic/regkb/internal/apperr"
	"github.com/DjordjeVuckovic/regkb/internal/config"
	"github.com/DjordjeVuckovic/regkb/internal/metrics"
	mw "github.com/DjordjeVuckovic/regkb/pkg/middleware"
	pkgserver "github.com/DjordjeVuckovic/regkb/pkg/server"
)

const (
	GracefulShutdownTimeout = 10 * time.Second
	HealthCheckTimeout      = 3 * time.Second
)

type Server struct {
	Echo *echo.Echo

	cfg     config.ServerConfig
	metrics *metrics.Metrics
	ctx     context.Context
	stop    context.CancelFunc
}

func New(cfg config.ServerConfig) *Server {
	e := echo.New()
	e.HideBanner = true
	e.DisableHTTP2 = !cfg.UseHTTP2

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &Server{
		Echo: e,
		cfg:  cfg,
		ctx:  ctx,
		stop: stop,
	}
}

// WithMetrics must be called before SetupMiddlewares to record requests.
func (s *Server) WithMetrics(m *metrics.Metrics) *Server {
	s.metrics = m
	return s
}

func (s *Server) SetupMiddlewares() *Server {
	s.Echo.Use(mw.RequestID())
	if s.metrics != nil {
		s.Echo.Use(mw.Metrics(s.metrics))
	}
	s.Echo.Use(mw.Logger(mw.WithSkipper(func(c echo.Context) bool {
		return strings.HasPrefix(c.Path(), "/health") || c.Path() == "/metrics"
	})))
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.cfg.CorsOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	return s
}

func (s *Server) SetupErrorHandler() *Server {
	s.Echo.HTTPErrorHandler = apperr.GlobalErrorHandler()
	return s
}

// SetupHealthChecks serves an aggregate report; 503 when any checker is down.
func (s *Server) SetupHealthChecks(path string, checkers ...pkgserver.HealthChecker) *Server {
	s.Echo.GET(path, func(c echo.Context) error {
		report := pkgserver.Check(c.Request().Context(), HealthCheckTimeout, checkers...)
		code := http.StatusOK
		if report.Status != pkgserver.StatusUp {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, report)
	})
	return s
}

func (s *Server) SetupMetrics(path string) *Server {
	if s.metrics != nil {
		s.Echo.GET(path, echo.WrapHandler(s.metrics.Handler()))
	}
	return s
}

// Context is cancelled on SIGINT or SIGTERM.
func (s *Server) Context() context.Context {
	return s.ctx
}

func (s *Server) ShutdownSignal() <-chan struct{} {
	return s.ctx.Done()
}

func (s *Server) Start() error {
	defer s.stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", s.cfg.Port, "http2", s.cfg.UseHTTP2)
		if err := s.Echo.Start(":" + s.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-s.ctx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
	defer cancel()

	slog.Info("Shutting down HTTP server")
	if err := s.Echo.Shutdown(ctx); err != nil {
		return err
	}
	return nil
}
