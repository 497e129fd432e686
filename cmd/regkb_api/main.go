// Package main serves the regulatory knowledge base over HTTP.
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/DjordjeVuckovic/regkb/internal/api/router"
	"github.com/DjordjeVuckovic/regkb/internal/api/server"
	"github.com/DjordjeVuckovic/regkb/internal/app"
	"github.com/DjordjeVuckovic/regkb/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Log.Format == "text" && os.Getenv("LOG_FORMAT") == "" {
		cfg.Log.Format = "json"
	}
	slog.SetDefault(cfg.Log.NewLogger(os.Stdout))

	s := server.New(cfg.Server)

	a, err := app.New(s.Context(), cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	s.WithMetrics(a.Metrics).
		SetupMiddlewares().
		SetupErrorHandler().
		SetupHealthChecks("/health", a.HealthCheckers()...).
		SetupMetrics("/metrics")

	s.Echo.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "regkb API is running")
	})

	router.NewDocumentRouter(s.Echo, a.Store, a.Config).Bind()
	router.NewSearchRouter(s.Echo, a.Search,
		router.WithDefaults(cfg.Search.DefaultLimit, cfg.Search.LatestOnly)).Bind()
	router.NewVersionRouter(s.Echo, a.Resolver, a.Store, a.Catalog, cfg.Versioning.ContextLines).Bind()

	var uploader router.Uploader
	if a.Uploader != nil {
		uploader = a.Uploader
	}
	router.NewAdminRouter(s.Echo, a.Store, cfg.BackupsDir(), uploader).Bind()

	go func() {
		<-s.ShutdownSignal()
		slog.Info("Shutdown started, cleaning up resources...")
	}()

	if err := s.Start(); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
