package handler

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"console-http-go/internal/config"
	"console-http-go/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, proxy *ProxyHandler, health *HealthHandler, logger *slog.Logger) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
		logger.Info("metrics endpoint enabled", "path", cfg.Metrics.Path)
	}

	_, profile := cfg.ActiveProfile()
	if profile.Prefix == "/" {
		e.Any("/*", proxy.Handle)
		return
	}
	e.Any(profile.Prefix, proxy.Handle)
	e.Any(profile.Prefix+"/*", proxy.Handle)
}
