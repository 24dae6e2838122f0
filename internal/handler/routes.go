package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shadow-proxy-go/internal/config"
	"shadow-proxy-go/internal/metrics"
	"shadow-proxy-go/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance. The admin
// endpoints live under config.AdminPrefix; every other path, whatever the
// method, goes to the proxy handler.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, proxy *ProxyHandler, health *HealthHandler) {
	secure := middleware.SecurityHeaders()

	admin := e.Group(config.AdminPrefix)
	admin.GET("/healthz", health.Healthz, secure)
	admin.GET("/status", health.Status, secure)

	if cfg.Metrics.Enabled {
		h := promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
		e.GET(cfg.Metrics.Path, echo.WrapHandler(h), secure)
	}

	e.Any("/*", proxy.Handle, middleware.HopHeaders())
}
