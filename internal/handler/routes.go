package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jsonrelay/internal/config"
	"jsonrelay/internal/metrics"
)

// proxyMethods are the methods forwarded upstream. OPTIONS never reaches a
// route; the CORS middleware answers it.
var proxyMethods = []string{http.MethodGet, http.MethodHead, http.MethodPost}

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, proxy *ProxyHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	e.Match(proxyMethods, "/*", proxy.Handle)
}
