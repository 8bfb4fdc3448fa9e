package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"jsonrelay/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
}

// statusResponse is the body of /proxy/status.
type statusResponse struct {
	Status         string         `json:"status"`
	Version        string         `json:"version"`
	ServerURL      string         `json:"server_url"`
	Routes         map[string]int `json:"routes"`
	AllowedOrigins []string       `json:"allowed_origins"`
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status reports the version and the static routing and CORS tables.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Status:         "ok",
		Version:        string(h.version),
		ServerURL:      h.cfg.Upstream.ServerURL,
		Routes:         h.cfg.Upstream.Ports,
		AllowedOrigins: h.cfg.CORS.AllowedOrigins,
	})
}
