package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"shadow-proxy-go/internal/config"
	"shadow-proxy-go/internal/route"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	table   *route.Table
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, table *route.Table, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, table: table, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// StatusResponse is the body of the status endpoint.
type StatusResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	RoutesFile     string `json:"routes_file"`
	Routes         int    `json:"routes"`
	RoutesLoadedAt string `json:"routes_loaded_at"`
	TimeoutMS      int    `json:"timeout_ms"`
	CompareMode    string `json:"compare_mode"`
}

// Status returns proxy status information.
func (h *HealthHandler) Status(c echo.Context) error {
	snap := h.table.Snapshot()
	return c.JSON(http.StatusOK, StatusResponse{
		Status:         "ok",
		Version:        string(h.version),
		RoutesFile:     h.cfg.Routes.File,
		Routes:         snap.Len(),
		RoutesLoadedAt: snap.LoadedAt().UTC().Format(time.RFC3339),
		TimeoutMS:      h.cfg.Upstream.TimeoutMS,
		CompareMode:    h.cfg.Compare.Mode,
	})
}
