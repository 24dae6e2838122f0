package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"shadow-proxy-go/internal/middleware"
	"shadow-proxy-go/internal/service"
)

// ProxyHandler hands every non-admin request to the shadow router and writes
// back the primary destination's response.
type ProxyHandler struct {
	router *service.Router
	logger *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(router *service.Router, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		router: router,
		logger: logger.With("component", "proxy_handler"),
	}
}

// Handle routes the request and writes the primary's status, headers and
// body verbatim. Hop-by-hop headers are not copied.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	resp, err := h.router.Route(req.Context(), req)
	if err != nil {
		return h.mapError(c, err)
	}

	header := resp.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	middleware.StripHopHeaders(header)

	out := c.Response().Header()
	for key, vals := range header {
		out[key] = slices.Clone(vals)
	}

	c.Response().WriteHeader(resp.StatusCode)
	if _, err := c.Response().Write(resp.Body); err != nil {
		// Status is already sent; the client sees a truncated body.
		h.logger.Error("writing response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	path := c.Request().URL.Path

	if errors.Is(err, service.ErrRouteNotFound) {
		h.logger.Warn("no route", "path", path)
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "no route configured for " + path,
		})
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		// e.g. the body limit tripped while buffering the request.
		return he
	}

	h.logger.Error("proxy error", "err", err, "path", path)

	if errors.Is(err, service.ErrPrimaryTimeout) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "primary destination timed out",
		})
	}

	if errors.Is(err, service.ErrPrimaryUpstream) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "primary destination failed",
		})
	}

	if errors.Is(err, service.ErrCapture) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "could not read request body",
		})
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "proxy request failed",
	})
}
