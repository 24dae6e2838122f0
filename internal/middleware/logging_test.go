package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRequestLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequestLogger_Levels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   string
	}{
		{"ok is info", http.StatusOK, "level=INFO"},
		{"not found is info", http.StatusNotFound, "level=INFO"},
		{"bad gateway is warn", http.StatusBadGateway, "level=WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			e := echo.New()
			e.Use(RequestLogger(logger))
			e.GET("/test", func(c echo.Context) error {
				return c.NoContent(tt.status)
			})

			e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("log = %q, want %s", out, tt.want)
			}
			if !strings.Contains(out, "path=/test") {
				t.Errorf("log = %q, want path=/test", out)
			}
		})
	}
}
