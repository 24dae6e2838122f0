package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"shadow-proxy-go/internal/metrics"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Connection") != "" || r.Header.Get("Keep-Alive") != "" {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	cfg := testConfig(time.Second)
	cfg.Metrics.Enabled = true
	table := newTestTable(t, map[string][]string{
		"/api/users":  {upstream.URL},
		"/api/orders": {upstream.URL, upstream.URL},
	})

	proxy := newTestProxyHandler(t, cfg, table)
	health := NewHealthHandler(cfg, table, "test")

	e := echo.New()
	RegisterRoutes(e, cfg, metrics.New(), proxy, health)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET healthz", http.MethodGet, "/_shadow/healthz", http.StatusOK},
		{"GET status", http.MethodGet, "/_shadow/status", http.StatusOK},
		{"GET metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"GET routed path", http.MethodGet, "/api/users?limit=5", http.StatusOK},
		{"DELETE routed path", http.MethodDelete, "/api/users", http.StatusOK},
		{"POST routed path with shadow", http.MethodPost, "/api/orders", http.StatusOK},
		{"unrouted path", http.MethodGet, "/unknown", http.StatusNotFound},
		{"unknown admin path goes to proxy", http.MethodGet, "/_shadow/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			req.Header.Set("Keep-Alive", "timeout=5")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterRoutes_AdminSecurityHeadersOnly(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	cfg := testConfig(time.Second)
	table := newTestTable(t, map[string][]string{"/a": {upstream.URL}})

	e := echo.New()
	RegisterRoutes(e, cfg, metrics.New(), newTestProxyHandler(t, cfg, table), NewHealthHandler(cfg, table, "test"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_shadow/healthz", http.NoBody))
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("admin X-Content-Type-Options = %q, want %q", got, "nosniff")
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/a", http.NoBody))
	if got := rec.Header().Get("X-Content-Type-Options"); got != "" {
		t.Errorf("proxied X-Content-Type-Options = %q, want none", got)
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	cfg := testConfig(time.Second)
	table := newTestTable(t, nil)

	e := echo.New()
	RegisterRoutes(e, cfg, metrics.New(), newTestProxyHandler(t, cfg, table), NewHealthHandler(cfg, table, "test"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	// With metrics off the path is an ordinary, unrouted proxy path.
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if !strings.Contains(rec.Body.String(), "no route configured") {
		t.Errorf("body = %q, want proxy not-found error", rec.Body.String())
	}
}
