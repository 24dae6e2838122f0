package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestHealthz(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/_shadow/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewHealthHandler(testConfig(time.Second), newTestTable(t, nil), "test")
	if err := h.Healthz(c); err != nil {
		t.Fatalf("Healthz() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
}

func TestStatus(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/_shadow/status", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	cfg := testConfig(2500 * time.Millisecond)
	cfg.Routes.File = "routes.txt"
	cfg.Compare.Mode = "json"
	table := newTestTable(t, map[string][]string{
		"/a": {"http://primary.local"},
		"/b": {"http://primary.local", "http://shadow.local"},
	})

	h := NewHealthHandler(cfg, table, "1.2.3")
	if err := h.Status(c); err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("body.status = %q, want %q", body.Status, "ok")
	}
	if body.Version != "1.2.3" {
		t.Errorf("body.version = %q, want %q", body.Version, "1.2.3")
	}
	if body.RoutesFile != "routes.txt" {
		t.Errorf("body.routes_file = %q, want %q", body.RoutesFile, "routes.txt")
	}
	if body.Routes != 2 {
		t.Errorf("body.routes = %d, want 2", body.Routes)
	}
	if body.TimeoutMS != 2500 {
		t.Errorf("body.timeout_ms = %d, want 2500", body.TimeoutMS)
	}
	if body.CompareMode != "json" {
		t.Errorf("body.compare_mode = %q, want %q", body.CompareMode, "json")
	}
	if _, err := time.Parse(time.RFC3339, body.RoutesLoadedAt); err != nil {
		t.Errorf("body.routes_loaded_at = %q: %v", body.RoutesLoadedAt, err)
	}
}
