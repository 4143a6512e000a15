package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"StockTracker/internal/domain/models"
	pkgcache "StockTracker/pkg/cache"
	"StockTracker/pkg/config"
	applogger "StockTracker/pkg/logger"

	"github.com/labstack/echo/v4"
)

type healthHandler struct{}

func (healthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
}

type closer struct{ closed bool }

func (c *closer) Name() string { return "test" }

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func (c *closer) FetchHistorical(context.Context, string, string) (*models.PriceSeries, error) {
	return nil, models.ErrDataUnavailable
}

func (c *closer) Publish(context.Context, models.AlertEvent) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("does-not-exist.yaml")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestApp_ServerRoutes(t *testing.T) {
	cfg := testConfig(t)
	app := New(cfg, applogger.Nop(), healthHandler{}, nil, pkgcache.NewMemoryCache(), &closer{}, &closer{})

	e := app.Server().Echo()
	for _, path := range []string{"/healthz", cfg.Metrics.Path} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
	if app.Server() != app.Server() {
		t.Error("Server should be built once")
	}
}

func TestApp_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	app := New(cfg, applogger.Nop(), healthHandler{}, nil, nil, &closer{}, &closer{})

	rec := httptest.NewRecorder()
	app.Server().Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics = %d, want 404", rec.Code)
	}
}

func TestApp_ShutdownClosesResources(t *testing.T) {
	hist, pub := &closer{}, &closer{}
	app := New(testConfig(t), applogger.Nop(), healthHandler{}, nil, pkgcache.NewMemoryCache(), hist, pub)

	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !hist.closed || !pub.closed {
		t.Errorf("closed: historical=%v publisher=%v", hist.closed, pub.closed)
	}
}
