package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"StockTracker/internal/domain/repository"
	pkgcache "StockTracker/pkg/cache"
	"StockTracker/pkg/config"
	xhttp "StockTracker/pkg/http"
	applogger "StockTracker/pkg/logger"

	"github.com/labstack/echo/v4"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	httpHandler xhttp.Handler
	renderer    echo.Renderer
	cache       pkgcache.Service
	historical  repository.HistoricalSource
	publisher   repository.AlertPublisher
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	renderer echo.Renderer,
	cache pkgcache.Service,
	historical repository.HistoricalSource,
	publisher repository.AlertPublisher,
) *App {
	return &App{
		cfg:         cfg,
		log:         l,
		httpHandler: handler,
		renderer:    renderer,
		cache:       cache,
		historical:  historical,
		publisher:   publisher,
	}
}

// Server builds the HTTP server. Run calls it; tests use it to reach the echo instance.
func (a *App) Server() *xhttp.Server {
	if a.httpServer != nil {
		return a.httpServer
	}

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(metricsPath, a.cfg.Server.SlowRequest),
		xhttp.WithRenderer(a.renderer),
		xhttp.WithLogger(a.log),
		xhttp.WithCORS(true),
	)
	return a.httpServer
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Server().Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("dashboard ready",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("historical_source", a.historical.Name()),
		applogger.String("forecast_backend", a.cfg.Forecast.Backend),
		applogger.String("alert_sink", a.cfg.Alerts.Sink),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Shutdown gracefully stops the HTTP server and closes infrastructure clients.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("alert publisher close error", applogger.Error(err))
		}
	}
	if a.historical != nil {
		if err := a.historical.Close(); err != nil {
			a.log.Warn("historical source close error", applogger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
