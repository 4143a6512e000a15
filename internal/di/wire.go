//go:build wireinject
// +build wireinject

package di

import (
	"StockTracker/pkg/config"
	"StockTracker/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideCache,
		ProvideMemoizer,

		// Data sources and sinks
		ProvideIntradaySource,
		ProvideHistoricalSource,
		ProvideAlertPublisher,

		// Services and use cases
		ProvideForecaster,
		ProvideDashboard,

		// HTTP surface
		ProvideRenderer,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
