package repository

import (
	"context"

	"StockTracker/internal/domain/models"
)

// IntradaySource serves minute-granularity quotes.
type IntradaySource interface {
	Name() string
	FetchIntraday(ctx context.Context, symbol string) (*models.PriceSeries, error)
}

// HistoricalSource serves daily quotes for a trailing period ("1y", "6mo", ...).
// A malformed period fails with models.ErrInvalidPeriod before any I/O.
type HistoricalSource interface {
	Name() string
	FetchHistorical(ctx context.Context, symbol string, period string) (*models.PriceSeries, error)
	Close() error
}

// AlertPublisher ships alert events to an external sink.
type AlertPublisher interface {
	Publish(ctx context.Context, ev models.AlertEvent) error
	Close() error
}

type Metrics interface {
	RecordFetch(source, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordAlert(symbol string, triggered bool)
}
