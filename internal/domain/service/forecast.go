package service

import (
	"context"

	"StockTracker/internal/domain/models"
)

// Forecaster fits a model to a historical series and predicts horizonDays past its last date.
// Fewer than 2 distinct dates fail with models.ErrInsufficientData; a fit that cannot be
// produced fails with models.ErrFitting.
type Forecaster interface {
	Forecast(ctx context.Context, series *models.PriceSeries, horizonDays int) (*models.Forecast, error)
}
