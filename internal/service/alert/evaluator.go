package alert

import "StockTracker/internal/domain/models"

// Evaluate reports whether latest has reached threshold. Equality triggers.
func Evaluate(symbol string, latest, threshold float64) models.AlertState {
	return models.AlertState{
		Symbol:      symbol,
		LatestPrice: latest,
		Threshold:   threshold,
		Triggered:   latest >= threshold,
	}
}
