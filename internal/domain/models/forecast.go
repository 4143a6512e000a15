package models

import "time"

// ForecastPoint is one row of a forecast. Lower <= Estimate <= Upper.
type ForecastPoint struct {
	Date     time.Time `json:"date"`
	Estimate float64   `json:"estimate"`
	Lower    float64   `json:"lower"`
	Upper    float64   `json:"upper"`
}

// Forecast covers every observed date (in-sample fit) followed by HorizonDays future days.
type Forecast struct {
	Symbol      string          `json:"symbol"`
	Model       string          `json:"model"`
	HorizonDays int             `json:"horizon_days"`
	Points      []ForecastPoint `json:"points"`
}

// Tail returns up to n last points.
func (f *Forecast) Tail(n int) []ForecastPoint {
	if f == nil || n <= 0 || len(f.Points) == 0 {
		return nil
	}
	if n > len(f.Points) {
		n = len(f.Points)
	}
	return f.Points[len(f.Points)-n:]
}
