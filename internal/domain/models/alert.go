package models

import "time"

// AlertState is recomputed every evaluation and never persisted.
type AlertState struct {
	Symbol      string  `json:"symbol"`
	LatestPrice float64 `json:"latest_price"`
	Threshold   float64 `json:"threshold"`
	Triggered   bool    `json:"triggered"`
}

// AlertEvent is emitted when a symbol crosses into the triggered state.
type AlertEvent struct {
	Symbol      string    `json:"symbol"`
	LatestPrice float64   `json:"latest_price"`
	Threshold   float64   `json:"threshold"`
	TriggeredAt time.Time `json:"triggered_at"`
}
