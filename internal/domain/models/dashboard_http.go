package models

// Requests for dashboard HTTP endpoints. Threshold has no struct default: an explicit 0 is valid,
// so the handler fills it from config only when the parameter is absent.

type DashboardRequest struct {
	Symbol    string  `query:"symbol" json:"symbol" default:"AAPL" validate:"required,max=32"`
	Threshold float64 `query:"threshold" json:"threshold" validate:"gte=0"`
	Period    string  `query:"period" json:"period" default:"1y"`
	Horizon   int     `query:"horizon" json:"horizon" default:"365" validate:"gte=1,lte=3650"`
}

type SymbolRequest struct {
	Symbol string `query:"symbol" json:"symbol" default:"AAPL" validate:"required,max=32"`
}

type HistoricalRequest struct {
	Symbol string `query:"symbol" json:"symbol" default:"AAPL" validate:"required,max=32"`
	Period string `query:"period" json:"period" default:"1y"`
}

type ForecastRequest struct {
	Symbol  string `query:"symbol" json:"symbol" default:"AAPL" validate:"required,max=32"`
	Period  string `query:"period" json:"period" default:"1y"`
	Horizon int    `query:"horizon" json:"horizon" default:"365" validate:"gte=1,lte=3650"`
}

type AlertRequest struct {
	Symbol    string  `query:"symbol" json:"symbol" default:"AAPL" validate:"required,max=32"`
	Threshold float64 `query:"threshold" json:"threshold" validate:"gte=0"`
}
