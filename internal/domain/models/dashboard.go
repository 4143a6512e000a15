package models

import "time"

// Dashboard sections.
const (
	SectionIntraday   = "intraday"
	SectionHistorical = "historical"
	SectionForecast   = "forecast"
	SectionAlert      = "alert"
)

// DashboardInputs drive one evaluation cycle.
type DashboardInputs struct {
	Symbol    string  `json:"symbol"`
	Threshold float64 `json:"threshold"`
	Period    Period  `json:"period"`
	Horizon   int     `json:"horizon"`
}

// SectionError is the visible error state of one section.
type SectionError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// DashboardView is the result of one evaluation cycle. A section is either populated or
// has an entry in Errors; sections fail independently.
// Note: no transport (html/http) concerns here.
type DashboardView struct {
	Inputs      DashboardInputs         `json:"inputs"`
	GeneratedAt time.Time               `json:"generated_at"`
	Intraday    *PriceSeries            `json:"intraday,omitempty"`
	Historical  *PriceSeries            `json:"historical,omitempty"`
	Forecast    *Forecast               `json:"forecast,omitempty"`
	Alert       *AlertState             `json:"alert,omitempty"`
	Errors      map[string]SectionError `json:"errors,omitempty"`
}

// SetError records err for section.
func (v *DashboardView) SetError(section string, err error) {
	if err == nil {
		return
	}
	if v.Errors == nil {
		v.Errors = make(map[string]SectionError)
	}
	v.Errors[section] = SectionError{Kind: ErrorKind(err), Message: err.Error()}
}

// Err returns the error recorded for section, if any.
func (v *DashboardView) Err(section string) (SectionError, bool) {
	e, ok := v.Errors[section]
	return e, ok
}
