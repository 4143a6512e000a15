package models

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable covers unknown symbols, provider error payloads and missing credentials.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrMissingCredential is the missing-API-key variant of ErrDataUnavailable.
	ErrMissingCredential = fmt.Errorf("%w: missing api key", ErrDataUnavailable)
	// ErrRateLimited means the provider signalled throttling.
	ErrRateLimited = errors.New("rate limited by provider")
	// ErrInvalidPeriod means a malformed historical window.
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrInsufficientData means fewer than 2 distinct dates were supplied to the forecaster.
	ErrInsufficientData = errors.New("insufficient data for forecast")
	// ErrFitting means the model could not be fitted.
	ErrFitting = errors.New("forecast fitting failed")
)

// Error kinds used in views, logs and metrics.
const (
	KindMissingCredential = "missing_credential"
	KindDataUnavailable   = "data_unavailable"
	KindRateLimited       = "rate_limited"
	KindInvalidPeriod     = "invalid_period"
	KindInsufficientData  = "insufficient_data"
	KindFitting           = "fitting"
	KindUnknown           = "unknown"
)

// ErrorKind classifies err into one of the Kind* codes.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return KindMissingCredential
	case errors.Is(err, ErrDataUnavailable):
		return KindDataUnavailable
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrInvalidPeriod):
		return KindInvalidPeriod
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, ErrFitting):
		return KindFitting
	default:
		return KindUnknown
	}
}
