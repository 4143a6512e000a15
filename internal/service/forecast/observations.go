package forecast

import (
	"fmt"
	"math"
	"time"

	"StockTracker/internal/domain/models"
	"StockTracker/pkg/util"
)

// DefaultHorizonDays is used when a caller passes a non-positive horizon.
const DefaultHorizonDays = 365

// observations is a daily sample: timezone-naive dates, one close per date, ascending.
type observations struct {
	dates  []time.Time
	values []float64
}

// dailyObservations reduces a series to one close per calendar date (the last one wins).
func dailyObservations(series *models.PriceSeries) (observations, error) {
	var obs observations
	if series == nil {
		return obs, fmt.Errorf("%w: no series", models.ErrInsufficientData)
	}

	for _, b := range series.Bars {
		d := util.NaiveDate(b.Time)
		if n := len(obs.dates); n > 0 && obs.dates[n-1].Equal(d) {
			obs.values[n-1] = b.Close
			continue
		}
		obs.dates = append(obs.dates, d)
		obs.values = append(obs.values, b.Close)
	}

	if len(obs.dates) < 2 {
		return obs, fmt.Errorf("%w: %d distinct dates", models.ErrInsufficientData, len(obs.dates))
	}
	for i, v := range obs.values {
		if !finite(v) {
			return obs, fmt.Errorf("%w: non-finite close on %s", models.ErrFitting, obs.dates[i].Format("2006-01-02"))
		}
	}
	return obs, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
