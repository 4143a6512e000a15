package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"StockTracker/internal/domain/models"
	domsvc "StockTracker/internal/domain/service"
	applogger "StockTracker/pkg/logger"
	"StockTracker/pkg/util"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	modelTrend         = "linear_trend"
	modelTrendSeasonal = "linear_trend+weekly"

	// samples spanning fewer days than this get no weekly term
	minSeasonalSpanDays = 14
)

// Engine is an additive model: OLS linear trend plus an optional weekly seasonal term,
// with a normal prediction band widening with distance past the last observation.
type Engine struct {
	intervalWidth float64
	log           *applogger.Logger
}

// Option configures Engine.
type Option func(*Engine)

// WithIntervalWidth sets the central coverage of the band, in (0,1). Default 0.8.
func WithIntervalWidth(w float64) Option {
	return func(e *Engine) {
		if w > 0 && w < 1 {
			e.intervalWidth = w
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{intervalWidth: 0.8, log: applogger.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Forecast returns fitted values for every observed date followed by horizonDays future days.
func (e *Engine) Forecast(ctx context.Context, series *models.PriceSeries, horizonDays int) (*models.Forecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	obs, err := dailyObservations(series)
	if err != nil {
		return nil, err
	}

	n := len(obs.dates)
	origin := obs.dates[0]
	x := make([]float64, n)
	for i, d := range obs.dates {
		x[i] = float64(util.DaysBetween(origin, d))
	}

	alpha, beta := stat.LinearRegression(x, obs.values, nil, false)
	if !finite(alpha) || !finite(beta) {
		return nil, fmt.Errorf("%w: degenerate trend", models.ErrFitting)
	}

	resid := make([]float64, n)
	for i := range x {
		resid[i] = obs.values[i] - (alpha + beta*x[i])
	}

	var weekly [7]float64
	model := modelTrend
	if x[n-1] >= minSeasonalSpanDays {
		weekly = weekdayMeans(obs.dates, resid)
		for i, d := range obs.dates {
			resid[i] -= weekly[d.Weekday()]
		}
		model = modelTrendSeasonal
	}

	sigma := stat.StdDev(resid, nil)
	if !finite(sigma) {
		return nil, fmt.Errorf("%w: residual spread is not finite", models.ErrFitting)
	}
	z := distuv.UnitNormal.Quantile(0.5 + e.intervalWidth/2)

	predict := func(xi float64, d time.Time, h float64) models.ForecastPoint {
		est := alpha + beta*xi + weekly[d.Weekday()]
		half := z * sigma * math.Sqrt(1+h/float64(n))
		return models.ForecastPoint{Date: d, Estimate: est, Lower: est - half, Upper: est + half}
	}

	points := make([]models.ForecastPoint, 0, n+horizonDays)
	for i, d := range obs.dates {
		points = append(points, predict(x[i], d, 0))
	}
	last := obs.dates[n-1]
	for h := 1; h <= horizonDays; h++ {
		points = append(points, predict(x[n-1]+float64(h), last.AddDate(0, 0, h), float64(h)))
	}

	for _, p := range points {
		if !finite(p.Estimate) || !finite(p.Lower) || !finite(p.Upper) {
			return nil, fmt.Errorf("%w: non-finite prediction on %s", models.ErrFitting, p.Date.Format("2006-01-02"))
		}
	}

	e.log.Debug("forecast fitted",
		applogger.String("symbol", series.Symbol),
		applogger.String("model", model),
		applogger.Int("observations", n),
		applogger.Float64("slope", beta),
		applogger.Float64("sigma", sigma),
	)
	return &models.Forecast{
		Symbol:      series.Symbol,
		Model:       model,
		HorizonDays: horizonDays,
		Points:      points,
	}, nil
}

// weekdayMeans averages residuals per weekday; weekdays never observed stay 0.
func weekdayMeans(dates []time.Time, resid []float64) [7]float64 {
	var sum [7]float64
	var cnt [7]int
	for i, d := range dates {
		sum[d.Weekday()] += resid[i]
		cnt[d.Weekday()]++
	}
	var out [7]float64
	for wd := range out {
		if cnt[wd] > 0 {
			out[wd] = sum[wd] / float64(cnt[wd])
		}
	}
	return out
}

var _ domsvc.Forecaster = (*Engine)(nil)
