package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StockTracker/internal/domain/models"
	domrepo "StockTracker/internal/domain/repository"
	domsvc "StockTracker/internal/domain/service"
	"StockTracker/internal/service/alert"
	icache "StockTracker/internal/service/cache"
	applogger "StockTracker/pkg/logger"
)

// Memo operation names.
const (
	opIntraday   = "intraday"
	opHistorical = "historical"
)

// Dashboard runs one evaluation cycle per request: intraday fetch, historical fetch,
// forecast, alert. Fetches are memoized; sections fail independently.
type Dashboard struct {
	intraday   domrepo.IntradaySource
	historical domrepo.HistoricalSource
	forecaster domsvc.Forecaster
	memo       *icache.Memoizer
	publisher  domrepo.AlertPublisher
	metrics    domrepo.Metrics
	log        *applogger.Logger
	now        func() time.Time

	mu        sync.Mutex
	triggered map[alertKey]struct{}
}

// alertKey identifies one alert: a symbol watched at a threshold.
type alertKey struct {
	symbol    string
	threshold float64
}

func NewDashboard(
	intraday domrepo.IntradaySource,
	historical domrepo.HistoricalSource,
	forecaster domsvc.Forecaster,
	memo *icache.Memoizer,
	publisher domrepo.AlertPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *Dashboard {
	if l == nil {
		l = applogger.Nop()
	}
	return &Dashboard{
		intraday:   intraday,
		historical: historical,
		forecaster: forecaster,
		memo:       memo,
		publisher:  publisher,
		metrics:    metrics,
		log:        l,
		now:        time.Now,
		triggered:  make(map[alertKey]struct{}),
	}
}

// Evaluate builds the full view for in. It never fails as a whole; section failures are
// recorded in the view.
func (d *Dashboard) Evaluate(ctx context.Context, in models.DashboardInputs) *models.DashboardView {
	start := d.now()
	view := &models.DashboardView{Inputs: in, GeneratedAt: start}

	intraday, err := d.Intraday(ctx, in.Symbol)
	if err != nil {
		view.SetError(models.SectionIntraday, err)
		view.SetError(models.SectionAlert, err)
	} else {
		view.Intraday = intraday
	}

	historical, err := d.Historical(ctx, in.Symbol, in.Period)
	if err != nil {
		view.SetError(models.SectionHistorical, err)
		view.SetError(models.SectionForecast, err)
	} else {
		view.Historical = historical
		f, err := d.forecast(ctx, historical, in.Horizon)
		if err != nil {
			view.SetError(models.SectionForecast, err)
		} else {
			view.Forecast = f
		}
	}

	if intraday != nil {
		state, err := d.alertFrom(ctx, in.Symbol, intraday, in.Threshold)
		if err != nil {
			view.SetError(models.SectionAlert, err)
		} else {
			view.Alert = &state
		}
	}

	d.metrics.RecordLatency("dashboard", time.Since(start).Seconds())
	d.log.Info("dashboard evaluated",
		applogger.String("symbol", in.Symbol),
		applogger.Float64("threshold", in.Threshold),
		applogger.Int("errors", len(view.Errors)),
		applogger.Duration("took", time.Since(start)),
	)
	return view
}

// Intraday returns the memoized minute series for symbol.
func (d *Dashboard) Intraday(ctx context.Context, symbol string) (*models.PriceSeries, error) {
	start := time.Now()
	defer func() { d.metrics.RecordLatency("fetch_intraday", time.Since(start).Seconds()) }()

	s, err := icache.Memoize(ctx, d.memo, icache.Key(opIntraday, symbol), func(ctx context.Context) (*models.PriceSeries, error) {
		s, err := d.intraday.FetchIntraday(ctx, symbol)
		if err != nil {
			return nil, err
		}
		d.metrics.RecordFetch(d.intraday.Name(), symbol)
		return s, nil
	})
	if err != nil {
		return nil, d.fail("intraday fetch failed", symbol, err)
	}
	return s, nil
}

// Historical returns the memoized daily series for symbol over period. An empty period is the default.
func (d *Dashboard) Historical(ctx context.Context, symbol string, period models.Period) (*models.PriceSeries, error) {
	p, err := models.ParsePeriod(string(period))
	if err != nil {
		return nil, d.fail("historical period rejected", symbol, err)
	}

	start := time.Now()
	defer func() { d.metrics.RecordLatency("fetch_historical", time.Since(start).Seconds()) }()

	s, err := icache.Memoize(ctx, d.memo, icache.Key(opHistorical, symbol, string(p)), func(ctx context.Context) (*models.PriceSeries, error) {
		s, err := d.historical.FetchHistorical(ctx, symbol, string(p))
		if err != nil {
			return nil, err
		}
		d.metrics.RecordFetch(d.historical.Name(), symbol)
		return s, nil
	})
	if err != nil {
		return nil, d.fail("historical fetch failed", symbol, err)
	}
	return s, nil
}

// Forecast fits the forecaster to the historical series of symbol.
func (d *Dashboard) Forecast(ctx context.Context, symbol string, period models.Period, horizonDays int) (*models.Forecast, error) {
	s, err := d.Historical(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	return d.forecast(ctx, s, horizonDays)
}

// Alert evaluates threshold against the latest intraday price of symbol.
func (d *Dashboard) Alert(ctx context.Context, symbol string, threshold float64) (models.AlertState, error) {
	s, err := d.Intraday(ctx, symbol)
	if err != nil {
		return models.AlertState{}, err
	}
	return d.alertFrom(ctx, symbol, s, threshold)
}

func (d *Dashboard) forecast(ctx context.Context, s *models.PriceSeries, horizonDays int) (*models.Forecast, error) {
	start := time.Now()
	f, err := d.forecaster.Forecast(ctx, s, horizonDays)
	d.metrics.RecordLatency("forecast", time.Since(start).Seconds())
	if err != nil {
		return nil, d.fail("forecast failed", s.Symbol, err)
	}
	return f, nil
}

func (d *Dashboard) alertFrom(ctx context.Context, symbol string, s *models.PriceSeries, threshold float64) (models.AlertState, error) {
	latest, ok := s.Latest()
	if !ok {
		return models.AlertState{}, d.fail("alert evaluation failed", symbol,
			fmt.Errorf("%w: empty intraday series", models.ErrDataUnavailable))
	}

	state := alert.Evaluate(symbol, latest.Close, threshold)
	d.metrics.RecordLastPrice(symbol, latest.Close)
	d.metrics.RecordAlert(symbol, state.Triggered)

	if d.crossed(alertKey{symbol, threshold}, state.Triggered) {
		ev := models.AlertEvent{
			Symbol:      symbol,
			LatestPrice: state.LatestPrice,
			Threshold:   state.Threshold,
			TriggeredAt: d.now(),
		}
		if err := d.publisher.Publish(ctx, ev); err != nil {
			d.log.Warn("alert publish failed", applogger.String("symbol", symbol), applogger.Error(err))
		} else {
			d.log.Info("alert published",
				applogger.String("symbol", symbol),
				applogger.Float64("price", state.LatestPrice),
				applogger.Float64("threshold", state.Threshold),
			)
		}
	}
	return state, nil
}

// crossed records the state of k and reports a not-triggered to triggered transition.
// Only triggered alerts are kept.
func (d *Dashboard) crossed(k alertKey, triggered bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, prev := d.triggered[k]
	if !triggered {
		delete(d.triggered, k)
		return false
	}
	d.triggered[k] = struct{}{}
	return !prev
}

func (d *Dashboard) fail(msg, symbol string, err error) error {
	kind := models.ErrorKind(err)
	d.metrics.RecordError(kind)
	d.log.Warn(msg, applogger.String("symbol", symbol), applogger.String("kind", kind), applogger.Error(err))
	return err
}
