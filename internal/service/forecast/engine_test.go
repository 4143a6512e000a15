package forecast

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"StockTracker/internal/domain/models"
)

// dailySeries builds weekday-only daily bars starting 2024-01-01 from closes.
func dailySeries(symbol string, closes []float64) *models.PriceSeries {
	loc := time.FixedZone("EST", -5*3600)
	d := time.Date(2024, 1, 1, 16, 0, 0, 0, loc)
	bars := make([]models.Bar, 0, len(closes))
	for _, c := range closes {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		bars = append(bars, models.Bar{Time: d, Open: c, High: c, Low: c, Close: c})
		d = d.AddDate(0, 0, 1)
	}
	return &models.PriceSeries{Symbol: symbol, Source: "test", Interval: "1d", Bars: bars}
}

func randomWalk(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	v := 150.0
	for i := range out {
		v += rng.NormFloat64() * 2
		out[i] = v
	}
	return out
}

func TestEngine_BoundsBracketEstimate(t *testing.T) {
	e := NewEngine()
	for _, n := range []int{2, 3, 10, 30, 252} {
		for seed := int64(1); seed <= 5; seed++ {
			f, err := e.Forecast(context.Background(), dailySeries("AAPL", randomWalk(n, seed)), 30)
			if err != nil {
				t.Fatalf("n=%d seed=%d: %v", n, seed, err)
			}
			for _, p := range f.Points {
				if !(p.Lower <= p.Estimate && p.Estimate <= p.Upper) {
					t.Fatalf("n=%d seed=%d: bounds do not bracket on %s: %+v", n, seed, p.Date, p)
				}
			}
		}
	}
}

func TestEngine_OutputCoversHistoryPlusHorizon(t *testing.T) {
	s := dailySeries("AAPL", randomWalk(40, 7))
	f, err := NewEngine().Forecast(context.Background(), s, 365)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(f.Points) != 40+365 {
		t.Fatalf("points = %d, want %d", len(f.Points), 405)
	}
	if f.HorizonDays != 365 || f.Model != modelTrendSeasonal {
		t.Errorf("meta = %d/%s", f.HorizonDays, f.Model)
	}

	// observed dates are timezone-naive wall dates
	if got := f.Points[0].Date; !got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first date = %v", got)
	}
	last := f.Points[39].Date
	for i, p := range f.Points[40:] {
		if want := last.AddDate(0, 0, i+1); !p.Date.Equal(want) {
			t.Fatalf("future point %d date = %v, want %v", i, p.Date, want)
		}
	}

	// band widens with distance
	near, far := f.Points[40], f.Points[len(f.Points)-1]
	if far.Upper-far.Lower <= near.Upper-near.Lower {
		t.Error("band should widen over the horizon")
	}
}

func TestEngine_DefaultHorizon(t *testing.T) {
	f, err := NewEngine().Forecast(context.Background(), dailySeries("AAPL", []float64{1, 2, 3}), 0)
	if err != nil {
		t.Fatal(err)
	}
	if f.HorizonDays != DefaultHorizonDays || len(f.Points) != 3+DefaultHorizonDays {
		t.Errorf("horizon = %d, points = %d", f.HorizonDays, len(f.Points))
	}
	if f.Model != modelTrend {
		t.Errorf("short sample should have no weekly term, model = %s", f.Model)
	}
}

func TestEngine_RecoversLinearTrend(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	// consecutive calendar days so x is exactly 0..19
	s := dailySeries("LIN", nil)
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		s.Bars = append(s.Bars, models.Bar{Time: d.AddDate(0, 0, i), Close: c})
	}

	f, err := NewEngine().Forecast(context.Background(), s, 5)
	if err != nil {
		t.Fatal(err)
	}
	lastFuture := f.Points[len(f.Points)-1]
	if math.Abs(lastFuture.Estimate-124) > 1e-6 {
		t.Errorf("estimate = %v, want 124", lastFuture.Estimate)
	}
	if math.Abs(lastFuture.Upper-lastFuture.Lower) > 1e-6 {
		t.Errorf("perfect fit should have a zero-width band, got %v", lastFuture.Upper-lastFuture.Lower)
	}
}

func TestEngine_InsufficientData(t *testing.T) {
	e := NewEngine()
	ctx := context.Background()

	if _, err := e.Forecast(ctx, dailySeries("AAPL", []float64{172.34}), 365); !errors.Is(err, models.ErrInsufficientData) {
		t.Errorf("one row: err = %v", err)
	}
	if _, err := e.Forecast(ctx, nil, 365); !errors.Is(err, models.ErrInsufficientData) {
		t.Errorf("nil series: err = %v", err)
	}

	// several intraday bars on one calendar date are one observation
	day := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	same := &models.PriceSeries{Symbol: "AAPL", Bars: []models.Bar{
		{Time: day, Close: 1}, {Time: day.Add(time.Hour), Close: 2}, {Time: day.Add(2 * time.Hour), Close: 3},
	}}
	if _, err := e.Forecast(ctx, same, 365); !errors.Is(err, models.ErrInsufficientData) {
		t.Errorf("single date: err = %v", err)
	}
}

func TestEngine_NonFiniteInputIsFittingError(t *testing.T) {
	_, err := NewEngine().Forecast(context.Background(), dailySeries("AAPL", []float64{1, math.NaN(), 3}), 10)
	if !errors.Is(err, models.ErrFitting) {
		t.Fatalf("err = %v", err)
	}
}

func TestEngine_IntervalWidth(t *testing.T) {
	s := dailySeries("AAPL", randomWalk(60, 3))
	narrow, _ := NewEngine(WithIntervalWidth(0.5)).Forecast(context.Background(), s, 10)
	wide, _ := NewEngine(WithIntervalWidth(0.95)).Forecast(context.Background(), s, 10)
	pn, pw := narrow.Points[len(narrow.Points)-1], wide.Points[len(wide.Points)-1]
	if pw.Upper-pw.Lower <= pn.Upper-pn.Lower {
		t.Error("wider interval width should give a wider band")
	}
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewEngine().Forecast(ctx, dailySeries("AAPL", []float64{1, 2}), 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
