package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"StockTracker/internal/domain/models"
	icache "StockTracker/internal/service/cache"
	"StockTracker/internal/service/forecast"
	pkgcache "StockTracker/pkg/cache"
	"StockTracker/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	mu         sync.Mutex
	intraday   map[string]*models.PriceSeries
	historical map[string]*models.PriceSeries
	calls      map[string]int
	fail       error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		intraday:   map[string]*models.PriceSeries{},
		historical: map[string]*models.PriceSeries{},
		calls:      map[string]int{},
	}
}

func (f *fakeSource) Name() string { return "fake" }
func (f *fakeSource) Close() error { return nil }

func (f *fakeSource) FetchIntraday(_ context.Context, symbol string) (*models.PriceSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["intraday:"+symbol]++
	if f.fail != nil {
		return nil, f.fail
	}
	s, ok := f.intraday[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: Invalid API call for %s", models.ErrDataUnavailable, symbol)
	}
	return s, nil
}

func (f *fakeSource) FetchHistorical(_ context.Context, symbol, period string) (*models.PriceSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["historical:"+symbol+":"+period]++
	s, ok := f.historical[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: no data found for %s", models.ErrDataUnavailable, symbol)
	}
	return s, nil
}

func (f *fakeSource) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.AlertEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, ev models.AlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func intradaySeries(symbol string, closes ...float64) *models.PriceSeries {
	t0 := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)
	s := &models.PriceSeries{Symbol: symbol, Source: "fake", Interval: "1min"}
	for i, c := range closes {
		s.Bars = append(s.Bars, models.Bar{Time: t0.Add(time.Duration(i) * time.Minute), Open: c, High: c, Low: c, Close: c})
	}
	return s
}

func historicalSeries(symbol string, n int) *models.PriceSeries {
	t0 := time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC)
	s := &models.PriceSeries{Symbol: symbol, Source: "fake", Interval: "1d"}
	for i := 0; i < n; i++ {
		c := 150 + float64(i%7) + float64(i)*0.1
		s.Bars = append(s.Bars, models.Bar{Time: t0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c})
	}
	return s
}

func newTestDashboard(t *testing.T, src *fakeSource, pub *fakePublisher) *Dashboard {
	t.Helper()
	store := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	return NewDashboard(src, src, forecast.NewEngine(), icache.NewMemoizer(store, 0, nil), pub, metrics.Nop{}, nil)
}

func TestDashboard_TriggeredAlert(t *testing.T) {
	src := newFakeSource()
	src.intraday["AAPL"] = intradaySeries("AAPL", 170.1, 171.9, 172.34)
	src.historical["AAPL"] = historicalSeries("AAPL", 30)
	pub := &fakePublisher{}
	d := newTestDashboard(t, src, pub)

	v := d.Evaluate(context.Background(), models.DashboardInputs{Symbol: "AAPL", Threshold: 150, Period: "1y", Horizon: 30})
	if len(v.Errors) != 0 {
		t.Fatalf("errors = %+v", v.Errors)
	}
	if v.Alert == nil || !v.Alert.Triggered || v.Alert.LatestPrice != 172.34 {
		t.Fatalf("alert = %+v", v.Alert)
	}
	if v.Forecast == nil || len(v.Forecast.Points) != 30+30 {
		t.Fatalf("forecast = %+v", v.Forecast)
	}
	if len(pub.events) != 1 || pub.events[0].Symbol != "AAPL" {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestDashboard_NotTriggered(t *testing.T) {
	src := newFakeSource()
	src.intraday["MSFT"] = intradaySeries("MSFT", 309, 310.12)
	src.historical["MSFT"] = historicalSeries("MSFT", 30)
	pub := &fakePublisher{}
	d := newTestDashboard(t, src, pub)

	v := d.Evaluate(context.Background(), models.DashboardInputs{Symbol: "MSFT", Threshold: 500})
	if v.Alert == nil || v.Alert.Triggered || v.Alert.LatestPrice != 310.12 {
		t.Fatalf("alert = %+v", v.Alert)
	}
	if len(pub.events) != 0 {
		t.Errorf("unexpected events %+v", pub.events)
	}
}

func TestDashboard_HistoricalFetchedOncePerSession(t *testing.T) {
	src := newFakeSource()
	src.historical["AAPL"] = historicalSeries("AAPL", 10)
	d := newTestDashboard(t, src, &fakePublisher{})

	for i := 0; i < 2; i++ {
		s, err := d.Historical(context.Background(), "AAPL", "1y")
		if err != nil {
			t.Fatalf("Historical: %v", err)
		}
		if s.Len() != 10 {
			t.Fatalf("len = %d", s.Len())
		}
	}
	if n := src.count("historical:AAPL:1y"); n != 1 {
		t.Errorf("network calls = %d, want 1", n)
	}

	// the empty period is the default period and shares its entry
	if _, err := d.Historical(context.Background(), "AAPL", ""); err != nil {
		t.Fatal(err)
	}
	if n := src.count("historical:AAPL:1y"); n != 1 {
		t.Errorf("network calls = %d, want 1", n)
	}
}

func TestDashboard_ConcurrentEvaluationsFetchOnce(t *testing.T) {
	src := newFakeSource()
	src.intraday["AAPL"] = intradaySeries("AAPL", 172.34)
	src.historical["AAPL"] = historicalSeries("AAPL", 10)
	d := newTestDashboard(t, src, &fakePublisher{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Evaluate(context.Background(), models.DashboardInputs{Symbol: "AAPL", Threshold: 150, Horizon: 5})
		}()
	}
	wg.Wait()

	if n := src.count("intraday:AAPL"); n != 1 {
		t.Errorf("intraday calls = %d", n)
	}
	if n := src.count("historical:AAPL:1y"); n != 1 {
		t.Errorf("historical calls = %d", n)
	}
}

func TestDashboard_InvalidSymbolIsolatesSections(t *testing.T) {
	src := newFakeSource()
	d := newTestDashboard(t, src, &fakePublisher{})

	v := d.Evaluate(context.Background(), models.DashboardInputs{Symbol: "ZZZZ_INVALID", Threshold: 150})
	for _, section := range []string{models.SectionIntraday, models.SectionAlert, models.SectionHistorical, models.SectionForecast} {
		e, ok := v.Err(section)
		if !ok {
			t.Errorf("%s: no error recorded", section)
			continue
		}
		if e.Kind != models.KindDataUnavailable {
			t.Errorf("%s: kind = %s", section, e.Kind)
		}
	}
	if src.count("historical:ZZZZ_INVALID:1y") != 1 {
		t.Error("historical fetch should still be attempted after intraday failure")
	}

	// failures are not cached
	d.Evaluate(context.Background(), models.DashboardInputs{Symbol: "ZZZZ_INVALID", Threshold: 150})
	if n := src.count("intraday:ZZZZ_INVALID"); n != 2 {
		t.Errorf("intraday calls = %d, want 2", n)
	}
}

func TestDashboard_SingleRowHistory(t *testing.T) {
	src := newFakeSource()
	src.intraday["AAPL"] = intradaySeries("AAPL", 172.34)
	src.historical["AAPL"] = historicalSeries("AAPL", 1)
	d := newTestDashboard(t, src, &fakePublisher{})

	v := d.Evaluate(context.Background(), models.DashboardInputs{Symbol: "AAPL", Threshold: 150})
	e, ok := v.Err(models.SectionForecast)
	if !ok || e.Kind != models.KindInsufficientData {
		t.Fatalf("forecast error = %+v, %v", e, ok)
	}
	if v.Historical == nil || v.Intraday == nil || v.Alert == nil {
		t.Fatalf("other sections should render: %+v", v)
	}
	if len(v.Errors) != 1 {
		t.Errorf("errors = %+v", v.Errors)
	}
}

func TestDashboard_InvalidPeriod(t *testing.T) {
	src := newFakeSource()
	src.historical["AAPL"] = historicalSeries("AAPL", 10)
	d := newTestDashboard(t, src, &fakePublisher{})

	if _, err := d.Historical(context.Background(), "AAPL", "7w"); !errors.Is(err, models.ErrInvalidPeriod) {
		t.Fatalf("err = %v", err)
	}
	if n := src.count("historical:AAPL:7w"); n != 0 {
		t.Errorf("source called %d times for an invalid period", n)
	}
}

func TestDashboard_MissingCredential(t *testing.T) {
	src := newFakeSource()
	src.fail = fmt.Errorf("alpha vantage: %w", models.ErrMissingCredential)
	src.historical["AAPL"] = historicalSeries("AAPL", 10)
	d := newTestDashboard(t, src, &fakePublisher{})

	v := d.Evaluate(context.Background(), models.DashboardInputs{Symbol: "AAPL", Threshold: 150})
	if e, _ := v.Err(models.SectionIntraday); e.Kind != models.KindMissingCredential {
		t.Errorf("intraday kind = %s", e.Kind)
	}
	if v.Historical == nil || v.Forecast == nil {
		t.Error("historical and forecast should not depend on the api key")
	}
}

func TestDashboard_Crossed(t *testing.T) {
	d := newTestDashboard(t, newFakeSource(), &fakePublisher{})
	k := alertKey{"AAPL", 150}

	steps := []struct {
		triggered bool
		want      bool
	}{
		{true, true},   // crosses
		{true, false},  // still triggered
		{false, false}, // back below
		{true, true},   // crosses again
	}
	for i, s := range steps {
		if got := d.crossed(k, s.triggered); got != s.want {
			t.Fatalf("step %d: crossed = %v, want %v", i, got, s.want)
		}
	}

	d.crossed(k, false)
	if n := len(d.triggered); n != 0 {
		t.Errorf("%d untriggered alerts retained", n)
	}
}

func TestDashboard_AlertPublishedOnTransitionOnly(t *testing.T) {
	src := newFakeSource()
	src.intraday["AAPL"] = intradaySeries("AAPL", 172.34)
	pub := &fakePublisher{}
	d := newTestDashboard(t, src, pub)
	ctx := context.Background()

	// two watchers on one symbol alternate; each threshold is its own alert
	steps := []struct {
		threshold float64
		wantCount int
	}{
		{150, 1}, // crosses
		{200, 1}, // not triggered
		{150, 1}, // still triggered
		{200, 1},
		{160, 2}, // a new alert that is already above its threshold
	}
	for i, s := range steps {
		if _, err := d.Alert(ctx, "AAPL", s.threshold); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if len(pub.events) != s.wantCount {
			t.Fatalf("step %d: events = %d, want %d", i, len(pub.events), s.wantCount)
		}
	}
}

func TestDashboard_PublishFailureDoesNotSurface(t *testing.T) {
	src := newFakeSource()
	src.intraday["AAPL"] = intradaySeries("AAPL", 172.34)
	d := newTestDashboard(t, src, &fakePublisher{err: errors.New("broker down")})

	st, err := d.Alert(context.Background(), "AAPL", 150)
	if err != nil || !st.Triggered {
		t.Fatalf("state = %+v, err = %v", st, err)
	}
}

func TestDashboard_RecordsMetrics(t *testing.T) {
	src := newFakeSource()
	src.intraday["AAPL"] = intradaySeries("AAPL", 172.34)
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)

	store := pkgcache.NewMemoryCache()
	defer store.Close()
	d := NewDashboard(src, src, forecast.NewEngine(), icache.NewMemoizer(store, 0, nil), &fakePublisher{}, rec, nil)

	d.Evaluate(context.Background(), models.DashboardInputs{Symbol: "AAPL", Threshold: 150})

	expected := `
# HELP stocktracker_fetches_total Total number of upstream data fetches
# TYPE stocktracker_fetches_total counter
stocktracker_fetches_total{source="fake",symbol="AAPL"} 1
# HELP stocktracker_errors_total Total number of errors encountered, by kind
# TYPE stocktracker_errors_total counter
stocktracker_errors_total{kind="data_unavailable"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"stocktracker_fetches_total", "stocktracker_errors_total"); err != nil {
		t.Error(err)
	}
}
