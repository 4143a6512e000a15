package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"StockTracker/internal/domain/models"
	xhttp "StockTracker/pkg/http"
	applogger "StockTracker/pkg/logger"
	"StockTracker/pkg/util"
)

const sourceName = "yahoo"

// Client fetches daily bars from the Yahoo Finance v8 chart API.
type Client struct {
	http    *xhttp.Client
	baseURL string
	log     *applogger.Logger
	now     func() time.Time
}

// Option configures Client.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	log       *applogger.Logger
}

func WithBaseURL(u string) Option {
	return func(c *clientConfig) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithUserAgent(ua string) Option {
	return func(c *clientConfig) { c.userAgent = ua }
}

func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

func WithLogger(l *applogger.Logger) Option {
	return func(c *clientConfig) { c.log = l }
}

// NewClient creates a Yahoo chart client.
func NewClient(opts ...Option) *Client {
	cfg := &clientConfig{
		baseURL:   "https://query1.finance.yahoo.com",
		userAgent: "Mozilla/5.0",
		timeout:   30 * time.Second,
		log:       applogger.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{
		http:    xhttp.NewClient(xhttp.WithTimeout(cfg.timeout), xhttp.WithUserAgent(cfg.userAgent)),
		baseURL: cfg.baseURL,
		log:     cfg.log,
		now:     time.Now,
	}
}

// Name implements repository.HistoricalSource.
func (c *Client) Name() string { return sourceName }

// Close implements repository.HistoricalSource.
func (c *Client) Close() error { return nil }

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
		GMTOffset            int    `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// FetchHistorical returns daily bars for symbol over period ("1y" when empty), ascending.
// The period is validated before any network call.
func (c *Client) FetchHistorical(ctx context.Context, symbol, period string) (*models.PriceSeries, error) {
	p, err := models.ParsePeriod(period)
	if err != nil {
		return nil, fmt.Errorf("historical %s: %w", symbol, err)
	}

	var chart chartResponse
	err = c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(symbol)),
		QueryParams: map[string][]string{
			"interval": {"1d"},
			"range":    {string(p)},
		},
	}, &chart)
	if err != nil {
		return nil, c.classify(symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("historical %s: %w: %s", symbol, models.ErrDataUnavailable, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("historical %s: %w: no result", symbol, models.ErrDataUnavailable)
	}

	bars := decodeBars(chart.Chart.Result[0])
	if len(bars) == 0 {
		return nil, fmt.Errorf("historical %s: %w: no bars", symbol, models.ErrDataUnavailable)
	}

	c.log.Debug("yahoo fetched",
		applogger.String("symbol", symbol),
		applogger.String("period", string(p)),
		applogger.Int("bars", len(bars)),
	)
	return &models.PriceSeries{
		Symbol:    symbol,
		Source:    sourceName,
		Interval:  "1d",
		Bars:      bars,
		FetchedAt: c.now(),
	}, nil
}

func (c *Client) classify(symbol string, err error) error {
	var se *xhttp.StatusError
	if !errors.As(err, &se) {
		return fmt.Errorf("historical %s: %w: %v", symbol, models.ErrDataUnavailable, err)
	}
	if se.Code == http.StatusTooManyRequests {
		return fmt.Errorf("historical %s: %w", symbol, models.ErrRateLimited)
	}
	// 404 bodies still carry chart.error
	var chart chartResponse
	if json.Unmarshal(se.Body, &chart) == nil && chart.Chart.Error != nil {
		return fmt.Errorf("historical %s: %w: %s", symbol, models.ErrDataUnavailable, chart.Chart.Error.Description)
	}
	return fmt.Errorf("historical %s: %w: status %d", symbol, models.ErrDataUnavailable, se.Code)
}

func decodeBars(r chartResult) []models.Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	loc := util.LoadLocation(r.Meta.ExchangeTimezoneName)
	if r.Meta.ExchangeTimezoneName == "" && r.Meta.GMTOffset != 0 {
		loc = time.FixedZone("", r.Meta.GMTOffset)
	}

	q := r.Indicators.Quote[0]
	bars := make([]models.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		closeV := at(q.Close, i)
		if closeV == nil {
			continue // null bar (holiday, halted session)
		}
		bars = append(bars, models.Bar{
			Time:   time.Unix(ts, 0).In(loc),
			Open:   deref(at(q.Open, i), *closeV),
			High:   deref(at(q.High, i), *closeV),
			Low:    deref(at(q.Low, i), *closeV),
			Close:  *closeV,
			Volume: deref(at(q.Volume, i), 0),
		})
	}
	return models.NormalizeBars(bars)
}

func at(xs []*float64, i int) *float64 {
	if i < len(xs) {
		return xs[i]
	}
	return nil
}

func deref(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}
