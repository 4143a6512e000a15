package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"StockTracker/internal/domain/models"
	applogger "StockTracker/pkg/logger"
	"StockTracker/pkg/util"

	"github.com/go-resty/resty/v2"
)

const sourceName = "alphavantage"

// Client fetches intraday bars from the Alpha Vantage TIME_SERIES_INTRADAY endpoint.
type Client struct {
	client     *resty.Client
	apiKey     string
	interval   string
	outputSize string
	log        *applogger.Logger
	now        func() time.Time
}

// Option configures Client.
type Option func(*Client)

// NewClient creates a client. An empty apiKey is allowed; fetches then fail with
// models.ErrMissingCredential.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		client:     resty.New(),
		apiKey:     apiKey,
		interval:   "1min",
		outputSize: "full",
		log:        applogger.Nop(),
		now:        time.Now,
	}
	c.client.SetBaseURL("https://www.alphavantage.co")
	c.client.SetTimeout(30 * time.Second)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.client.SetBaseURL(strings.TrimRight(u, "/")) }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.SetTimeout(d) }
}

func WithInterval(interval string) Option {
	return func(c *Client) { c.interval = interval }
}

func WithOutputSize(size string) Option {
	return func(c *Client) { c.outputSize = size }
}

func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// Name implements repository.IntradaySource.
func (c *Client) Name() string { return sourceName }

type intradayMeta struct {
	Symbol   string `json:"2. Symbol"`
	TimeZone string `json:"6. Time Zone"`
}

type intradayBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// FetchIntraday returns the full intraday series for symbol in ascending time order.
// Timestamps carry the provider-reported time zone.
func (c *Client) FetchIntraday(ctx context.Context, symbol string) (*models.PriceSeries, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("intraday %s: %w", symbol, models.ErrMissingCredential)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_INTRADAY",
			"symbol":     symbol,
			"interval":   c.interval,
			"outputsize": c.outputSize,
			"apikey":     c.apiKey,
		}).
		Get("/query")
	if err != nil {
		return nil, fmt.Errorf("intraday %s: %w: %v", symbol, models.ErrDataUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return nil, fmt.Errorf("intraday %s: %w", symbol, models.ErrRateLimited)
	case resp.StatusCode() != http.StatusOK:
		return nil, fmt.Errorf("intraday %s: %w: status %d", symbol, models.ErrDataUnavailable, resp.StatusCode())
	}

	series, err := c.decode(symbol, resp.Body())
	if err != nil {
		c.log.Warn("alphavantage fetch failed", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, err
	}
	c.log.Debug("alphavantage fetched", applogger.String("symbol", symbol), applogger.Int("bars", series.Len()))
	return series, nil
}

func (c *Client) decode(symbol string, body []byte) (*models.PriceSeries, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("intraday %s: %w: decode: %v", symbol, models.ErrDataUnavailable, err)
	}

	if msg := stringField(raw, "Error Message"); msg != "" {
		return nil, fmt.Errorf("intraday %s: %w: %s", symbol, models.ErrDataUnavailable, msg)
	}
	if msg := stringField(raw, "Note"); msg != "" {
		return nil, fmt.Errorf("intraday %s: %w: %s", symbol, models.ErrRateLimited, msg)
	}
	if msg := stringField(raw, "Information"); msg != "" {
		if isThrottleMessage(msg) {
			return nil, fmt.Errorf("intraday %s: %w: %s", symbol, models.ErrRateLimited, msg)
		}
		return nil, fmt.Errorf("intraday %s: %w: %s", symbol, models.ErrDataUnavailable, msg)
	}

	var meta intradayMeta
	if m, ok := raw["Meta Data"]; ok {
		_ = json.Unmarshal(m, &meta)
	}
	loc := util.LoadLocation(meta.TimeZone)

	var rows map[string]intradayBar
	if ts, ok := raw[fmt.Sprintf("Time Series (%s)", c.interval)]; ok {
		if err := json.Unmarshal(ts, &rows); err != nil {
			return nil, fmt.Errorf("intraday %s: %w: decode series: %v", symbol, models.ErrDataUnavailable, err)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("intraday %s: %w: empty series", symbol, models.ErrDataUnavailable)
	}

	bars := make([]models.Bar, 0, len(rows))
	for stamp, row := range rows {
		t, ok := util.ParseInLocation(stamp, loc)
		if !ok {
			continue
		}
		bar, err := row.toBar(t)
		if err != nil {
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("intraday %s: %w: no parsable bars", symbol, models.ErrDataUnavailable)
	}

	return &models.PriceSeries{
		Symbol:    symbol,
		Source:    sourceName,
		Interval:  c.interval,
		Bars:      models.NormalizeBars(bars),
		FetchedAt: c.now(),
	}, nil
}

func (b intradayBar) toBar(t time.Time) (models.Bar, error) {
	var out models.Bar
	out.Time = t
	fields := []struct {
		s   string
		dst *float64
	}{
		{b.Open, &out.Open},
		{b.High, &out.High},
		{b.Low, &out.Low},
		{b.Close, &out.Close},
		{b.Volume, &out.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f.s), 64)
		if err != nil {
			return models.Bar{}, err
		}
		*f.dst = v
	}
	return out, nil
}

func stringField(raw map[string]json.RawMessage, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

func isThrottleMessage(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "rate limit") || strings.Contains(m, "call frequency")
}
