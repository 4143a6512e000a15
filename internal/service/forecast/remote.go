package forecast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"StockTracker/internal/domain/models"
	domsvc "StockTracker/internal/domain/service"
	xhttp "StockTracker/pkg/http"
	applogger "StockTracker/pkg/logger"
)

const dateLayout = "2006-01-02"

// Remote delegates fitting to a forecasting sidecar over HTTP (POST {baseURL}/forecast).
type Remote struct {
	baseURL       string
	client        *xhttp.Client
	intervalWidth float64
	log           *applogger.Logger
}

// RemoteOption configures Remote.
type RemoteOption func(*Remote)

func WithRemoteTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) { r.client = xhttp.NewClient(xhttp.WithTimeout(d)) }
}

func WithRemoteIntervalWidth(w float64) RemoteOption {
	return func(r *Remote) {
		if w > 0 && w < 1 {
			r.intervalWidth = w
		}
	}
}

func WithRemoteLogger(l *applogger.Logger) RemoteOption {
	return func(r *Remote) { r.log = l }
}

func NewRemote(baseURL string, opts ...RemoteOption) *Remote {
	r := &Remote{
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
		intervalWidth: 0.8,
		log:           applogger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type remoteRequest struct {
	Symbol        string    `json:"symbol"`
	DS            []string  `json:"ds"`
	Y             []float64 `json:"y"`
	Periods       int       `json:"periods"`
	IntervalWidth float64   `json:"interval_width"`
}

type remoteResponse struct {
	Model string `json:"model"`
	Rows  []struct {
		DS        string  `json:"ds"`
		YHat      float64 `json:"yhat"`
		YHatLower float64 `json:"yhat_lower"`
		YHatUpper float64 `json:"yhat_upper"`
	} `json:"rows"`
}

// Forecast posts the daily sample to the sidecar. Any transport failure or a row whose bounds
// do not bracket its estimate is ErrFitting.
func (r *Remote) Forecast(ctx context.Context, series *models.PriceSeries, horizonDays int) (*models.Forecast, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	obs, err := dailyObservations(series)
	if err != nil {
		return nil, err
	}

	req := remoteRequest{
		Symbol:        series.Symbol,
		DS:            make([]string, len(obs.dates)),
		Y:             obs.values,
		Periods:       horizonDays,
		IntervalWidth: r.intervalWidth,
	}
	for i, d := range obs.dates {
		req.DS[i] = d.Format(dateLayout)
	}

	var resp remoteResponse
	err = r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     r.baseURL + "/forecast",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    req,
	}, &resp)
	if err != nil {
		r.log.Warn("remote forecast failed", applogger.String("symbol", series.Symbol), applogger.Error(err))
		return nil, fmt.Errorf("%w: post /forecast: %v", models.ErrFitting, err)
	}
	if len(resp.Rows) == 0 {
		return nil, fmt.Errorf("%w: empty response", models.ErrFitting)
	}

	points := make([]models.ForecastPoint, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		d, err := time.Parse(dateLayout, row.DS[:min(len(row.DS), len(dateLayout))])
		if err != nil {
			return nil, fmt.Errorf("%w: bad date %q", models.ErrFitting, row.DS)
		}
		if !(row.YHatLower <= row.YHat && row.YHat <= row.YHatUpper) {
			return nil, fmt.Errorf("%w: bounds do not bracket estimate on %s", models.ErrFitting, row.DS)
		}
		points = append(points, models.ForecastPoint{
			Date:     d,
			Estimate: row.YHat,
			Lower:    row.YHatLower,
			Upper:    row.YHatUpper,
		})
	}

	model := resp.Model
	if model == "" {
		model = "remote"
	}
	return &models.Forecast{
		Symbol:      series.Symbol,
		Model:       model,
		HorizonDays: horizonDays,
		Points:      points,
	}, nil
}

var _ domsvc.Forecaster = (*Remote)(nil)
