package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"StockTracker/internal/domain/models"
	applogger "StockTracker/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// PageTitle is the dashboard heading.
const PageTitle = "Stock Price Tracker and Analysis"

// DashboardTemplate is the name of the page template.
const DashboardTemplate = "dashboard.html"

// Alert message levels.
const (
	LevelWarning = "warning"
	LevelInfo    = "info"
	LevelError   = "error"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer turns a DashboardView into the dashboard HTML page. It implements echo.Renderer.
type Renderer struct {
	tmpl        *template.Template
	previewRows int
	log         *applogger.Logger
}

// Option configures Renderer.
type Option func(*Renderer)

// WithPreviewRows sets the number of rows in each section table. Default 5.
func WithPreviewRows(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.previewRows = n
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(r *Renderer) { r.log = l }
}

func New(opts ...Option) (*Renderer, error) {
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r := &Renderer{tmpl: tmpl, previewRows: 5, log: applogger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Render implements echo.Renderer. data must be a *models.DashboardView.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	view, ok := data.(*models.DashboardView)
	if !ok {
		return fmt.Errorf("render %s: unsupported data %T", name, data)
	}
	return r.tmpl.ExecuteTemplate(w, name, r.Page(view))
}

// Page is the template model of the dashboard.
type Page struct {
	Title      string
	Symbol     string
	Threshold  string
	Period     string
	Horizon    int
	Intraday   Section
	Historical Section
	Forecast   Section
	Alert      Message
}

type Section struct {
	Heading string
	Error   string
	Table   Table
	Chart   template.HTML
}

type Table struct {
	Header []string
	Rows   [][]string
}

type Message struct {
	Level string
	Text  string
}

// Page builds the template model for view.
func (r *Renderer) Page(view *models.DashboardView) *Page {
	in := view.Inputs
	p := &Page{
		Title:     PageTitle,
		Symbol:    in.Symbol,
		Threshold: strconv.FormatFloat(in.Threshold, 'f', -1, 64),
		Period:    string(in.Period),
		Horizon:   in.Horizon,
		Alert:     AlertMessage(view),
	}

	p.Intraday.Heading = "Real-time data for " + in.Symbol
	if e, ok := view.Err(models.SectionIntraday); ok {
		p.Intraday.Error = e.Message
	} else if view.Intraday != nil {
		p.Intraday.Table = barTable(view.Intraday.Recent(r.previewRows), "2006-01-02 15:04:05")
		p.Intraday.Chart = r.chart(in.Symbol+" intraday close", "15:04",
			chartLine{label: "Close", xys: barCloses(view.Intraday.Bars), color: colorClose})
	}

	p.Historical.Heading = "Historical data for " + in.Symbol
	if e, ok := view.Err(models.SectionHistorical); ok {
		p.Historical.Error = e.Message
	} else if view.Historical != nil {
		p.Historical.Table = barTable(view.Historical.Tail(r.previewRows), "2006-01-02")
		p.Historical.Chart = r.chart(in.Symbol+" historical close", "2006-01-02",
			chartLine{label: "Close", xys: barCloses(view.Historical.Bars), color: colorClose})
	}

	p.Forecast.Heading = "Forecasting future prices for " + in.Symbol
	if e, ok := view.Err(models.SectionForecast); ok {
		p.Forecast.Error = e.Message
	} else if view.Forecast != nil {
		p.Forecast.Table = forecastTable(view.Forecast.Tail(r.previewRows))
		p.Forecast.Chart = r.chart(in.Symbol+" forecast", "2006-01", forecastLines(view.Forecast.Points)...)
	}
	return p
}

// chart logs and omits a chart that cannot be drawn; the table still renders.
func (r *Renderer) chart(title, timeFormat string, lines ...chartLine) template.HTML {
	svg, err := svgChart(title, timeFormat, lines...)
	if err != nil {
		r.log.Warn("chart render failed", applogger.String("chart", title), applogger.Error(err))
		return ""
	}
	return svg
}

// AlertMessage returns the alert banner for view.
func AlertMessage(view *models.DashboardView) Message {
	if e, ok := view.Err(models.SectionAlert); ok {
		return Message{Level: LevelError, Text: "Unable to evaluate alert: " + e.Message}
	}
	a := view.Alert
	if a == nil {
		return Message{Level: LevelError, Text: "Unable to evaluate alert: no intraday data"}
	}
	if a.Triggered {
		return Message{
			Level: LevelWarning,
			Text: fmt.Sprintf("Alert! The stock price for %s has reached or exceeded $%s. Current price: $%s",
				a.Symbol, Price(a.Threshold), Price(a.LatestPrice)),
		}
	}
	return Message{
		Level: LevelInfo,
		Text:  fmt.Sprintf("The current stock price is $%s. No alert triggered yet.", Price(a.LatestPrice)),
	}
}

// Price formats v as a two-decimal currency amount.
func Price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func barTable(bars []models.Bar, timeLayout string) Table {
	t := Table{Header: []string{"Time", "Open", "High", "Low", "Close", "Volume"}}
	for _, b := range bars {
		t.Rows = append(t.Rows, []string{
			b.Time.Format(timeLayout),
			Price(b.Open),
			Price(b.High),
			Price(b.Low),
			Price(b.Close),
			decimal.NewFromFloat(b.Volume).StringFixed(0),
		})
	}
	return t
}

func forecastTable(points []models.ForecastPoint) Table {
	t := Table{Header: []string{"Date", "Forecast", "Lower", "Upper"}}
	for _, p := range points {
		t.Rows = append(t.Rows, []string{
			p.Date.Format("2006-01-02"),
			Price(p.Estimate),
			Price(p.Lower),
			Price(p.Upper),
		})
	}
	return t
}
