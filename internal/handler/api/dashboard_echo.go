package api

import (
	"errors"
	"net/http"

	"StockTracker/internal/domain/models"
	"StockTracker/internal/render"
	"StockTracker/internal/usecase"
	xhttp "StockTracker/pkg/http"
	"StockTracker/pkg/http/middleware"
	xlogger "StockTracker/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DashboardEchoHandler serves the dashboard page and its JSON endpoints.
type DashboardEchoHandler struct {
	logger           *xlogger.Logger
	dash             *usecase.Dashboard
	defaultSymbol    string
	defaultThreshold float64
	defaultPeriod    string
	defaultHorizon   int
	limiter          middleware.Allower
}

// Option configures DashboardEchoHandler.
type Option func(*DashboardEchoHandler)

// WithDefaults sets the symbol and threshold used when a request omits them.
func WithDefaults(symbol string, threshold float64) Option {
	return func(h *DashboardEchoHandler) {
		if symbol != "" {
			h.defaultSymbol = symbol
		}
		h.defaultThreshold = threshold
	}
}

// WithForecastDefaults sets the historical period and horizon used when a request omits them.
func WithForecastDefaults(period string, horizonDays int) Option {
	return func(h *DashboardEchoHandler) {
		h.defaultPeriod = period
		h.defaultHorizon = horizonDays
	}
}

// WithRateLimiter throttles /api/* per client.
func WithRateLimiter(a middleware.Allower) Option {
	return func(h *DashboardEchoHandler) { h.limiter = a }
}

func NewDashboardEchoHandler(logger *xlogger.Logger, dash *usecase.Dashboard, opts ...Option) *DashboardEchoHandler {
	h := &DashboardEchoHandler{
		logger:           logger,
		dash:             dash,
		defaultSymbol:    "AAPL",
		defaultThreshold: 150,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Page)
	e.GET("/healthz", h.Health)

	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, middleware.RateLimit(h.limiter))
	}
	g := e.Group("/api", mw...)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/intraday", h.Intraday)
	g.GET("/historical", h.Historical)
	g.GET("/forecast", h.Forecast)
	g.GET("/alert", h.Alert)
}

// Page renders the HTML dashboard. Section failures are part of the page, not the status.
func (h *DashboardEchoHandler) Page(c echo.Context) error {
	in, verr := h.readInputs(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	view := h.dash.Evaluate(c.Request().Context(), in)
	return c.Render(http.StatusOK, render.DashboardTemplate, view)
}

// Dashboard returns the whole view as JSON, 200 even with partial section errors.
func (h *DashboardEchoHandler) Dashboard(c echo.Context) error {
	in, verr := h.readInputs(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.dash.Evaluate(c.Request().Context(), in))
}

func (h *DashboardEchoHandler) Intraday(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.symbolDefault(c, &req.Symbol)

	res, err := h.dash.Intraday(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "intraday", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) Historical(c echo.Context) error {
	req := &models.HistoricalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.symbolDefault(c, &req.Symbol)
	h.forecastDefaults(c, &req.Period, nil)

	res, err := h.dash.Historical(c.Request().Context(), req.Symbol, models.Period(req.Period))
	if err != nil {
		return h.fail(c, "historical", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.symbolDefault(c, &req.Symbol)
	h.forecastDefaults(c, &req.Period, &req.Horizon)

	res, err := h.dash.Forecast(c.Request().Context(), req.Symbol, models.Period(req.Period), req.Horizon)
	if err != nil {
		return h.fail(c, "forecast", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) Alert(c echo.Context) error {
	req := &models.AlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.symbolDefault(c, &req.Symbol)
	h.thresholdDefault(c, &req.Threshold)

	res, err := h.dash.Alert(c.Request().Context(), req.Symbol, req.Threshold)
	if err != nil {
		return h.fail(c, "alert", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *DashboardEchoHandler) readInputs(c echo.Context) (models.DashboardInputs, interface{}) {
	req := &models.DashboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return models.DashboardInputs{}, verr
	}
	h.symbolDefault(c, &req.Symbol)
	h.thresholdDefault(c, &req.Threshold)
	h.forecastDefaults(c, &req.Period, &req.Horizon)
	return models.DashboardInputs{
		Symbol:    req.Symbol,
		Threshold: req.Threshold,
		Period:    models.Period(req.Period),
		Horizon:   req.Horizon,
	}, nil
}

// The *Default helpers apply configured defaults to parameters the client omitted.
func (h *DashboardEchoHandler) symbolDefault(c echo.Context, symbol *string) {
	if !c.QueryParams().Has("symbol") {
		*symbol = h.defaultSymbol
	}
}

func (h *DashboardEchoHandler) thresholdDefault(c echo.Context, threshold *float64) {
	if !c.QueryParams().Has("threshold") {
		*threshold = h.defaultThreshold
	}
}

func (h *DashboardEchoHandler) forecastDefaults(c echo.Context, period *string, horizon *int) {
	if h.defaultPeriod != "" && !c.QueryParams().Has("period") {
		*period = h.defaultPeriod
	}
	if horizon != nil && h.defaultHorizon > 0 && !c.QueryParams().Has("horizon") {
		*horizon = h.defaultHorizon
	}
}

func (h *DashboardEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	h.logger.Warn("dashboard endpoint error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
	return xhttp.AppErrorResponse(c, toAppError(err))
}

// toAppError maps domain errors onto HTTP statuses.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, models.ErrDataUnavailable):
		return xhttp.NotFoundError(err.Error()).WithError(err).WithParam("kind", models.ErrorKind(err))
	case errors.Is(err, models.ErrRateLimited):
		return xhttp.TooManyRequestsError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvalidPeriod):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.UnprocessableEntityError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError(err.Error()).WithError(err)
	}
}
