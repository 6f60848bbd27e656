package api

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"StockCast/internal/domain/models"
	"StockCast/internal/service/ratelimit"
	"StockCast/internal/services/dataset"
	"StockCast/internal/usecase"
	xhttp "StockCast/pkg/http"
	xlogger "StockCast/pkg/logger"
)

const defaultMaxUploadBytes = 10 << 20

// RateLimit is a per-client token bucket setting.
type RateLimit struct {
	Capacity     float64
	RefillPerSec float64
}

// HandlerOption configures ForecastEchoHandler.
type HandlerOption func(*ForecastEchoHandler)

// WithRateLimit limits upload endpoints per client IP.
func WithRateLimit(l *ratelimit.Limiter, rl RateLimit) HandlerOption {
	return func(h *ForecastEchoHandler) {
		h.limiter = l
		h.rate = rl
	}
}

// WithMaxUploadBytes caps the accepted CSV size.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *ForecastEchoHandler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// ForecastEchoHandler serves the forecasting and dataset endpoints.
type ForecastEchoHandler struct {
	logger     *xlogger.Logger
	forecaster *usecase.Forecaster
	preparer   *usecase.Preparer
	limiter    *ratelimit.Limiter
	rate       RateLimit
	maxUpload  int64
}

func NewForecastEchoHandler(logger *xlogger.Logger, forecaster *usecase.Forecaster, preparer *usecase.Preparer, opts ...HandlerOption) *ForecastEchoHandler {
	h := &ForecastEchoHandler{
		logger:     logger,
		forecaster: forecaster,
		preparer:   preparer,
		maxUpload:  defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/forecast", h.ForecastUpload, h.rateLimit)
	g.GET("/forecast/:symbol", h.ForecastSymbol)
	g.POST("/prepare", h.Prepare, h.rateLimit)
	g.POST("/summary", h.Summary, h.rateLimit)
}

// ForecastUpload forecasts from an uploaded CSV with Date and Close columns.
func (h *ForecastEchoHandler) ForecastUpload(c echo.Context) error {
	req := &models.ForecastUploadRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	series, _, appErr := h.readUpload(c)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	series.Symbol = req.Symbol

	res, err := h.forecaster.Forecast(requestContext(c), series)
	if err != nil {
		return h.fail(c, "forecast usecase error", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// ForecastSymbol forecasts from the stored history of a symbol.
func (h *ForecastEchoHandler) ForecastSymbol(c echo.Context) error {
	req := &models.SymbolForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.forecaster.ForecastSymbol(requestContext(c), req.Symbol, req.Limit)
	if err != nil {
		return h.fail(c, "forecast symbol usecase error", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

// Prepare builds the windowed dataset for an uploaded CSV and reports its
// shapes.
func (h *ForecastEchoHandler) Prepare(c echo.Context) error {
	req := &models.PrepareRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	series, _, appErr := h.readUpload(c)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	out, err := h.preparer.Prepare(c.Request().Context(), series, usecase.PrepareParams{
		WindowSize:      req.WindowSize,
		Horizon:         req.Horizon,
		TestRatio:       req.TestRatio,
		IncludeExamples: req.IncludeExamples,
	})
	if err != nil {
		return h.fail(c, "prepare usecase error", err)
	}
	return xhttp.SuccessResponse(c, out)
}

// Summary previews the cleaned upload.
func (h *ForecastEchoHandler) Summary(c echo.Context) error {
	req := &models.SummaryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	series, report, appErr := h.readUpload(c)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	series.Symbol = req.Symbol
	return xhttp.SuccessResponse(c, h.preparer.Summary(series, report, req.Tail))
}

func (h *ForecastEchoHandler) readUpload(c echo.Context) (models.PriceSeries, models.CleanReport, *xhttp.AppError) {
	fh, err := c.FormFile("file")
	if err != nil {
		return models.PriceSeries{}, models.CleanReport{}, xhttp.NewAppError(ErrCodeMissingFile, "file", "multipart field 'file' with a CSV is required", http.StatusBadRequest).WithError(err)
	}
	if fh.Size > h.maxUpload {
		return models.PriceSeries{}, models.CleanReport{}, xhttp.NewAppError(ErrCodeFileTooLarge, "file",
			fmt.Sprintf("file is %d bytes, limit is %d", fh.Size, h.maxUpload), http.StatusRequestEntityTooLarge).
			WithParam("max", h.maxUpload)
	}
	f, err := fh.Open()
	if err != nil {
		return models.PriceSeries{}, models.CleanReport{}, xhttp.InternalError("could not open upload").WithError(err)
	}
	defer f.Close()

	series, report, err := dataset.ReadCSV(io.LimitReader(f, h.maxUpload))
	if err != nil {
		return models.PriceSeries{}, report, toAppError(err)
	}
	if h.logger != nil {
		h.logger.Debug("csv upload parsed",
			xlogger.String("filename", fh.Filename),
			xlogger.Int("rows", report.Rows),
			xlogger.Int("dropped", report.DroppedRows),
			xlogger.Int("duplicates", report.DuplicateRows),
		)
	}
	return series, report, nil
}

func (h *ForecastEchoHandler) fail(c echo.Context, msg string, err error) error {
	appErr := toAppError(err)
	if h.logger != nil {
		if appErr.Status >= 500 {
			h.logger.Error(msg, xlogger.Error(err), xlogger.String("code", appErr.Code))
		} else {
			h.logger.Warn(msg, xlogger.Error(err), xlogger.String("code", appErr.Code))
		}
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// requestContext carries the echo request ID to model service calls.
func requestContext(c echo.Context) context.Context {
	ctx := c.Request().Context()
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		ctx = xhttp.ContextWithRequestID(ctx, id)
	}
	return ctx
}

func (h *ForecastEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter == nil {
			return next(c)
		}
		ok, wait := h.limiter.Take(c.RealIP(), h.rate.Capacity, h.rate.RefillPerSec)
		if !ok {
			if wait > 0 {
				secs := int(math.Ceil(wait.Seconds()))
				c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(secs))
			}
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many uploads, slow down"))
		}
		return next(c)
	}
}
