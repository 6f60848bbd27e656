package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	domsvc "StockCast/internal/domain/service"
	"StockCast/internal/service/cache"
	"StockCast/internal/services/calendar"
	"StockCast/internal/services/features"
	"StockCast/internal/services/sequence"
	applogger "StockCast/pkg/logger"
)

var (
	// ErrPrediction wraps predictor failures.
	ErrPrediction = errors.New("prediction failed")
	// ErrStoreUnavailable means no price store is configured.
	ErrStoreUnavailable = errors.New("price store not configured")
	// ErrSymbolNotFound means the store holds no closes for a symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
)

const (
	SourceUpload = "upload"
	SourceStore  = "store"

	sinkTimeout = 5 * time.Second
)

// ForecastConfig holds the explicit forecasting parameters.
type ForecastConfig struct {
	WindowSize    int
	Horizon       int
	MinRows       int
	HistoryPoints int
	HistoryLimit  int
	FeatureRange  sequence.FeatureRange
	SMAPeriods    []int
	CacheTTL      time.Duration
}

// Validate checks parameter sanity.
func (c ForecastConfig) Validate() error {
	if c.WindowSize <= 0 || c.Horizon <= 0 {
		return fmt.Errorf("window size and horizon must be positive, got %d and %d", c.WindowSize, c.Horizon)
	}
	if c.MinRows < c.WindowSize {
		return fmt.Errorf("min rows (%d) cannot be below window size (%d)", c.MinRows, c.WindowSize)
	}
	return c.FeatureRange.Validate()
}

// ForecasterOption configures optional Forecaster collaborators.
type ForecasterOption func(*Forecaster)

func WithPriceStore(s domrepo.PriceStore) ForecasterOption {
	return func(f *Forecaster) { f.store = s }
}

func WithArchive(a domrepo.ForecastArchive) ForecasterOption {
	return func(f *Forecaster) { f.archive = a }
}

func WithPublisher(p domrepo.Publisher) ForecasterOption {
	return func(f *Forecaster) { f.publisher = p }
}

func WithNotifier(n domsvc.Notifier) ForecasterOption {
	return func(f *Forecaster) { f.notifier = n }
}

func WithMetrics(m domrepo.Metrics) ForecasterOption {
	return func(f *Forecaster) { f.metrics = m }
}

// Forecaster turns a close series into a dated price forecast and chart.
type Forecaster struct {
	cfg       ForecastConfig
	predictor domsvc.Predictor
	store     domrepo.PriceStore
	archive   domrepo.ForecastArchive
	publisher domrepo.Publisher
	notifier  domsvc.Notifier
	cache     cache.BytesCache
	metrics   domrepo.Metrics
	l         *applogger.Logger
	now       func() time.Time
}

func NewForecaster(cfg ForecastConfig, predictor domsvc.Predictor, opts ...ForecasterOption) (*Forecaster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("forecaster: %w", err)
	}
	if predictor == nil {
		return nil, fmt.Errorf("forecaster: predictor is required")
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 1000
	}
	f := &Forecaster{
		cfg:       cfg,
		predictor: predictor,
		metrics:   nopMetrics{},
		l:         applogger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// SetLogger injects a structured logger.
func (f *Forecaster) SetLogger(l *applogger.Logger) { f.l = l }

// SetCache enables result caching keyed by the series digest.
func (f *Forecaster) SetCache(c cache.BytesCache) { f.cache = c }

// Config returns the forecasting parameters.
func (f *Forecaster) Config() ForecastConfig { return f.cfg }

// Forecast predicts the next Horizon business-day closes for an uploaded
// series.
func (f *Forecaster) Forecast(ctx context.Context, series models.PriceSeries) (*models.ForecastResult, error) {
	return f.run(ctx, series, SourceUpload)
}

// ForecastSymbol loads the latest stored closes for symbol and forecasts
// from them. limit <= 0 uses the configured history limit.
func (f *Forecaster) ForecastSymbol(ctx context.Context, symbol string, limit int) (*models.ForecastResult, error) {
	if f.store == nil {
		return nil, ErrStoreUnavailable
	}
	if limit <= 0 {
		limit = f.cfg.HistoryLimit
	}

	start := time.Now()
	series, err := f.store.GetDailyCloses(ctx, symbol, limit)
	f.metrics.RecordLatency("price_store_read", time.Since(start).Seconds())
	if err != nil {
		f.metrics.RecordForecast(SourceStore, "store_error")
		return nil, fmt.Errorf("load %s: %w", symbol, err)
	}
	if series.Len() == 0 {
		f.metrics.RecordForecast(SourceStore, "not_found")
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	series.Symbol = symbol
	return f.run(ctx, series, SourceStore)
}

func (f *Forecaster) run(ctx context.Context, series models.PriceSeries, source string) (*models.ForecastResult, error) {
	start := time.Now()
	defer func() { f.metrics.RecordLatency("forecast", time.Since(start).Seconds()) }()

	res, err := f.forecast(ctx, series)
	if err != nil {
		kind := ErrorKind(err)
		f.metrics.RecordForecast(source, kind)
		f.metrics.RecordError(kind)
		f.l.Warn("forecast failed",
			applogger.String("source", source),
			applogger.String("symbol", series.Symbol),
			applogger.Int("rows", series.Len()),
			applogger.Error(err),
		)
		return nil, err
	}

	if res.Cached {
		f.metrics.RecordForecast(source, "cached")
		return res, nil
	}
	f.metrics.RecordForecast(source, "ok")
	f.metrics.RecordLastClose(res.Symbol, res.LastClose)
	f.l.Info("forecast completed",
		applogger.String("id", res.ID),
		applogger.String("source", source),
		applogger.String("symbol", res.Symbol),
		applogger.String("model", res.Model),
		applogger.Int("rows", res.Rows),
		applogger.Float64("last_close", res.LastClose),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	f.deliver(ctx, res)
	return res, nil
}

func (f *Forecaster) forecast(ctx context.Context, series models.PriceSeries) (*models.ForecastResult, error) {
	n := series.Len()
	if n < f.cfg.MinRows {
		return nil, &sequence.InsufficientDataError{Op: "forecast", Required: f.cfg.MinRows, Got: n}
	}

	key := f.cacheKey(series)
	if cached, ok := f.fromCache(ctx, key); ok {
		return cached, nil
	}

	normalized, scaler, err := sequence.FitTransformSeries(series.Closes(), f.cfg.FeatureRange)
	if err != nil {
		return nil, err
	}
	if scaler.Degenerate() {
		f.l.Warn("constant close series, forecast will be flat",
			applogger.String("symbol", series.Symbol),
			applogger.Float64("close", scaler.DataMin()),
		)
	}

	window := normalized[n-f.cfg.WindowSize:]
	pred, err := f.predictor.Predict(ctx, window, f.cfg.Horizon)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrediction, err)
	}
	if len(pred) != f.cfg.Horizon {
		return nil, fmt.Errorf("%w: %s returned %d values for horizon %d", ErrPrediction, f.predictor.Name(), len(pred), f.cfg.Horizon)
	}
	prices := sequence.InverseTransform(scaler, pred)

	last, _ := series.Last()
	dates := calendar.NextBusinessDays(last.Date, f.cfg.Horizon)
	forecast := make([]models.ForecastPoint, len(prices))
	for i := range prices {
		forecast[i] = models.ForecastPoint{Date: dates[i], Price: prices[i]}
	}

	rng := scaler.Range()
	res := &models.ForecastResult{
		ID:          uuid.NewString(),
		Symbol:      series.Symbol,
		Model:       f.predictor.Name(),
		GeneratedAt: f.now().UTC(),
		Rows:        n,
		LastDate:    last.Date,
		LastClose:   last.Close,
		WindowSize:  f.cfg.WindowSize,
		Horizon:     f.cfg.Horizon,
		Scaler: models.ScalerBounds{
			DataMin:  scaler.DataMin(),
			DataMax:  scaler.DataMax(),
			RangeMin: rng.Min,
			RangeMax: rng.Max,
		},
		Forecast: forecast,
		Chart:    f.chart(series, forecast),
	}
	f.toCache(ctx, key, res)
	return res, nil
}

// chart plots the recent actual closes and a forecast line that starts at
// the last actual close so the two lines join.
func (f *Forecaster) chart(series models.PriceSeries, forecast []models.ForecastPoint) models.Chart {
	tail := series.Tail(f.cfg.HistoryPoints)
	actual := make([]models.ChartPoint, len(tail))
	for i, p := range tail {
		actual[i] = models.ChartPoint{Date: p.Date, Value: p.Close}
	}

	last, _ := series.Last()
	line := make([]models.ChartPoint, 0, len(forecast)+1)
	line = append(line, models.ChartPoint{Date: last.Date, Value: last.Close})
	for _, p := range forecast {
		line = append(line, models.ChartPoint{Date: p.Date, Value: p.Price})
	}

	return models.Chart{
		Actual:   actual,
		Forecast: line,
		Overlays: features.MovingAverages(series.Points, f.cfg.SMAPeriods, f.cfg.HistoryPoints),
	}
}

// deliver fans the result out to the archive, publisher and live
// subscribers. Failures are logged and counted but never fail the request.
func (f *Forecaster) deliver(ctx context.Context, res *models.ForecastResult) {
	if f.notifier != nil {
		f.notifier.Notify(res)
	}
	if f.archive == nil && f.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	var wg sync.WaitGroup
	if f.archive != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.archive.SaveForecast(ctx, res); err != nil {
				f.metrics.RecordError("archive")
				f.l.Error("archive forecast failed", applogger.String("id", res.ID), applogger.Error(err))
			}
		}()
	}
	if f.publisher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.publisher.PublishForecast(ctx, res); err != nil {
				f.metrics.RecordError("publish")
				f.l.Error("publish forecast failed", applogger.String("id", res.ID), applogger.Error(err))
			}
		}()
	}
	wg.Wait()
}

func (f *Forecaster) fromCache(ctx context.Context, key string) (*models.ForecastResult, bool) {
	if f.cache == nil {
		return nil, false
	}
	var res models.ForecastResult
	ok, err := cache.GetJSON(ctx, f.cache, key, &res)
	if err != nil {
		f.metrics.RecordError("cache_get")
		f.l.Warn("forecast cache read failed", applogger.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	res.Cached = true
	return &res, true
}

func (f *Forecaster) toCache(ctx context.Context, key string, res *models.ForecastResult) {
	if f.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, f.cache, key, res, f.cfg.CacheTTL); err != nil {
		f.metrics.RecordError("cache_set")
		f.l.Warn("forecast cache write failed", applogger.Error(err))
	}
}

// cacheKey digests everything that determines a forecast: the model, the
// parameters and every (date, close) pair.
func (f *Forecaster) cacheKey(series models.PriceSeries) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%d|%d|%v|%v|", f.predictor.Name(), series.Symbol,
		f.cfg.WindowSize, f.cfg.Horizon, f.cfg.HistoryPoints, f.cfg.FeatureRange, f.cfg.SMAPeriods)
	var buf [16]byte
	for _, p := range series.Points {
		binary.LittleEndian.PutUint64(buf[:8], uint64(p.Date.Unix()))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(p.Close))
		h.Write(buf[:])
	}
	return "forecast:" + hex.EncodeToString(h.Sum(nil))
}

// ErrorKind classifies an error for metrics labels.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, sequence.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, sequence.ErrDegenerateSeries):
		return "degenerate_series"
	case errors.Is(err, sequence.ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, ErrPrediction):
		return "prediction"
	case errors.Is(err, ErrSymbolNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordForecast(string, string) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordLatency(string, float64) {}
func (nopMetrics) RecordExamples(int) {}
func (nopMetrics) RecordLastClose(string, float64) {}
