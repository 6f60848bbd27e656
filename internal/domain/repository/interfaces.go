package repository

import (
	"context"

	"StockCast/internal/domain/models"
)

// PriceStore provides read-only access to stored daily closes.
type PriceStore interface {
	GetDailyCloses(ctx context.Context, symbol string, limit int) (models.PriceSeries, error)
}

// PriceWriter stores daily closes for later forecasting.
type PriceWriter interface {
	StoreDailyCloses(ctx context.Context, series models.PriceSeries) error
}

// ForecastArchive persists completed forecasts.
type ForecastArchive interface {
	SaveForecast(ctx context.Context, r *models.ForecastResult) error
}

// Publisher emits forecast events to downstream consumers.
type Publisher interface {
	PublishForecast(ctx context.Context, r *models.ForecastResult) error
	Close() error
}

// Metrics records forecasting activity.
type Metrics interface {
	RecordForecast(source, result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordExamples(n int)
	RecordLastClose(symbol string, price float64)
}
