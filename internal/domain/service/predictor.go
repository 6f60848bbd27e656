package service

import (
	"context"

	"StockCast/internal/domain/models"
)

// Predictor maps one normalized window to horizon normalized values.
type Predictor interface {
	Predict(ctx context.Context, window []float64, horizon int) ([]float64, error)
	Name() string
}

// Notifier pushes completed forecasts to live subscribers.
type Notifier interface {
	Notify(r *models.ForecastResult)
}
