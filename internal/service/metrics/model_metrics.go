package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	domsvc "StockCast/internal/domain/service"
)

// ModelMetrics tracks calls to the model backend.
type ModelMetrics struct {
	Latency *prometheus.HistogramVec
	Errors  *prometheus.CounterVec
}

func NewModelMetrics(reg prometheus.Registerer) *ModelMetrics {
	f := promauto.With(reg)
	return &ModelMetrics{
		Latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stockcast",
				Subsystem: "model",
				Name:      "latency_seconds",
				Help:      "Latency of model predict calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		Errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stockcast",
				Subsystem: "model",
				Name:      "errors_total",
				Help:      "Failed model predict calls",
			},
			[]string{"model"},
		),
	}
}

// Instrument wraps p so every Predict call is timed and failures counted.
func (m *ModelMetrics) Instrument(p domsvc.Predictor) domsvc.Predictor {
	return &instrumented{Predictor: p, m: m}
}

type instrumented struct {
	domsvc.Predictor
	m *ModelMetrics
}

func (i *instrumented) Predict(ctx context.Context, window []float64, horizon int) ([]float64, error) {
	start := time.Now()
	out, err := i.Predictor.Predict(ctx, window, horizon)
	name := i.Name()
	i.m.Latency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		i.m.Errors.WithLabelValues(name).Inc()
	}
	return out, err
}
