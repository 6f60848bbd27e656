package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	domsvc "StockCast/internal/domain/service"
	"StockCast/pkg/logger"
)

// ErrBadPrediction is returned when the model service answers with the wrong
// number of values or with non-finite values.
var ErrBadPrediction = errors.New("model returned an invalid prediction")

const predictPath = "/lstm/predict"

type predictReq struct {
	Model   string        `json:"model"`
	Inputs  [][][]float64 `json:"inputs"`
	Horizon int           `json:"horizon"`
	Seed    int64         `json:"seed"`
	Spec    *ModelSpec    `json:"spec,omitempty"`
}

type predictResp struct {
	Predictions [][]float64 `json:"predictions"`
	Model       string      `json:"model,omitempty"`
}

// HTTPPredictor delegates inference to an external model service.
type HTTPPredictor struct {
	base     *HTTPServiceBase
	spec     ModelSpec
	attempts int
	logger   *logger.Logger
}

// HTTPOption configures an HTTPPredictor.
type HTTPOption func(*HTTPPredictor)

// WithAttempts sets how many times a transient failure is retried.
func WithAttempts(n int) HTTPOption {
	return func(p *HTTPPredictor) { p.attempts = n }
}

// WithBackoff sets the linear retry backoff step.
func WithBackoff(d time.Duration) HTTPOption {
	return func(p *HTTPPredictor) { p.base.backoff = d }
}

func NewHTTPPredictor(baseURL string, timeout time.Duration, spec ModelSpec, opts ...HTTPOption) *HTTPPredictor {
	p := &HTTPPredictor{
		base:     NewHTTPServiceBase(baseURL, timeout),
		spec:     spec,
		attempts: 3,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetLogger sets the logger for the predictor.
func (p *HTTPPredictor) SetLogger(l *logger.Logger) { p.logger = l }

func (p *HTTPPredictor) Name() string { return p.spec.Name }

// Spec returns the architecture sent with each request.
func (p *HTTPPredictor) Spec() ModelSpec { return p.spec }

// Predict sends window shaped (1, len(window), 1) and returns horizon
// normalized values.
func (p *HTTPPredictor) Predict(ctx context.Context, window []float64, horizon int) ([]float64, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("predict: horizon must be positive, got %d", horizon)
	}
	if len(window) != p.spec.WindowSize {
		return nil, fmt.Errorf("predict: window has %d values, model expects %d", len(window), p.spec.WindowSize)
	}

	inputs := make([][]float64, len(window))
	for i, v := range window {
		inputs[i] = []float64{v}
	}
	spec := p.spec
	req := predictReq{
		Model:   p.spec.Name,
		Inputs:  [][][]float64{inputs},
		Horizon: horizon,
		Seed:    p.spec.Seed,
		Spec:    &spec,
	}

	start := time.Now()
	var resp predictResp
	if err := p.base.PostJSONWithRetry(ctx, predictPath, req, &resp, p.attempts); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if p.logger != nil {
		p.logger.Debug("model service responded",
			logger.String("model", p.spec.Name),
			logger.Duration("latency_ms", time.Since(start)),
		)
	}

	if len(resp.Predictions) != 1 || len(resp.Predictions[0]) != horizon {
		got := 0
		if len(resp.Predictions) > 0 {
			got = len(resp.Predictions[0])
		}
		return nil, fmt.Errorf("%w: want %d values, got %d", ErrBadPrediction, horizon, got)
	}
	out := resp.Predictions[0]
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: value %d is not finite", ErrBadPrediction, i)
		}
	}
	return out, nil
}

var _ domsvc.Predictor = (*HTTPPredictor)(nil)
