package predictor

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	domsvc "StockCast/internal/domain/service"
	"StockCast/internal/services/sequence"
)

// BaselinePredictor extrapolates the least-squares trend of the window. It
// serves forecasts when no model service is configured.
type BaselinePredictor struct {
	lo, hi float64
}

// NewBaselinePredictor clamps output to rng widened by one range width on
// each side so a steep trend cannot run away.
func NewBaselinePredictor(rng sequence.FeatureRange) *BaselinePredictor {
	w := rng.Width()
	return &BaselinePredictor{lo: rng.Min - w, hi: rng.Max + w}
}

func (b *BaselinePredictor) Name() string { return "linear_baseline" }

func (b *BaselinePredictor) Predict(_ context.Context, window []float64, horizon int) ([]float64, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("predict: horizon must be positive, got %d", horizon)
	}
	if len(window) == 0 {
		return nil, fmt.Errorf("predict: empty window")
	}

	n := len(window)
	out := make([]float64, horizon)
	if n == 1 {
		for i := range out {
			out[i] = b.clamp(window[0])
		}
		return out, nil
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, window, nil, false)
	for i := range out {
		out[i] = b.clamp(alpha + beta*float64(n+i))
	}
	return out, nil
}

func (b *BaselinePredictor) clamp(v float64) float64 {
	return math.Max(b.lo, math.Min(b.hi, v))
}

var _ domsvc.Predictor = (*BaselinePredictor)(nil)
