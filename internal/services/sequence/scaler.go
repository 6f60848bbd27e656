package sequence

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// FeatureRange is the closed interval normalized values are mapped into.
type FeatureRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// DefaultFeatureRange returns [0, 1].
func DefaultFeatureRange() FeatureRange { return FeatureRange{Min: 0, Max: 1} }

// Validate reports whether the range is usable for scaling.
func (r FeatureRange) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return invalidRange("feature range must be finite, got [%v, %v]", r.Min, r.Max)
	}
	if r.Min >= r.Max {
		return invalidRange("feature range min %v must be below max %v", r.Min, r.Max)
	}
	return nil
}

// Width returns Max - Min.
func (r FeatureRange) Width() float64 { return r.Max - r.Min }

// Scaler is a fitted min-max transform. It is a plain value: fitting returns a
// new Scaler and nothing mutates it afterwards, so a forecasting session can
// pass it around without risk of refitting.
type Scaler struct {
	dataMin float64
	dataMax float64
	rng     FeatureRange
}

// NewScaler rebuilds a scaler from previously fitted bounds.
func NewScaler(dataMin, dataMax float64, rng FeatureRange) (Scaler, error) {
	if err := rng.Validate(); err != nil {
		return Scaler{}, err
	}
	if !isFinite(dataMin) || !isFinite(dataMax) || dataMin > dataMax {
		return Scaler{}, invalidRange("data bounds [%v, %v] are not a valid interval", dataMin, dataMax)
	}
	return Scaler{dataMin: dataMin, dataMax: dataMax, rng: rng}, nil
}

// DataMin returns the smallest raw value seen during fitting.
func (s Scaler) DataMin() float64 { return s.dataMin }

// DataMax returns the largest raw value seen during fitting.
func (s Scaler) DataMax() float64 { return s.dataMax }

// Range returns the target feature range.
func (s Scaler) Range() FeatureRange { return s.rng }

// Degenerate reports whether the scaler was fitted on a constant series.
func (s Scaler) Degenerate() bool { return s.dataMin == s.dataMax }

// RequireNonDegenerate returns ErrDegenerateSeries for constant-series scalers.
func (s Scaler) RequireNonDegenerate() error {
	if s.Degenerate() {
		return ErrDegenerateSeries
	}
	return nil
}

// Transform maps a raw value into the feature range. A degenerate scaler maps
// every value to the lower bound.
func (s Scaler) Transform(v float64) float64 {
	if s.Degenerate() {
		return s.rng.Min
	}
	span := s.dataMax - s.dataMin
	if math.IsInf(span, 0) {
		// halving is exact and keeps the span finite
		t := (v/2 - s.dataMin/2) / (s.dataMax/2 - s.dataMin/2)
		return s.rng.Min + t*s.rng.Width()
	}
	return s.rng.Min + (v-s.dataMin)/span*s.rng.Width()
}

// Inverse maps a normalized value back to the raw domain. A degenerate scaler
// returns the constant it was fitted on.
func (s Scaler) Inverse(v float64) float64 {
	if s.Degenerate() {
		return s.dataMin
	}
	span := s.dataMax - s.dataMin
	if math.IsInf(span, 0) {
		t := (v - s.rng.Min) / s.rng.Width()
		return 2 * ((1-t)*(s.dataMin/2) + t*(s.dataMax/2))
	}
	return s.dataMin + (v-s.rng.Min)/s.rng.Width()*span
}

// FitTransformSeries fits a min-max scaler on values and returns the
// normalized copy together with the fitted scaler. values is not modified.
func FitTransformSeries(values []float64, rng FeatureRange) ([]float64, Scaler, error) {
	if len(values) == 0 {
		return nil, Scaler{}, insufficient("fit transform", 1, 0)
	}
	if err := rng.Validate(); err != nil {
		return nil, Scaler{}, err
	}
	for i, v := range values {
		if !isFinite(v) {
			return nil, Scaler{}, invalidRange("value at index %d is not finite: %v", i, v)
		}
	}

	s := Scaler{dataMin: floats.Min(values), dataMax: floats.Max(values), rng: rng}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Transform(v)
	}
	return out, s, nil
}

// InverseTransform maps normalized values back into the raw domain.
//
// The scaler must have been fitted on the same value domain the values were
// normalized from; that cannot be checked here.
func InverseTransform(s Scaler, normalized []float64) []float64 {
	out := make([]float64, len(normalized))
	for i, v := range normalized {
		out[i] = s.Inverse(v)
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
