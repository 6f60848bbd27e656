package sequence

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is returned when a series is too short to build at
	// least one window/target pair or to split the resulting examples.
	ErrInsufficientData = errors.New("sequence: insufficient data")

	// ErrInvalidRange is returned for non-positive window sizes or horizons,
	// test ratios outside (0,1), bad feature ranges and non-finite values.
	ErrInvalidRange = errors.New("sequence: invalid range")

	// ErrDegenerateSeries is returned only by callers that opt into strict
	// handling of constant series via Scaler.RequireNonDegenerate.
	ErrDegenerateSeries = errors.New("sequence: degenerate series")
)

// InsufficientDataError names the minimum length an operation needed.
type InsufficientDataError struct {
	Op       string
	Required int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: need at least %d values, got %d", e.Op, e.Required, e.Got)
}

// Is lets errors.Is(err, ErrInsufficientData) match.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

func insufficient(op string, required, got int) error {
	return &InsufficientDataError{Op: op, Required: required, Got: got}
}

func invalidRange(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRange, fmt.Sprintf(format, a...))
}
