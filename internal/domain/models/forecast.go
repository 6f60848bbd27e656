package models

import "time"

// ForecastPoint is a predicted close for a business day.
type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// ChartPoint is a dated value in a plotted line.
type ChartPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ChartSeries is a named line, e.g. "SMA20".
type ChartSeries struct {
	Name   string       `json:"name"`
	Points []ChartPoint `json:"points"`
}

// Chart carries everything the dashboard plots: the recent actual closes, the
// forecast line anchored at the last actual close, and moving-average overlays.
type Chart struct {
	Actual   []ChartPoint  `json:"actual"`
	Forecast []ChartPoint  `json:"forecast"`
	Overlays []ChartSeries `json:"overlays,omitempty"`
}

// ScalerBounds describes the fitted min-max transform used for a forecast.
type ScalerBounds struct {
	DataMin  float64 `json:"data_min"`
	DataMax  float64 `json:"data_max"`
	RangeMin float64 `json:"range_min"`
	RangeMax float64 `json:"range_max"`
}

// ForecastResult is the outcome of one forecasting session.
type ForecastResult struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol,omitempty"`
	Model       string          `json:"model"`
	GeneratedAt time.Time       `json:"generated_at"`
	Rows        int             `json:"rows"`
	LastDate    time.Time       `json:"last_date"`
	LastClose   float64         `json:"last_close"`
	WindowSize  int             `json:"window_size"`
	Horizon     int             `json:"horizon"`
	Scaler      ScalerBounds    `json:"scaler"`
	Forecast    []ForecastPoint `json:"forecast"`
	Chart       Chart           `json:"chart"`
	Cached      bool            `json:"cached"`
}

// ForecastEvent is published after a forecast completes.
type ForecastEvent struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol,omitempty"`
	Model       string          `json:"model"`
	GeneratedAt time.Time       `json:"generated_at"`
	LastDate    time.Time       `json:"last_date"`
	LastClose   float64         `json:"last_close"`
	Forecast    []ForecastPoint `json:"forecast"`
}

// Event returns the publishable view of a result.
func (r *ForecastResult) Event() ForecastEvent {
	return ForecastEvent{
		ID:          r.ID,
		Symbol:      r.Symbol,
		Model:       r.Model,
		GeneratedAt: r.GeneratedAt,
		LastDate:    r.LastDate,
		LastClose:   r.LastClose,
		Forecast:    r.Forecast,
	}
}
