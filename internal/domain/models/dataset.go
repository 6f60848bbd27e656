package models

import "time"

// CleanReport summarizes what the CSV loader kept and dropped.
type CleanReport struct {
	TotalRows     int `json:"total_rows"`
	DroppedRows   int `json:"dropped_rows"`
	DuplicateRows int `json:"duplicate_rows"`
	Rows          int `json:"rows"`
}

// SeriesSummary is a quick look at a cleaned series. Volatility is the
// annualized standard deviation of daily log returns.
type SeriesSummary struct {
	Symbol     string       `json:"symbol,omitempty"`
	Rows       int          `json:"rows"`
	FirstDate  time.Time    `json:"first_date"`
	LastDate   time.Time    `json:"last_date"`
	MinClose   float64      `json:"min_close"`
	MaxClose   float64      `json:"max_close"`
	LastClose  float64      `json:"last_close"`
	Volatility float64      `json:"annualized_volatility"`
	Tail       []PricePoint `json:"tail"`
	Report     CleanReport  `json:"report"`
}

// Shape is an array shape such as (batch, window, 1).
type Shape []int

// PreparedDataset is a scaled, windowed and chronologically split dataset.
type PreparedDataset struct {
	WindowSize int          `json:"window_size"`
	Horizon    int          `json:"horizon"`
	TestRatio  float64      `json:"test_ratio"`
	Examples   int          `json:"examples"`
	SplitIndex int          `json:"split_index"`
	Scaler     ScalerBounds `json:"scaler"`
	XTrain     Shape        `json:"x_train_shape"`
	YTrain     Shape        `json:"y_train_shape"`
	XTest      Shape        `json:"x_test_shape"`
	YTest      Shape        `json:"y_test_shape"`
	FirstDate  time.Time    `json:"first_target_date"`
	SplitDate  time.Time    `json:"first_eval_target_date"`

	TrainWindows [][]float64 `json:"train_windows,omitempty"`
	TrainTargets [][]float64 `json:"train_targets,omitempty"`
	EvalWindows  [][]float64 `json:"eval_windows,omitempty"`
	EvalTargets  [][]float64 `json:"eval_targets,omitempty"`
}
