package models

// Requests for the forecasting HTTP endpoints. Uploads carry their fields as
// multipart form values; GET endpoints read the query string.

type ForecastUploadRequest struct {
	Symbol string `form:"symbol" query:"symbol" json:"symbol" validate:"omitempty,ticker"`
}

type SymbolForecastRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,ticker"`
	Limit  int    `query:"limit" json:"limit" default:"1000" validate:"gte=1,lte=20000"`
}

type PrepareRequest struct {
	WindowSize      int     `form:"window_size" query:"window_size" json:"window_size" default:"60" validate:"gte=1,lte=2000"`
	Horizon         int     `form:"horizon" query:"horizon" json:"horizon" default:"7" validate:"gte=1,lte=365"`
	TestRatio       float64 `form:"test_ratio" query:"test_ratio" json:"test_ratio" default:"0.2" validate:"gt=0,lt=1"`
	IncludeExamples bool    `form:"include_examples" query:"include_examples" json:"include_examples"`
}

type SummaryRequest struct {
	Symbol string `form:"symbol" query:"symbol" json:"symbol" validate:"omitempty,ticker"`
	Tail   int    `form:"tail" query:"tail" json:"tail" default:"5" validate:"gte=1,lte=100"`
}
