package api

import (
	"errors"
	"net/http"

	"StockCast/internal/services/dataset"
	"StockCast/internal/services/sequence"
	"StockCast/internal/usecase"
	xhttp "StockCast/pkg/http"
)

const (
	ErrCodeInsufficientData = "ERR_INSUFFICIENT_DATA"
	ErrCodeInvalidRange     = "ERR_INVALID_RANGE"
	ErrCodeDegenerateSeries = "ERR_DEGENERATE_SERIES"
	ErrCodeInvalidCSV       = "ERR_INVALID_CSV"
	ErrCodeMissingFile      = "ERR_MISSING_FILE"
	ErrCodeFileTooLarge     = "ERR_FILE_TOO_LARGE"
	ErrCodeModelUnavailable = "ERR_MODEL_UNAVAILABLE"
)

// toAppError maps domain errors onto HTTP application errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var ide *sequence.InsufficientDataError
	switch {
	case errors.As(err, &ide):
		return xhttp.UnprocessableError(ErrCodeInsufficientData, ide.Error()).
			WithParam("required", ide.Required).
			WithParam("got", ide.Got).
			WithError(err)
	case errors.Is(err, sequence.ErrInsufficientData):
		return xhttp.UnprocessableError(ErrCodeInsufficientData, err.Error()).WithError(err)
	case errors.Is(err, sequence.ErrDegenerateSeries):
		return xhttp.UnprocessableError(ErrCodeDegenerateSeries, err.Error()).WithError(err)
	case errors.Is(err, sequence.ErrInvalidRange):
		return xhttp.NewAppError(ErrCodeInvalidRange, "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, dataset.ErrMissingColumns),
		errors.Is(err, dataset.ErrNoRows),
		errors.Is(err, dataset.ErrInvalidCSV):
		return xhttp.NewAppError(ErrCodeInvalidCSV, "file", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, usecase.ErrPrediction):
		return xhttp.BadGatewayError(ErrCodeModelUnavailable, "model service unavailable").WithError(err)
	case errors.Is(err, usecase.ErrStoreUnavailable):
		return xhttp.NotFoundError("stored history is not available on this server").WithError(err)
	case errors.Is(err, usecase.ErrSymbolNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
