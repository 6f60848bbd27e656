package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"StockCast/internal/domain/models"
	"StockCast/internal/service/ratelimit"
	"StockCast/internal/services/dataset"
	"StockCast/internal/services/predictor"
	"StockCast/internal/services/sequence"
	"StockCast/internal/usecase"
	xhttp "StockCast/pkg/http"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type ForecastHandlerSuite struct {
	suite.Suite
	e *echo.Echo
}

func (s *ForecastHandlerSuite) SetupTest() {
	s.e = s.newEcho()
}

func (s *ForecastHandlerSuite) newEcho(opts ...HandlerOption) *echo.Echo {
	rng := sequence.DefaultFeatureRange()
	f, err := usecase.NewForecaster(usecase.ForecastConfig{
		WindowSize:    5,
		Horizon:       2,
		MinRows:       5,
		HistoryPoints: 10,
		FeatureRange:  rng,
		SMAPeriods:    []int{3},
	}, predictor.NewBaselinePredictor(rng))
	s.Require().NoError(err)

	h := NewForecastEchoHandler(nil, f, usecase.NewPreparer(rng, nil), opts...)
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

// weekdayCSV returns n weekday rows starting Monday 2025-06-02 with closes
// 100, 101, ...
func weekdayCSV(n int) string {
	var b strings.Builder
	b.WriteString("Date,Open,Close\n")
	d := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			fmt.Fprintf(&b, "%s,1,%d\n", d.Format("2006-01-02"), 100+i)
			i++
		}
		d = d.AddDate(0, 0, 1)
	}
	return b.String()
}

func (s *ForecastHandlerSuite) upload(e *echo.Echo, path, csv string, fields map[string]string) (*httptest.ResponseRecorder, envelope) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		s.Require().NoError(mw.WriteField(k, v))
	}
	if csv != "" {
		fw, err := mw.CreateFormFile("file", "prices.csv")
		s.Require().NoError(err)
		_, err = fw.Write([]byte(csv))
		s.Require().NoError(err)
	}
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func (s *ForecastHandlerSuite) appErrors(env envelope) []xhttp.AppError {
	var out []xhttp.AppError
	s.Require().NoError(json.Unmarshal(env.Data, &out))
	return out
}

func (s *ForecastHandlerSuite) TestForecastUpload() {
	rec, env := s.upload(s.e, "/api/forecast", weekdayCSV(20), map[string]string{"symbol": "MSFT"})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(http.StatusOK, env.Status)

	var res models.ForecastResult
	s.Require().NoError(json.Unmarshal(env.Data, &res))
	s.Equal("MSFT", res.Symbol)
	s.Equal("linear_baseline", res.Model)
	s.Equal(20, res.Rows)
	s.Equal(119.0, res.LastClose)
	s.Require().Len(res.Forecast, 2)
	s.InDelta(120.0, res.Forecast[0].Price, 1e-6)
	s.InDelta(121.0, res.Forecast[1].Price, 1e-6)

	// 20 weekdays from 2025-06-02 end on Friday 2025-06-27.
	s.Equal(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), res.Forecast[0].Date.UTC())
	s.Len(res.Chart.Actual, 10)
	s.Len(res.Chart.Forecast, 3)
	s.Equal(res.LastClose, res.Chart.Forecast[0].Value)
}

func (s *ForecastHandlerSuite) TestForecastUploadTooShort() {
	rec, env := s.upload(s.e, "/api/forecast", weekdayCSV(3), nil)
	s.Require().Equal(http.StatusUnprocessableEntity, rec.Code)

	errs := s.appErrors(env)
	s.Require().Len(errs, 1)
	s.Equal(ErrCodeInsufficientData, errs[0].Code)
	s.EqualValues(5, errs[0].Params["required"])
	s.EqualValues(3, errs[0].Params["got"])
}

func (s *ForecastHandlerSuite) TestForecastUploadMissingFile() {
	rec, env := s.upload(s.e, "/api/forecast", "", map[string]string{"symbol": "MSFT"})
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	errs := s.appErrors(env)
	s.Require().Len(errs, 1)
	s.Equal(ErrCodeMissingFile, errs[0].Code)
	s.Equal("file", errs[0].Field)
}

func (s *ForecastHandlerSuite) TestForecastUploadInvalidCSV() {
	rec, env := s.upload(s.e, "/api/forecast", "when,price\n2025-01-02,10\n", nil)
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	errs := s.appErrors(env)
	s.Require().Len(errs, 1)
	s.Equal(ErrCodeInvalidCSV, errs[0].Code)
}

func (s *ForecastHandlerSuite) TestForecastUploadTooLarge() {
	e := s.newEcho(WithMaxUploadBytes(16))
	rec, env := s.upload(e, "/api/forecast", weekdayCSV(20), nil)
	s.Require().Equal(http.StatusRequestEntityTooLarge, rec.Code)
	s.Equal(ErrCodeFileTooLarge, s.appErrors(env)[0].Code)
}

func (s *ForecastHandlerSuite) TestPrepareShapes() {
	rec, env := s.upload(s.e, "/api/prepare", weekdayCSV(10), map[string]string{
		"window_size": "3",
		"horizon":     "2",
		"test_ratio":  "0.2",
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	var out models.PreparedDataset
	s.Require().NoError(json.Unmarshal(env.Data, &out))
	s.Equal(5, out.Examples)
	s.Equal(4, out.SplitIndex)
	s.Equal(models.Shape{4, 3, 1}, out.XTrain)
	s.Equal(models.Shape{4, 2}, out.YTrain)
	s.Equal(models.Shape{1, 3, 1}, out.XTest)
	s.Equal(models.Shape{1, 2}, out.YTest)
	s.Equal(100.0, out.Scaler.DataMin)
	s.Equal(109.0, out.Scaler.DataMax)
	s.Empty(out.TrainWindows)
}

func (s *ForecastHandlerSuite) TestPrepareIncludesExamples() {
	rec, env := s.upload(s.e, "/api/prepare", weekdayCSV(10), map[string]string{
		"window_size":      "3",
		"horizon":          "2",
		"include_examples": "true",
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	var out models.PreparedDataset
	s.Require().NoError(json.Unmarshal(env.Data, &out))
	s.Len(out.TrainWindows, 4)
	s.Len(out.EvalTargets, 1)
	s.InDeltaSlice([]float64{0, 1.0 / 9, 2.0 / 9}, out.TrainWindows[0], 1e-9)
}

func (s *ForecastHandlerSuite) TestPrepareValidation() {
	rec, env := s.upload(s.e, "/api/prepare", weekdayCSV(10), map[string]string{"test_ratio": "1.5"})
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	var verrs []xhttp.ValidationError
	s.Require().NoError(json.Unmarshal(env.Data, &verrs))
	s.Require().Len(verrs, 1)
	s.Equal("test_ratio", verrs[0].Field)
	s.Equal("ERR_LT", verrs[0].Code)
}

func (s *ForecastHandlerSuite) TestPrepareTooShortForWindows() {
	rec, env := s.upload(s.e, "/api/prepare", weekdayCSV(6), map[string]string{
		"window_size": "5",
		"horizon":     "2",
	})
	s.Require().Equal(http.StatusUnprocessableEntity, rec.Code)
	errs := s.appErrors(env)
	s.Equal(ErrCodeInsufficientData, errs[0].Code)
	s.EqualValues(8, errs[0].Params["required"])
}

func (s *ForecastHandlerSuite) TestSummary() {
	csv := "date,close\n2025-06-03,11\n2025-06-02,10\n2025-06-03,12\nbad,1\n"
	rec, env := s.upload(s.e, "/api/summary", csv, map[string]string{"symbol": "AAPL", "tail": "1"})
	s.Require().Equal(http.StatusOK, rec.Code)

	var sum models.SeriesSummary
	s.Require().NoError(json.Unmarshal(env.Data, &sum))
	s.Equal("AAPL", sum.Symbol)
	s.Equal(2, sum.Rows)
	s.Equal(12.0, sum.LastClose)
	s.Equal(10.0, sum.MinClose)
	s.Require().Len(sum.Tail, 1)
	s.Equal(1, sum.Report.DroppedRows)
	s.Equal(1, sum.Report.DuplicateRows)
}

func (s *ForecastHandlerSuite) TestForecastSymbolWithoutStore() {
	req := httptest.NewRequest(http.MethodGet, "/api/forecast/MSFT", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ForecastHandlerSuite) TestRateLimited() {
	e := s.newEcho(WithRateLimit(ratelimit.New(), RateLimit{Capacity: 1, RefillPerSec: 0}))

	rec, _ := s.upload(e, "/api/summary", weekdayCSV(3), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec, env := s.upload(e, "/api/summary", weekdayCSV(3), nil)
	s.Require().Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("ERR_RATE_LIMITED", s.appErrors(env)[0].Code)
}

func TestForecastHandlerSuite(t *testing.T) {
	suite.Run(t, new(ForecastHandlerSuite))
}

func TestToAppError(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{&sequence.InsufficientDataError{Op: "x", Required: 3, Got: 1}, ErrCodeInsufficientData, http.StatusUnprocessableEntity},
		{sequence.ErrDegenerateSeries, ErrCodeDegenerateSeries, http.StatusUnprocessableEntity},
		{fmt.Errorf("prepare: %w", sequence.ErrInvalidRange), ErrCodeInvalidRange, http.StatusBadRequest},
		{dataset.ErrNoRows, ErrCodeInvalidCSV, http.StatusBadRequest},
		{fmt.Errorf("%w: %w", usecase.ErrPrediction, errors.New("boom")), ErrCodeModelUnavailable, http.StatusBadGateway},
		{usecase.ErrStoreUnavailable, "ERR_NOT_FOUND", http.StatusNotFound},
		{fmt.Errorf("%w: ZZZ", usecase.ErrSymbolNotFound), "ERR_NOT_FOUND", http.StatusNotFound},
		{errors.New("disk on fire"), "ERR_INTERNAL", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		got := toAppError(tc.err)
		require.Equal(t, tc.code, got.Code, tc.err.Error())
		require.Equal(t, tc.status, got.Status, tc.err.Error())
	}

	passthrough := xhttp.TooManyRequestsError("slow")
	require.Same(t, passthrough, toAppError(passthrough))
}
