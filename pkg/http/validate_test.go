package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Symbol string  `query:"symbol" validate:"required,ticker"`
	Window int     `query:"window_size" default:"60" validate:"gte=1,lte=2000"`
	Ratio  float64 `query:"test_ratio" default:"0.2" validate:"gt=0,lt=1"`
	Mode   string  `query:"mode" default:"fast" validate:"oneof=fast slow"`
}

func bindQuery(t *testing.T, method, query string) (*sampleRequest, []ValidationError) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/x?"+query, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	out := &sampleRequest{}
	return out, ReadAndValidateRequest(c, out)
}

func TestReadAndValidateRequestDefaults(t *testing.T) {
	req, verr := bindQuery(t, http.MethodGet, "symbol=BRK.B")
	require.Nil(t, verr)
	require.Equal(t, 60, req.Window)
	require.Equal(t, 0.2, req.Ratio)
	require.Equal(t, "fast", req.Mode)
}

func TestReadAndValidateRequestBindsQueryOnPost(t *testing.T) {
	req, verr := bindQuery(t, http.MethodPost, "symbol=%5EGSPC&window_size=30")
	require.Nil(t, verr)
	require.Equal(t, "^GSPC", req.Symbol)
	require.Equal(t, 30, req.Window)
}

func TestReadAndValidateRequestReportsFields(t *testing.T) {
	_, verr := bindQuery(t, http.MethodGet, "symbol=bad%20sym&test_ratio=1.5&mode=turbo")
	require.Len(t, verr, 3)

	byField := map[string]ValidationError{}
	for _, v := range verr {
		byField[v.Field] = v
	}
	require.Equal(t, "ERR_TICKER", byField["symbol"].Code)
	require.Equal(t, "ERR_LT", byField["test_ratio"].Code)
	require.Equal(t, "test_ratio must be less than 1", byField["test_ratio"].Message)
	require.Equal(t, "1", byField["test_ratio"].Params["value"])
	require.Equal(t, "ERR_ONEOF", byField["mode"].Code)
	require.Equal(t, "mode must be one of: fast, slow", byField["mode"].Message)
}

func TestReadAndValidateRequestBindFailure(t *testing.T) {
	_, verr := bindQuery(t, http.MethodGet, "symbol=MSFT&window_size=abc")
	require.Len(t, verr, 1)
	require.Equal(t, "ERR_UNKNOWN", verr[0].Code)
}
