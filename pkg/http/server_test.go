package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	applogger "StockCast/pkg/logger"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
	e.GET("/boom", func(c echo.Context) error { panic("boom") })
	e.POST("/echo", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestServerRoutesAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(Handlers{pingHandler{}}, WithRegistry(reg), WithLogger(applogger.Nop()))

	rec := serve(s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = serve(s, http.MethodGet, "/ping", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "pong")

	rec = serve(s, http.MethodGet, "/boom", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/ping",status="200"} 1`)
}

func TestServerBodyLimit(t *testing.T) {
	s := NewServer(pingHandler{}, WithRegistry(prometheus.NewRegistry()), WithBodyLimit("1K"))

	rec := serve(s, http.MethodPost, "/echo", strings.Repeat("x", 10))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(s, http.MethodPost, "/echo", strings.Repeat("x", 4096))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServerReadiness(t *testing.T) {
	healthy := NewServer(nil, WithRegistry(prometheus.NewRegistry()),
		WithReadinessCheck("cache", func(context.Context) error { return nil }),
		WithReadinessCheck("skipped", nil),
	)
	rec := serve(healthy, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"cache":"ok"`)
	require.NotContains(t, rec.Body.String(), "skipped")

	failing := NewServer(nil, WithRegistry(prometheus.NewRegistry()),
		WithReadinessCheck("cache", func(context.Context) error { return nil }),
		WithReadinessCheck("clickhouse", func(context.Context) error { return errors.New("connection refused") }),
	)
	rec = serve(failing, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), `"clickhouse":"connection refused"`)
}

func TestServerStartStop(t *testing.T) {
	s := NewServer(pingHandler{}, WithHost("127.0.0.1"), WithPort(0), WithRegistry(prometheus.NewRegistry()))
	require.NoError(t, s.Start())
	require.NotEmpty(t, s.Addr())

	resp, err := http.Get(fmt.Sprintf("http://%s/ping", s.Addr()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(context.Background()))
}
