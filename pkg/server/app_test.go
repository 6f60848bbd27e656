package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"StockCast/internal/handler/ws"
	"StockCast/internal/service/ratelimit"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	applogger "StockCast/pkg/logger"
)

type closingCache struct{ closed atomic.Bool }

func (c *closingCache) GetBytes(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (c *closingCache) SetBytes(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (c *closingCache) Close() error {
	c.closed.Store(true)
	return nil
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func testApp(t *testing.T, port int, c *closingCache) *App {
	t.Helper()
	cfg, err := config.Parse([]byte("environment: test\n"))
	require.NoError(t, err)
	cfg.Server.Port = port

	srv := xhttp.NewServer(nil,
		xhttp.WithHost("127.0.0.1"),
		xhttp.WithPort(port),
		xhttp.WithRegistry(prometheus.NewRegistry()),
	)
	return New(cfg, applogger.Nop(), srv,
		WithHub(ws.NewHub(nil)),
		WithLimiter(ratelimit.New()),
		WithCache(c),
	)
}

func TestRunContextServesUntilCancelled(t *testing.T) {
	port := freePort(t)
	c := &closingCache{}
	app := testApp(t, port, c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/healthz", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	require.False(t, c.closed.Load())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunContext did not return after cancel")
	}
	require.True(t, c.closed.Load())

	_, err := http.Get(url)
	require.Error(t, err)
}

func TestRunContextFailsWhenPortTaken(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	c := &closingCache{}
	app := testApp(t, ln.Addr().(*net.TCPAddr).Port, c)
	require.Error(t, app.RunContext(context.Background()))
	require.False(t, c.closed.Load())
}
