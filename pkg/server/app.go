package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockCast/internal/handler/ws"
	"StockCast/internal/service/cache"
	"StockCast/internal/service/ratelimit"
	pkgch "StockCast/pkg/clickhouse"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	pkgkafka "StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
)

const (
	limiterPruneEvery = time.Minute
	limiterMaxIdle    = 10 * time.Minute
)

// Option attaches optional infrastructure to the App.
type Option func(*App)

func WithHub(h *ws.Hub) Option { return func(a *App) { a.hub = h } }

func WithLimiter(l *ratelimit.Limiter) Option { return func(a *App) { a.limiter = l } }

func WithClickHouse(c *pkgch.Client) Option { return func(a *App) { a.chClient = c } }

func WithProducer(p *pkgkafka.Producer) Option { return func(a *App) { a.producer = p } }

// WithCache closes c on shutdown when it holds a connection.
func WithCache(c cache.BytesCache) Option {
	return func(a *App) {
		if cl, ok := c.(io.Closer); ok {
			a.cache = cl
		}
	}
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	hub        *ws.Hub
	limiter    *ratelimit.Limiter
	chClient   *pkgch.Client
	producer   *pkgkafka.Producer
	cache      io.Closer
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, opts ...Option) *App {
	a := &App{cfg: cfg, l: l, httpServer: srv}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext serves until ctx is done and then shuts down.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("stockcast started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("model_backend", a.cfg.Model.Backend),
		applogger.Int("window_size", a.cfg.Sequence.WindowSize),
		applogger.Int("horizon", a.cfg.Sequence.ForecastHorizon),
		applogger.Bool("clickhouse", a.chClient != nil),
		applogger.Bool("kafka", a.producer != nil),
	)

	if a.limiter != nil {
		go a.pruneLimiter(ctx)
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown(context.WithoutCancel(ctx))
}

func (a *App) pruneLimiter(ctx context.Context) {
	ticker := time.NewTicker(limiterPruneEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.limiter.Prune(limiterMaxIdle); n > 0 {
				a.l.Debug("rate limiter pruned", applogger.Int("buckets", n))
			}
		}
	}
}

// shutdown gracefully stops all services. Requests drain before the sinks
// they write to are closed.
func (a *App) shutdown(ctx context.Context) error {
	a.l.Info("shutting down...")

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.hub != nil {
		_ = a.hub.Close(ctx)
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// flush aggregated logs while the producer can still deliver them
	a.l.RemoveCollector()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
