package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"StockCast/internal/domain/repository"
	domsvc "StockCast/internal/domain/service"
	"StockCast/internal/handler/api"
	"StockCast/internal/handler/ws"
	internalrepo "StockCast/internal/repository"
	"StockCast/internal/service/cache"
	svcmetrics "StockCast/internal/service/metrics"
	"StockCast/internal/service/ratelimit"
	"StockCast/internal/services/predictor"
	"StockCast/internal/services/sequence"
	"StockCast/internal/usecase"
	pkgch "StockCast/pkg/clickhouse"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	pkgkafka "StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/metrics"
	"StockCast/pkg/server"
)

const (
	serviceName     = "stockcast"
	ttlCacheEntries = 256
)

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry served at /metrics.
func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.New(reg)
}

// ProvideFeatureRange returns the scaler target interval.
func ProvideFeatureRange(cfg *config.Config) (sequence.FeatureRange, error) {
	rng := sequence.FeatureRange{Min: cfg.Sequence.FeatureRange.Min, Max: cfg.Sequence.FeatureRange.Max}
	if err := rng.Validate(); err != nil {
		return sequence.FeatureRange{}, err
	}
	return rng, nil
}

// ProvideClickHouseClient creates a ClickHouse client and its schema. It
// returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	opts := []pkgch.ClientOption{
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithAuth(cfg.ClickHouse.Database, cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithPool(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns, 0),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithQueryLimit(cfg.ClickHouse.MaxExecutionTime),
	}
	if cfg.ClickHouse.AsyncInsert {
		opts = append(opts, pkgch.WithAsyncInsert(true))
	}
	client, err := pkgch.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse: connected and schema ready", applogger.String("db", cfg.ClickHouse.Database))
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers...),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts, cfg.Kafka.Producer.Async),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAutoCreateTopics(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	// warn and error logs are deduplicated and shipped to the log topic
	l.AddCollector(&applogger.CollectionConfig{
		Service:   serviceName,
		Topic:     cfg.Kafka.LogTopic,
		Publisher: producer,
	})
	l.Info("kafka: producer ready", applogger.Strings("brokers", cfg.Kafka.Brokers), applogger.String("topic", cfg.Kafka.Topic))
	return producer, nil
}

// ProvideCache returns a Redis cache when enabled, otherwise an in-process
// TTL cache.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.BytesCache, error) {
	if !cfg.Redis.Enabled {
		return cache.NewTTLCache(ttlCacheEntries), nil
	}
	rc := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   serviceName + ":",
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}
	l.Info("redis: connected", applogger.String("addr", cfg.Redis.Addr))
	return rc, nil
}

// ProvideModelMetrics creates the model call metrics.
func ProvideModelMetrics(reg *prometheus.Registry) *svcmetrics.ModelMetrics {
	return svcmetrics.NewModelMetrics(reg)
}

// ProvidePredictor selects the model backend. Calls are instrumented when mm
// is set.
func ProvidePredictor(cfg *config.Config, rng sequence.FeatureRange, mm *svcmetrics.ModelMetrics, l *applogger.Logger) (domsvc.Predictor, error) {
	p, err := newPredictor(cfg, rng, l)
	if err != nil {
		return nil, err
	}
	if mm != nil {
		p = mm.Instrument(p)
	}
	return p, nil
}

func newPredictor(cfg *config.Config, rng sequence.FeatureRange, l *applogger.Logger) (domsvc.Predictor, error) {
	switch cfg.Model.Backend {
	case config.ModelBackendHTTP:
		spec, err := predictor.NewModelSpec(cfg.Model.Name, cfg.Sequence.WindowSize, cfg.Sequence.ForecastHorizon, cfg.Model.Units, cfg.Model.Seed)
		if err != nil {
			return nil, fmt.Errorf("model spec: %w", err)
		}
		p := predictor.NewHTTPPredictor(cfg.Model.ServiceURL, cfg.Model.Timeout, spec, predictor.WithAttempts(cfg.Model.Retries))
		p.SetLogger(l)
		return p, nil
	case config.ModelBackendBaseline:
		return predictor.NewBaselinePredictor(rng), nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Model.Backend)
	}
}

// ProvideHub creates the websocket hub for live forecast events.
func ProvideHub(l *applogger.Logger) *ws.Hub {
	return ws.NewHub(l)
}

// ProvideForecaster wires the forecaster with whatever sinks are enabled.
func ProvideForecaster(
	cfg *config.Config,
	rng sequence.FeatureRange,
	p domsvc.Predictor,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	hub *ws.Hub,
	m repository.Metrics,
	c cache.BytesCache,
	l *applogger.Logger,
) (*usecase.Forecaster, error) {
	opts := []usecase.ForecasterOption{
		usecase.WithNotifier(hub),
		usecase.WithMetrics(m),
	}
	if chClient != nil {
		store := internalrepo.NewCHPriceStore(chClient)
		store.SetLogger(l)
		archive := internalrepo.NewCHForecastArchive(chClient)
		archive.SetLogger(l)
		opts = append(opts, usecase.WithPriceStore(store), usecase.WithArchive(archive))
	}
	if producer != nil {
		opts = append(opts, usecase.WithPublisher(internalrepo.NewKafkaForecastPublisher(producer, cfg.Kafka.Topic)))
	}

	f, err := usecase.NewForecaster(usecase.ForecastConfig{
		WindowSize:    cfg.Sequence.WindowSize,
		Horizon:       cfg.Sequence.ForecastHorizon,
		MinRows:       cfg.Forecast.MinRows,
		HistoryPoints: cfg.Forecast.HistoryPoints,
		FeatureRange:  rng,
		SMAPeriods:    cfg.Forecast.SMAPeriods,
		CacheTTL:      cfg.Forecast.CacheTTL,
	}, p, opts...)
	if err != nil {
		return nil, err
	}
	f.SetLogger(l)
	if cfg.Forecast.CacheTTL > 0 {
		f.SetCache(c)
	}
	return f, nil
}

// ProvidePreparer creates the dataset preparer.
func ProvidePreparer(rng sequence.FeatureRange, m repository.Metrics, l *applogger.Logger) *usecase.Preparer {
	p := usecase.NewPreparer(rng, m)
	p.SetLogger(l)
	return p
}

// ProvideLimiter creates the upload rate limiter.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideHTTPHandler registers the API and websocket routes.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	f *usecase.Forecaster,
	p *usecase.Preparer,
	limiter *ratelimit.Limiter,
	hub *ws.Hub,
) xhttp.Handler {
	fh := api.NewForecastEchoHandler(l, f, p,
		api.WithRateLimit(limiter, api.RateLimit{
			Capacity:     cfg.Forecast.RateLimit.Capacity,
			RefillPerSec: cfg.Forecast.RateLimit.RefillPerSec,
		}),
		api.WithMaxUploadBytes(cfg.Forecast.MaxUploadBytes),
	)
	return xhttp.Handlers{fh, hub}
}

// ProvideHTTPServer creates the Echo server. /readyz probes ClickHouse and
// Redis when they are configured.
func ProvideHTTPServer(
	cfg *config.Config,
	h xhttp.Handler,
	l *applogger.Logger,
	reg *prometheus.Registry,
	chClient *pkgch.Client,
	c cache.BytesCache,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(!cfg.Server.DisableCORS),
		// multipart framing on top of the CSV itself
		xhttp.WithBodyLimit(fmt.Sprintf("%dK", cfg.Forecast.MaxUploadBytes/1024+64)),
		xhttp.WithLogger(l),
		xhttp.WithRegistry(reg),
	}
	if chClient != nil {
		opts = append(opts, xhttp.WithReadinessCheck("clickhouse", chClient.Health))
	}
	if rc, ok := c.(*cache.RedisCache); ok {
		opts = append(opts, xhttp.WithReadinessCheck("redis", rc.Ping))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	hub *ws.Hub,
	limiter *ratelimit.Limiter,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	c cache.BytesCache,
) *server.App {
	return server.New(cfg, l, srv,
		server.WithHub(hub),
		server.WithLimiter(limiter),
		server.WithClickHouse(chClient),
		server.WithProducer(producer),
		server.WithCache(c),
	)
}
