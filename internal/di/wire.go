//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"StockCast/internal/domain/repository"
	"StockCast/pkg/config"
	"StockCast/pkg/metrics"
	"StockCast/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),
		ProvideFeatureRange,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCache,

		// Services
		ProvideModelMetrics,
		ProvidePredictor,
		ProvideHub,

		// Use cases
		ProvideForecaster,
		ProvidePreparer,

		// HTTP
		ProvideLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
