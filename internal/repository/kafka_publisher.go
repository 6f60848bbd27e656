package repository

import (
	"context"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgkafka "StockCast/pkg/kafka"
)

const forecastCompletedEvent = "ForecastCompleted"

// KafkaForecastPublisher emits ForecastCompleted events keyed by symbol.
type KafkaForecastPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaForecastPublisher(producer *pkgkafka.Producer, topic string) *KafkaForecastPublisher {
	return &KafkaForecastPublisher{producer: producer, topic: topic}
}

func (p *KafkaForecastPublisher) PublishForecast(ctx context.Context, r *models.ForecastResult) error {
	key := r.Symbol
	if key == "" {
		key = r.ID
	}
	return p.producer.Publish(ctx, p.topic, []byte(key), r.Event(),
		pkgkafka.Header{Key: "event", Value: forecastCompletedEvent},
	)
}

func (p *KafkaForecastPublisher) Close() error {
	return p.producer.Close()
}

var _ domrepo.Publisher = (*KafkaForecastPublisher)(nil)
