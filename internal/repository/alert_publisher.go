package repository

import (
	"context"

	"StockTracker/internal/domain/models"
	domrepo "StockTracker/internal/domain/repository"
)

// eventProducer is satisfied by *kafka.Producer.
type eventProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaAlertPublisher implements AlertPublisher for Kafka. Events are keyed by symbol.
type KafkaAlertPublisher struct {
	producer eventProducer
	topic    string
}

// NewKafkaAlertPublisher creates Kafka publisher.
func NewKafkaAlertPublisher(producer eventProducer, topic string) domrepo.AlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

func (p *KafkaAlertPublisher) Publish(ctx context.Context, e models.AlertEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(e.Symbol), e)
}

func (p *KafkaAlertPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopAlertPublisher drops every event.
type NopAlertPublisher struct{}

func NewNopAlertPublisher() domrepo.AlertPublisher { return NopAlertPublisher{} }

func (NopAlertPublisher) Publish(context.Context, models.AlertEvent) error { return nil }

func (NopAlertPublisher) Close() error { return nil }
