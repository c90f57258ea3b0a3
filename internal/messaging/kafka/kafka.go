package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// Publisher writes storefront events to a single topic.
type Publisher struct {
	w *kafkaGo.Writer
}

// NewPublisher creates a Publisher for topic on brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{w: &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkaGo.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}}
}

type envelope struct {
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurred_at"`
	Payload    entity.Event `json:"payload"`
}

// PublishEvent sends event keyed by key so one shopper's events stay ordered.
func (p *Publisher) PublishEvent(ctx context.Context, key string, event entity.Event) error {
	payload, err := encode(event, time.Now().UTC())
	if err != nil {
		return err
	}

	if err := p.w.WriteMessages(ctx, kafkaGo.Message{Key: []byte(key), Value: payload}); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.EventType(), err)
	}
	slog.Debug("Published event", "topic", p.w.Topic, "type", event.EventType(), "key", key)
	return nil
}

func encode(event entity.Event, at time.Time) ([]byte, error) {
	payload, err := json.Marshal(envelope{Type: event.EventType(), OccurredAt: at, Payload: event})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return payload, nil
}

func (p *Publisher) Close() error {
	return p.w.Close()
}
