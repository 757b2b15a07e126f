package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// Producer wraps a kafka.Writer for publishing messages.
type Producer struct {
	w *kafka.Writer
}

// NewProducer creates a Kafka writer that routes messages by the topic set on
// each kafka.Message.
func NewProducer(brokers []string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Publish sends a single message to the given topic. Messages sharing a key
// land on the same partition, so events for one message stay ordered.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &msg})
	return p.w.WriteMessages(ctx, msg)
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error { return p.w.Close() }
