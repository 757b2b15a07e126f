package kafka

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	r *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       topic,
			GroupID:     groupID,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Consume hands every message to fn until ctx is cancelled. Offsets are
// committed by the reader after fn returns nil; an error from fn stops the
// loop without committing that message.
func (c *Consumer) Consume(ctx context.Context, fn func(ctx context.Context, key, value []byte) error) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		msgCtx := otel.GetTextMapPropagator().Extract(ctx, headerCarrier{msg: &msg})
		if err := fn(msgCtx, msg.Key, msg.Value); err != nil {
			return err
		}
		if err := c.r.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *Consumer) Close() error { return c.r.Close() }
