package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// Message is the subset of a Kafka message handlers work with.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Offset  int64
	Headers []kafka.Header
}

// HandlerFunc processes one message. A nil return commits the offset; an
// error leaves it uncommitted so the message is redelivered after restart.
type HandlerFunc func(ctx context.Context, msg Message) error

// Consumer reads a topic as part of a consumer group.
type Consumer interface {
	Subscribe(ctx context.Context, handler HandlerFunc) error
	Close() error
}

type consumer struct {
	reader *kafka.Reader
	logger *slog.Logger
}

// NewConsumer joins groupID on topic. Offsets are committed manually.
func NewConsumer(brokers []string, topic, groupID string, logger *slog.Logger) Consumer {
	return &consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        groupID,
			MinBytes:       1,
			MaxBytes:       1 << 20,
			MaxWait:        500 * time.Millisecond,
			CommitInterval: 0,
			StartOffset:    kafka.FirstOffset,
		}),
		logger: logger,
	}
}

// Subscribe blocks until ctx is cancelled, handing each message to handler
// with the producer's trace context restored.
func (c *consumer) Subscribe(ctx context.Context, handler HandlerFunc) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka fetch: %w", err)
		}

		carrier := headerCarrier(m.Headers)
		msgCtx := otel.GetTextMapPropagator().Extract(ctx, &carrier)

		msg := Message{Topic: m.Topic, Key: m.Key, Value: m.Value, Offset: m.Offset, Headers: m.Headers}
		if err := handler(msgCtx, msg); err != nil {
			c.logger.Error("message handler failed, offset not committed",
				slog.String("topic", m.Topic),
				slog.Int64("offset", m.Offset),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("commit kafka offset",
				slog.String("topic", m.Topic),
				slog.Int64("offset", m.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (c *consumer) Close() error {
	return c.reader.Close()
}
