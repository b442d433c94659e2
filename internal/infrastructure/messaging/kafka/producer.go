package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ChemScribe/internal/config"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
)

// Publisher emits session events.  The workflow depends on this interface so
// that disabled-Kafka deployments and tests can swap in NopPublisher.
type Publisher interface {
	// Publish sends one envelope to the topic, keyed by key for per-session
	// ordering.  Errors are returned for observability but callers treat
	// publishing as best effort.
	Publish(ctx context.Context, topic, key string, envelope *EventEnvelope) error

	// Close flushes and releases the underlying writer.
	Close() error
}

type producer struct {
	writer *kafka.Writer
	prefix string
	logger logging.Logger
}

// NewProducer constructs the kafka-go backed publisher.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.ProducerRetries,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return &producer{
		writer: w,
		prefix: cfg.TopicPrefix,
		logger: logger.Named("kafka"),
	}
}

func (p *producer) Publish(ctx context.Context, topic, key string, envelope *EventEnvelope) error {
	value, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic: p.prefix + "." + topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(envelope.EventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("event publish failed",
			logging.String("topic", topic),
			logging.String("key", key),
			logging.Err(err))
		return err
	}
	return nil
}

func (p *producer) Close() error {
	return p.writer.Close()
}

// NopPublisher discards all events.  Used when Kafka is disabled.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, string, *EventEnvelope) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
