// Package kafka publishes stream event envelopes to a Kafka topic as
// JSON-encoded messages.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/jpopesculian/eventstream-parser/pkg/publish"
)

// Writer is the subset of kafka-go's writer used by the publisher.
// It exists so tests and custom transports can substitute their own.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher publishes envelopes to a Kafka topic.
type Publisher struct {
	writer Writer
}

// NewPublisher creates a Kafka publisher for the given brokers and topic.
// Connections are opened lazily on the first publish.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.LeastBytes{},
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

// NewPublisherWithWriter creates a Kafka publisher backed by the given writer.
func NewPublisherWithWriter(w Writer) *Publisher {
	return &Publisher{writer: w}
}

// Publish encodes the envelope as JSON and writes it to the topic.
// The message key is the stream event's id when present so consumers can
// partition by upstream identity, falling back to the envelope's own id.
func (p *Publisher) Publish(ctx context.Context, env *publish.Envelope) error {
	if env == nil {
		return publish.ErrNilEnvelope
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}

	key := env.Event.ID
	if key == "" {
		key = env.EventID
	}

	msg := kafkago.Message{
		Key:   []byte(key),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to kafka: %w", err)
	}

	return nil
}

// Close flushes pending messages and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
