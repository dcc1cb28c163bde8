package events

import (
	"context"

	skafka "github.com/segmentio/kafka-go"
	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/ports"
)

// Writer is the subset of the segmentio kafka.Writer the publisher needs.
// The indirection makes the publisher testable without a broker.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// KafkaPublisher delivers serialized alerts to a Kafka topic, keyed by alert
// type so all alerts of one detector land on the same partition.
type KafkaPublisher struct {
	writer Writer
}

var _ ports.AlertPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher writing to the given brokers/topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &skafka.Writer{
		Addr:     skafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &skafka.LeastBytes{},
	}
	return &KafkaPublisher{writer: w}
}

// NewKafkaPublisherWithWriter allows injecting a test writer.
func NewKafkaPublisherWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, alertType string, payload []byte) error {
	return p.writer.WriteMessages(ctx, skafka.Message{
		Key:   []byte(alertType),
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
