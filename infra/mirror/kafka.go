package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig configures the Kafka mirror.
type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaMirror appends every entry to a topic, keyed by entity id so one
// entity always lands on the same partition.
type KafkaMirror struct {
	writer messageWriter
}

// NewKafkaMirror returns a synchronous producer for cfg.Topic.
func NewKafkaMirror(cfg KafkaConfig) (*KafkaMirror, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka mirror requires brokers")
	}
	if cfg.Topic == "" {
		cfg.Topic = "rescue.events"
	}
	return &KafkaMirror{writer: &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}}, nil
}

// Apply writes one message.
func (m *KafkaMirror) Apply(ctx context.Context, e Entry) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.Collection + ":" + e.ID),
		Value: value,
		Time:  e.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}
	if err := m.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close flushes and closes the producer.
func (m *KafkaMirror) Close() error { return m.writer.Close() }
