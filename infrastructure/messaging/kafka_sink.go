package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink writes envelopes to a single Kafka topic. The subject travels
// as a header so consumers can filter without decoding the payload.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink creates a new Kafka sink
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish writes one message keyed by the envelope id
func (s *KafkaSink) Publish(ctx context.Context, subject string, key string, data []byte) error {
	msg := kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "subject", Value: []byte(subject)}},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

// Close flushes pending writes
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
