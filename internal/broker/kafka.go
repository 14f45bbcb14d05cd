package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/lojasmm/wamsg/internal/whatsapp"
)

// messageWriter is the subset of *kafka.Writer the sender uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes outgoing envelopes to a topic consumed by the
// session holder. Messages are keyed by chat so one chat stays on one
// partition, in order.
type KafkaSender struct {
	writer messageWriter
}

func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	return &KafkaSender{writer: NewWriter(brokers, topic)}
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // keeps per-chat order
		BatchTimeout: 5 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
}

func (s *KafkaSender) Name() string { return "kafka" }

func (s *KafkaSender) Send(ctx context.Context, out *whatsapp.Outgoing) error {
	value, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(out.To),
		Value: value,
		Headers: []kafka.Header{
			{Key: "message-id", Value: []byte(out.ID)},
			{Key: "content-type", Value: []byte(out.Message.ContentType())},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}

var _ whatsapp.Sender = (*KafkaSender)(nil)
