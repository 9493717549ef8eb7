package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Guizzs26/attendance_poll_bot/internal/model"
	"github.com/segmentio/kafka-go"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

/*
Balancer: &kafka.Hash{} keys messages by voter, so every event of one voter
lands on the same partition and a replay sees them in the order they happened.
Reset events use a fixed key and therefore share a partition of their own.

RequiredAcks: kafka.RequireOne. Events are an audit trail, not the source of
truth; the live tally stays in memory, so leader acknowledgement is enough.

Async: true. The handler must never wait on the broker before replying to a
voter; write errors are reported through Completion and logged by the caller.
*/
func NewKafkaPublisher(brokers []string, topic string, onError func(error)) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher needs at least one broker")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  5,
		Compression:  kafka.Snappy,
		Async:        true,
		Completion: func(_ []kafka.Message, err error) {
			if err != nil && onError != nil {
				onError(err)
			}
		},
	}

	return &KafkaPublisher{writer: w}, nil
}

func (kp *KafkaPublisher) Publish(ctx context.Context, ev model.VoteEvent) error {
	eb, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal vote event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(partitionKey(ev)),
		Value: eb,
	}

	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

func (kp *KafkaPublisher) Close() error {
	if err := kp.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}

func partitionKey(ev model.VoteEvent) string {
	if ev.UserID == "" {
		return string(ev.Kind)
	}
	return ev.UserID
}
