package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Guizzs26/attendance_poll_bot/internal/model"
	"github.com/segmentio/kafka-go"
)

type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, topic, groupID string) (*KafkaConsumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer needs at least one broker")
	}
	rCfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10mb
		MaxWait:  1 * time.Second,
		// A new group replays the whole topic so the rebuilt tally starts from
		// the first recorded event.
		StartOffset: kafka.FirstOffset,
	}
	r := kafka.NewReader(rCfg)

	return &KafkaConsumer{reader: r}, nil
}

// ReadEvent blocks until the next event arrives or ctx is cancelled.
func (kc *KafkaConsumer) ReadEvent(ctx context.Context) (model.VoteEvent, error) {
	msg, err := kc.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
			return model.VoteEvent{}, err
		}
		return model.VoteEvent{}, fmt.Errorf("read message from kafka: %w", err)
	}

	var ev model.VoteEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return model.VoteEvent{}, fmt.Errorf("%w: offset %d: %v", ErrMalformedEvent, msg.Offset, err)
	}

	return ev, nil
}

func (kc *KafkaConsumer) Close() error {
	if err := kc.reader.Close(); err != nil {
		return fmt.Errorf("failed to close kafka reader: %w", err)
	}
	return nil
}
