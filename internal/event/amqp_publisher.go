package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Guizzs26/attendance_poll_bot/internal/model"
)

// AmqpPublisher sends vote events to a durable RabbitMQ queue. A channel is
// not safe for concurrent publishing, so writes are serialized.
type AmqpPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	mu    sync.Mutex
}

func NewAmqpPublisher(url, queue string) (*AmqpPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &AmqpPublisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *AmqpPublisher) Publish(ctx context.Context, ev model.VoteEvent) error {
	msg, err := newPublishing(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.queue, err)
	}
	return nil
}

func newPublishing(ev model.VoteEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal vote event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.Timestamp,
		Body:         body,
	}, nil
}

func (p *AmqpPublisher) Close() error {
	chErr := p.ch.Close()
	connErr := p.conn.Close()
	if chErr != nil {
		return fmt.Errorf("failed to close amqp channel: %w", chErr)
	}
	if connErr != nil {
		return fmt.Errorf("failed to close amqp connection: %w", connErr)
	}
	return nil
}
