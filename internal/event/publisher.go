package event

import (
	"context"

	"github.com/Guizzs26/attendance_poll_bot/internal/model"
)

type VotePublisher interface {
	Publish(ctx context.Context, ev model.VoteEvent) error
	Close() error
}

// NopPublisher drops every event. It is used when no event backend is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.VoteEvent) error { return nil }
func (NopPublisher) Close() error                                   { return nil }
