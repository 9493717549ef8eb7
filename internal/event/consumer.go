package event

import (
	"context"

	"github.com/Guizzs26/attendance_poll_bot/internal/model"
)

type VoteConsumer interface {
	ReadEvent(ctx context.Context) (model.VoteEvent, error)
	Close() error
}
