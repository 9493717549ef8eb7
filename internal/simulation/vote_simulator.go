package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Guizzs26/attendance_poll_bot/internal/event"
	"github.com/Guizzs26/attendance_poll_bot/internal/model"
)

// Simulator publishes synthetic voter clicks. Every fifth event repeats the
// previous selection so consumers see duplicates, and now and then a voter
// withdraws.
type Simulator struct {
	eventPublisher event.VotePublisher
	categories     []model.Category
	every          time.Duration
	rng            *rand.Rand
	logger         *zap.Logger
}

func New(ep event.VotePublisher, categories []model.Category, every time.Duration, logger *zap.Logger) *Simulator {
	return &Simulator{
		eventPublisher: ep,
		categories:     categories,
		every:          every,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:         logger,
	}
}

func (s *Simulator) Run(ctx context.Context) error {
	if len(s.categories) == 0 {
		return fmt.Errorf("simulator needs at least one category")
	}

	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	const duplicateFrequency = 5
	const clearFrequency = 7
	var tick int
	var last model.VoteEvent

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("simulator received shutdown signal")
			return nil

		case <-ticker.C:
			tick++
			var ev model.VoteEvent
			switch {
			case tick%duplicateFrequency == 0 && last.UserID != "":
				s.logger.Info("repeating a selection on purpose", zap.String("user", last.UserID))
				ev = last
			case tick%clearFrequency == 0 && last.UserID != "":
				ev = model.VoteEvent{Kind: model.EventCleared, UserID: last.UserID}
			default:
				ev = model.VoteEvent{
					Kind:       model.EventSelected,
					UserID:     fmt.Sprintf("U%04d", s.rng.Intn(50)),
					Categories: []model.Category{s.categories[s.rng.Intn(len(s.categories))]},
				}
				last = ev
			}
			ev.ID = uuid.NewString()
			ev.Timestamp = time.Now().UTC()

			publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := s.eventPublisher.Publish(publishCtx, ev); err != nil {
				s.logger.Warn("failed to publish simulated event", zap.Error(err))
			}
			cancel()
		}
	}
}
