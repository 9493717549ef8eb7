package processing

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Guizzs26/attendance_poll_bot/internal/event"
	"github.com/Guizzs26/attendance_poll_bot/internal/metrics"
	"github.com/Guizzs26/attendance_poll_bot/internal/model"
	"github.com/Guizzs26/attendance_poll_bot/internal/tally"
)

// VoteProcessor rebuilds a tally from the vote event stream with the same
// toggle semantics as the live bot, and logs the score periodically.
type VoteProcessor struct {
	consumer event.VoteConsumer
	store    *tally.Store
	metrics  *metrics.BotMetrics
	logger   *zap.Logger

	reportEvery time.Duration
}

func NewVoteProcessor(c event.VoteConsumer, s *tally.Store, m *metrics.BotMetrics, logger *zap.Logger) *VoteProcessor {
	return &VoteProcessor{
		consumer:    c,
		store:       s,
		metrics:     m,
		logger:      logger,
		reportEvery: 5 * time.Second,
	}
}

func (vp *VoteProcessor) Run(ctx context.Context) error {
	events := make(chan model.VoteEvent)
	readErr := make(chan error, 1)
	go vp.read(ctx, events, readErr)

	rTicker := time.NewTicker(vp.reportEvery)
	defer rTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			vp.logger.Info("vote processor received signal to stop")
			vp.printResults()
			return nil

		case err := <-readErr:
			return err

		case <-rTicker.C:
			vp.printResults()

		case ev := <-events:
			vp.apply(ev)
		}
	}
}

// read pulls events off the consumer until ctx is done. Malformed events are
// skipped; any other read error stops the processor.
func (vp *VoteProcessor) read(ctx context.Context, out chan<- model.VoteEvent, errc chan<- error) {
	for {
		ev, err := vp.consumer.ReadEvent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, event.ErrMalformedEvent) {
				vp.logger.Warn("skipping malformed event", zap.Error(err))
				continue
			}
			errc <- err
			return
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (vp *VoteProcessor) apply(ev model.VoteEvent) {
	defer vp.metrics.EventsApplied.WithLabelValues(string(ev.Kind)).Inc()

	switch ev.Kind {
	case model.EventSelected:
		for _, c := range ev.Categories {
			outcome, err := vp.store.Select(ev.UserID, c)
			if err != nil {
				vp.logger.Warn("event names unknown category", zap.String("event_id", ev.ID), zap.String("category", string(c)))
				continue
			}
			if outcome == tally.AlreadySelected {
				vp.logger.Warn("[DUPLICATE] selection replayed twice",
					zap.String("event_id", ev.ID),
					zap.String("user", ev.UserID),
					zap.String("category", string(c)),
				)
			}
		}

	case model.EventCleared:
		if outcome, _ := vp.store.Clear(ev.UserID); outcome == tally.NothingToClear {
			vp.logger.Warn("clear event for a voter with no selections", zap.String("event_id", ev.ID), zap.String("user", ev.UserID))
		}

	case model.EventReset:
		vp.printResults()
		vp.store.Reset()
		vp.logger.Info("cycle closed, tally reset", zap.String("report_id", ev.ID))

	default:
		vp.logger.Warn("unknown event kind", zap.String("event_id", ev.ID), zap.String("kind", string(ev.Kind)))
	}
}

func (vp *VoteProcessor) printResults() {
	snap := vp.store.Snapshot()

	if len(snap) == 0 {
		vp.logger.Info("--- CURRENT SCORE --- no selections counted yet")
		return
	}

	fields := make([]zap.Field, 0, len(snap))
	for _, c := range vp.store.Categories() {
		if n, ok := snap[c]; ok {
			fields = append(fields, zap.Int(string(c), n))
		}
	}
	vp.logger.Info("--- CURRENT SCORE ---", fields...)
}
