package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Guizzs26/attendance_poll_bot/internal/event"
	"github.com/Guizzs26/attendance_poll_bot/internal/gateway"
	"github.com/Guizzs26/attendance_poll_bot/internal/metrics"
	"github.com/Guizzs26/attendance_poll_bot/internal/model"
	"github.com/Guizzs26/attendance_poll_bot/internal/poll"
	"github.com/Guizzs26/attendance_poll_bot/internal/tally"
)

const (
	recordedText        = "Got it! Recorded %s."
	alreadySelectedText = "%s is already selected. Please choose a different day."
	clearedText         = "All of your selections have been removed."
	nothingToClearText  = "You have no days selected."
	echoText            = "Hello <@%s>, you said: %s"
)

type Broadcaster interface {
	Publish(snap tally.Snapshot)
}

type Deps struct {
	Store       *tally.Store
	Gateway     gateway.Gateway
	Publisher   event.VotePublisher
	Broadcaster Broadcaster
	Metrics     *metrics.BotMetrics
	Logger      *zap.Logger
	// BotUserID is the bot's own user; its messages are never echoed.
	BotUserID string
	Echo      bool
}

// Handler turns inbound deliveries into store operations and replies to the
// voter. It is safe for concurrent use.
type Handler struct {
	store       *tally.Store
	gw          gateway.Gateway
	publisher   event.VotePublisher
	broadcaster Broadcaster
	metrics     *metrics.BotMetrics
	logger      *zap.Logger
	botUserID   string
	echo        bool
}

var _ gateway.Listener = (*Handler)(nil)

func NewHandler(d Deps) *Handler {
	h := &Handler{
		store:       d.Store,
		gw:          d.Gateway,
		publisher:   d.Publisher,
		broadcaster: d.Broadcaster,
		metrics:     d.Metrics,
		logger:      d.Logger,
		botUserID:   d.BotUserID,
		echo:        d.Echo,
	}
	if h.publisher == nil {
		h.publisher = event.NopPublisher{}
	}
	if h.broadcaster == nil {
		h.broadcaster = nopBroadcaster{}
	}
	return h
}

type nopBroadcaster struct{}

func (nopBroadcaster) Publish(tally.Snapshot) {}

func (h *Handler) OnInteraction(ctx context.Context, in gateway.Interaction) {
	if len(in.Actions) == 0 {
		h.logger.Debug("interaction without actions", zap.String("user", in.UserID))
		return
	}

	action := in.Actions[0]
	kind, category := poll.ParseAction(action)

	start := time.Now()
	defer func() {
		h.metrics.HandlingTime.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
	}()

	switch kind {
	case poll.ActionSelect:
		h.selectCategory(ctx, in, category)
	case poll.ActionClear:
		h.clearVoter(ctx, in)
	default:
		h.logger.Warn("ignoring unknown action",
			zap.String("user", in.UserID),
			zap.String("action_id", action.ActionID),
		)
	}
}

func (h *Handler) selectCategory(ctx context.Context, in gateway.Interaction, category model.Category) {
	outcome, err := h.store.Select(in.UserID, category)
	if errors.Is(err, tally.ErrUnknownCategory) {
		h.logger.Warn("ignoring selection of unknown category",
			zap.String("user", in.UserID),
			zap.String("category", string(category)),
		)
		return
	}
	h.metrics.Votes.WithLabelValues(string(category), outcome.String()).Inc()

	switch outcome {
	case tally.Recorded:
		h.logger.Info("selection recorded", zap.String("user", in.UserID), zap.String("category", string(category)))
		h.changed(ctx, model.VoteEvent{
			Kind:       model.EventSelected,
			UserID:     in.UserID,
			Categories: []model.Category{category},
		})
		h.reply(ctx, in.ChannelID, fmt.Sprintf(recordedText, category))
	case tally.AlreadySelected:
		h.reply(ctx, in.ChannelID, fmt.Sprintf(alreadySelectedText, category))
	}
}

func (h *Handler) clearVoter(ctx context.Context, in gateway.Interaction) {
	outcome, removed := h.store.Clear(in.UserID)
	h.metrics.Clears.WithLabelValues(outcome.String()).Inc()

	switch outcome {
	case tally.Cleared:
		h.logger.Info("selections withdrawn", zap.String("user", in.UserID), zap.Any("categories", removed))
		h.changed(ctx, model.VoteEvent{
			Kind:       model.EventCleared,
			UserID:     in.UserID,
			Categories: removed,
		})
		h.reply(ctx, in.ChannelID, clearedText)
	case tally.NothingToClear:
		h.reply(ctx, in.ChannelID, nothingToClearText)
	}
}

// changed fans an accepted mutation out to the event stream and live viewers.
func (h *Handler) changed(ctx context.Context, ev model.VoteEvent) {
	ev.ID = uuid.NewString()
	ev.Timestamp = time.Now().UTC()
	if err := h.publisher.Publish(ctx, ev); err != nil {
		h.logger.Warn("failed to publish vote event", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
	h.broadcaster.Publish(h.store.Snapshot())
}

func (h *Handler) reply(ctx context.Context, channel, text string) {
	if err := h.gw.PostMessage(ctx, channel, gateway.Message{Text: text, Silent: true}); err != nil {
		h.metrics.GatewayFailures.WithLabelValues("reply").Inc()
		h.logger.Error("failed to send reply", zap.String("channel", channel), zap.Error(err))
	}
}

// OnMessage echoes plain channel messages back when echo is enabled. Edits,
// joins and other subtyped messages, and anything posted by a bot, are ignored.
func (h *Handler) OnMessage(ctx context.Context, msg gateway.ChannelMessage) {
	if !h.echo || msg.SubType != "" || msg.BotID != "" || msg.UserID == "" {
		return
	}
	if msg.UserID == h.botUserID {
		h.logger.Debug("ignoring own message")
		return
	}

	text := fmt.Sprintf(echoText, msg.UserID, msg.Text)
	if err := h.gw.PostMessage(ctx, msg.ChannelID, gateway.Message{Text: text}); err != nil {
		h.metrics.GatewayFailures.WithLabelValues("echo").Inc()
		h.logger.Error("failed to echo message", zap.String("channel", msg.ChannelID), zap.Error(err))
	}
}
