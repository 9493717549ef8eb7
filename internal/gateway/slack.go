package gateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"
)

type acker interface {
	AckCtx(ctx context.Context, envelopeID string, payload any) error
}

// Slack binds Gateway to the Web API and delivers inbound events received over
// Socket Mode.
type Slack struct {
	api    *slack.Client
	socket *socketmode.Client
	acker  acker
	logger *zap.Logger
}

func NewSlack(botToken, appToken string, logger *zap.Logger) *Slack {
	api := slack.New(botToken, slack.OptionAppLevelToken(appToken))
	socket := socketmode.New(api)
	return &Slack{
		api:    api,
		socket: socket,
		acker:  socket,
		logger: logger,
	}
}

// BotUserID asks the platform which user the bot token belongs to.
func (s *Slack) BotUserID(ctx context.Context) (string, error) {
	resp, err := s.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("auth test: %w", err)
	}
	return resp.UserID, nil
}

func (s *Slack) PostMessage(ctx context.Context, channel string, msg Message) error {
	if _, _, err := s.api.PostMessageContext(ctx, channel, msgOptions(msg)...); err != nil {
		return fmt.Errorf("post message to %s: %w", channel, err)
	}
	return nil
}

func (s *Slack) UploadFile(ctx context.Context, channel, path, caption string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat upload %s: %w", path, err)
	}

	_, err = s.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:        channel,
		File:           path,
		FileSize:       int(info.Size()),
		Filename:       filepath.Base(path),
		Title:          filepath.Base(path),
		InitialComment: caption,
	})
	if err != nil {
		return fmt.Errorf("upload %s to %s: %w", path, channel, err)
	}
	return nil
}

// Run connects over Socket Mode and dispatches deliveries to l until ctx is
// done. Every delivery that carries an envelope is acknowledged once the
// listener returns, whatever the outcome.
func (s *Slack) Run(ctx context.Context, l Listener) error {
	go s.dispatch(ctx, l)

	if err := s.socket.RunContext(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("socket mode: %w", err)
	}
	return nil
}

func (s *Slack) dispatch(ctx context.Context, l Listener) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-s.socket.Events:
			if !ok {
				return
			}
			s.handle(ctx, l, evt)
		}
	}
}

func (s *Slack) handle(ctx context.Context, l Listener, evt socketmode.Event) {
	if evt.Request != nil && evt.Request.EnvelopeID != "" {
		defer s.ack(ctx, evt.Request.EnvelopeID)
	}

	switch evt.Type {
	case socketmode.EventTypeConnecting:
		s.logger.Info("connecting to slack socket mode")
	case socketmode.EventTypeConnected:
		s.logger.Info("connected to slack socket mode")
	case socketmode.EventTypeConnectionError:
		s.logger.Warn("slack socket mode connection error", zap.Any("data", evt.Data))

	case socketmode.EventTypeInteractive:
		cb, ok := evt.Data.(slack.InteractionCallback)
		if !ok {
			s.logger.Warn("unexpected interactive payload", zap.String("type", fmt.Sprintf("%T", evt.Data)))
			return
		}
		l.OnInteraction(ctx, toInteraction(cb))

	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			s.logger.Warn("unexpected events api payload", zap.String("type", fmt.Sprintf("%T", evt.Data)))
			return
		}
		s.logger.Debug("events api delivery", zap.String("inner_type", apiEvent.InnerEvent.Type))
		if m, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			l.OnMessage(ctx, ChannelMessage{
				UserID:    m.User,
				ChannelID: m.Channel,
				Text:      m.Text,
				SubType:   m.SubType,
				BotID:     m.BotID,
			})
		}
	}
}

func (s *Slack) ack(ctx context.Context, envelopeID string) {
	if err := s.acker.AckCtx(ctx, envelopeID, nil); err != nil {
		s.logger.Warn("failed to acknowledge delivery", zap.String("envelope_id", envelopeID), zap.Error(err))
	}
}

// msgOptions maps a Message to chat.postMessage options. Silent messages are
// sent unparsed, without mention linking and without link previews.
func msgOptions(msg Message) []slack.MsgOption {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if len(msg.Buttons) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(promptBlocks(msg.Buttons)...))
	}
	if msg.Silent {
		opts = append(opts,
			slack.MsgOptionParse(false),
			slack.MsgOptionLinkNames(false),
			slack.MsgOptionDisableLinkUnfurl(),
		)
	}
	return opts
}

func toInteraction(cb slack.InteractionCallback) Interaction {
	in := Interaction{
		UserID:    cb.User.ID,
		ChannelID: cb.Channel.ID,
	}
	for _, a := range cb.ActionCallback.BlockActions {
		if a == nil {
			continue
		}
		in.Actions = append(in.Actions, Action{ActionID: a.ActionID, Value: a.Value})
	}
	return in
}

func promptBlocks(buttons []Button) []slack.Block {
	blocks := make([]slack.Block, 0, len(buttons))
	for _, b := range buttons {
		line := slack.NewTextBlockObject(slack.MarkdownType, b.Label, false, false)
		caption := slack.NewTextBlockObject(slack.PlainTextType, b.Text, false, false)
		button := slack.NewButtonBlockElement(b.ActionID, b.Value, caption)
		blocks = append(blocks, slack.NewSectionBlock(line, nil, slack.NewAccessory(button)))
	}
	return blocks
}
