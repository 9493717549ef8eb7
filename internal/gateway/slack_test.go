package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestToInteraction(t *testing.T) {
	cb := slack.InteractionCallback{
		Type: slack.InteractionTypeBlockActions,
		User: slack.User{ID: "U1"},
		Channel: slack.Channel{
			GroupConversation: slack.GroupConversation{
				Conversation: slack.Conversation{ID: "C1"},
			},
		},
		ActionCallback: slack.ActionCallbacks{
			BlockActions: []*slack.BlockAction{
				{ActionID: "select_monday", Value: "Monday"},
				nil,
			},
		},
	}

	in := toInteraction(cb)

	assert.Equal(t, "U1", in.UserID)
	assert.Equal(t, "C1", in.ChannelID)
	assert.Equal(t, []Action{{ActionID: "select_monday", Value: "Monday"}}, in.Actions)
}

func TestToInteractionWithoutActions(t *testing.T) {
	in := toInteraction(slack.InteractionCallback{User: slack.User{ID: "U2"}})

	assert.Equal(t, "U2", in.UserID)
	assert.Empty(t, in.Actions)
}

func TestPromptBlocks(t *testing.T) {
	buttons := []Button{
		{Label: "*Monday*", Text: "Select", ActionID: "select_monday", Value: "Monday"},
		{Label: "Remove", Text: "Clear", ActionID: "remove_vote", Value: "remove_vote"},
	}

	blocks := promptBlocks(buttons)
	require.Len(t, blocks, 2)

	for i, b := range blocks {
		section, ok := b.(*slack.SectionBlock)
		require.True(t, ok, "block %d is %T", i, b)
		assert.Equal(t, buttons[i].Label, section.Text.Text)
		assert.Equal(t, slack.MarkdownType, section.Text.Type)
		require.NotNil(t, section.Accessory)
		require.NotNil(t, section.Accessory.ButtonElement)
		assert.Equal(t, buttons[i].ActionID, section.Accessory.ButtonElement.ActionID)
		assert.Equal(t, buttons[i].Value, section.Accessory.ButtonElement.Value)
		assert.Equal(t, buttons[i].Text, section.Accessory.ButtonElement.Text.Text)
	}
}

type ackRecord struct {
	envelopeID string
	ctxErr     error
}

type recordingAcker struct {
	mu   sync.Mutex
	acks []ackRecord
	err  error
}

func (a *recordingAcker) AckCtx(ctx context.Context, envelopeID string, _ any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, ackRecord{envelopeID: envelopeID, ctxErr: ctx.Err()})
	return a.err
}

type recordingListener struct {
	interactions []Interaction
	messages     []ChannelMessage
}

func (l *recordingListener) OnInteraction(_ context.Context, in Interaction) {
	l.interactions = append(l.interactions, in)
}

func (l *recordingListener) OnMessage(_ context.Context, msg ChannelMessage) {
	l.messages = append(l.messages, msg)
}

func newTestSlack(a acker) *Slack {
	return &Slack{acker: a, logger: zap.NewNop()}
}

func envelope(id string) *socketmode.Request {
	return &socketmode.Request{EnvelopeID: id}
}

func TestHandleAcknowledgesEveryEnvelopeOnce(t *testing.T) {
	click := slack.InteractionCallback{
		User: slack.User{ID: "U1"},
		ActionCallback: slack.ActionCallbacks{
			BlockActions: []*slack.BlockAction{{ActionID: "select_monday", Value: "Monday"}},
		},
	}
	message := slackevents.EventsAPIEvent{
		InnerEvent: slackevents.EventsAPIInnerEvent{
			Type: "message",
			Data: &slackevents.MessageEvent{User: "U2", Channel: "C1", Text: "hi"},
		},
	}
	reaction := slackevents.EventsAPIEvent{
		InnerEvent: slackevents.EventsAPIInnerEvent{
			Type: "reaction_added",
			Data: &slackevents.ReactionAddedEvent{User: "U3"},
		},
	}

	testCases := []struct {
		name         string
		evt          socketmode.Event
		acks         []string
		interactions int
		messages     int
	}{
		{
			name:         "interactive",
			evt:          socketmode.Event{Type: socketmode.EventTypeInteractive, Data: click, Request: envelope("e1")},
			acks:         []string{"e1"},
			interactions: 1,
		},
		{
			name: "interactive with wrong payload",
			evt:  socketmode.Event{Type: socketmode.EventTypeInteractive, Data: "garbage", Request: envelope("e2")},
			acks: []string{"e2"},
		},
		{
			name:     "events api message",
			evt:      socketmode.Event{Type: socketmode.EventTypeEventsAPI, Data: message, Request: envelope("e3")},
			acks:     []string{"e3"},
			messages: 1,
		},
		{
			name: "events api other inner event",
			evt:  socketmode.Event{Type: socketmode.EventTypeEventsAPI, Data: reaction, Request: envelope("e4")},
			acks: []string{"e4"},
		},
		{
			name: "events api with wrong payload",
			evt:  socketmode.Event{Type: socketmode.EventTypeEventsAPI, Data: 42, Request: envelope("e5")},
			acks: []string{"e5"},
		},
		{
			name: "slash command is not handled but still acknowledged",
			evt:  socketmode.Event{Type: socketmode.EventTypeSlashCommand, Data: slack.SlashCommand{}, Request: envelope("e6")},
			acks: []string{"e6"},
		},
		{
			name: "connection events carry no envelope",
			evt:  socketmode.Event{Type: socketmode.EventTypeConnected},
		},
		{
			name: "hello without envelope id",
			evt:  socketmode.Event{Type: socketmode.EventTypeHello, Request: &socketmode.Request{Type: "hello"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := &recordingAcker{}
			l := &recordingListener{}

			newTestSlack(a).handle(context.Background(), l, tc.evt)

			var got []string
			for _, r := range a.acks {
				got = append(got, r.envelopeID)
			}
			assert.Equal(t, tc.acks, got)
			assert.Len(t, l.interactions, tc.interactions)
			assert.Len(t, l.messages, tc.messages)
		})
	}
}

func TestHandleAcksAfterListenerReturns(t *testing.T) {
	a := &recordingAcker{}
	var acksSeenByListener int
	l := listenerFunc(func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		acksSeenByListener = len(a.acks)
	})

	evt := socketmode.Event{
		Type:    socketmode.EventTypeInteractive,
		Data:    slack.InteractionCallback{User: slack.User{ID: "U1"}},
		Request: envelope("e1"),
	}
	newTestSlack(a).handle(context.Background(), l, evt)

	assert.Zero(t, acksSeenByListener)
	assert.Len(t, a.acks, 1)
}

func TestHandlePassesCancellationToAck(t *testing.T) {
	a := &recordingAcker{err: context.Canceled}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestSlack(a)
	for i := 0; i < 25; i++ {
		s.handle(ctx, &recordingListener{}, socketmode.Event{
			Type:    socketmode.EventTypeInteractive,
			Data:    slack.InteractionCallback{},
			Request: envelope("e"),
		})
	}

	require.Len(t, a.acks, 25)
	for _, r := range a.acks {
		assert.True(t, errors.Is(r.ctxErr, context.Canceled))
	}
}

type listenerFunc func()

func (f listenerFunc) OnInteraction(context.Context, Interaction) { f() }
func (f listenerFunc) OnMessage(context.Context, ChannelMessage)  { f() }

func TestMsgOptions(t *testing.T) {
	t.Run("silent", func(t *testing.T) {
		_, values, err := slack.UnsafeApplyMsgOptions("token", "C1", "https://slack.test/api/",
			msgOptions(Message{Text: "Got it! Recorded Monday.", Silent: true})...)
		require.NoError(t, err)

		assert.Equal(t, "Got it! Recorded Monday.", values.Get("text"))
		assert.Equal(t, "none", values.Get("parse"))
		assert.Equal(t, "false", values.Get("unfurl_links"))
		assert.NotContains(t, []string{"1", "true"}, values.Get("link_names"))
		assert.Empty(t, values.Get("blocks"))
	})

	t.Run("prompt", func(t *testing.T) {
		_, values, err := slack.UnsafeApplyMsgOptions("token", "C1", "https://slack.test/api/",
			msgOptions(Message{
				Text:    "Which days?",
				Buttons: []Button{{Label: "*Monday*", Text: "Select", ActionID: "select_monday", Value: "Monday"}},
			})...)
		require.NoError(t, err)

		assert.Empty(t, values.Get("parse"))
		assert.Contains(t, values.Get("blocks"), "select_monday")
	})
}
