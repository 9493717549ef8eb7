package gateway

import "context"

// Button is one interactive control attached to a prompt line.
type Button struct {
	Label    string // line text shown next to the button
	Text     string // button caption
	ActionID string
	Value    string
}

// Message is an outbound chat message. Buttons render as one prompt line each,
// in order. Silent messages must not notify the people they mention.
type Message struct {
	Text    string
	Buttons []Button
	Silent  bool
}

// Gateway is the outbound side of the chat platform.
type Gateway interface {
	PostMessage(ctx context.Context, channel string, msg Message) error
	UploadFile(ctx context.Context, channel, path, caption string) error
}

type Action struct {
	ActionID string
	Value    string
}

// Interaction is a button click delivered by the platform.
type Interaction struct {
	UserID    string
	ChannelID string
	Actions   []Action
}

// ChannelMessage is a plain message posted in a channel the bot can read.
type ChannelMessage struct {
	UserID    string
	ChannelID string
	Text      string
	SubType   string
	BotID     string
}

// Listener receives inbound deliveries, one method per event shape. Deliveries
// may arrive concurrently and in any order.
type Listener interface {
	OnInteraction(ctx context.Context, in Interaction)
	OnMessage(ctx context.Context, msg ChannelMessage)
}
