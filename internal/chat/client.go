// Package chat keeps a best-effort chat channel alive alongside a call.
package chat

import "context"

const (
	ChannelType = "livestream"
	ChannelName = "Meeting Chat"
)

// ChannelID is stable per call so repeated attempts converge on one channel.
func ChannelID(callID string) string { return "meeting-" + callID }

type EventType string

const (
	EventMessageNew        EventType = "message.new"
	EventTypingStart       EventType = "typing.start"
	EventTypingStop        EventType = "typing.stop"
	EventConnectionChanged EventType = "connection.changed"
)

type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type Event struct {
	Type EventType `json:"type"`
	User User      `json:"user"`

	// Online is set on connection.changed.
	Online bool `json:"online,omitempty"`
}

type Handler func(Event)

// ChannelData is sent when the channel is first created.
type ChannelData struct {
	Name        string   `json:"name"`
	Members     []string `json:"members"`
	CreatedByID string   `json:"created_by_id"`
}

type WatchOptions struct {
	State    bool `json:"state"`
	Presence bool `json:"presence"`
	Watch    bool `json:"watch"`
}

// Client is the connected chat SDK client.
type Client interface {
	// UserID is empty until the client has connected a user.
	UserID() string
	Channel(channelType, id string, data ChannelData) Channel
	On(event EventType, h Handler) (unsubscribe func())
}

// Channel is a handle to one chat conversation. Watch creates it upstream if needed.
type Channel interface {
	ID() string
	Watch(ctx context.Context, opts WatchOptions) error
	StopWatching(ctx context.Context) error
	MarkRead(ctx context.Context) error
	On(event EventType, h Handler) (unsubscribe func())
}
