package store

import "github.com/matheus3301/parley/internal/message"

// Message and outbox status values.
const (
	StatusQueued   = "queued"
	StatusSending  = "sending"
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusReceived = "received"
)

// Chat is a conversation with one peer.
type Chat struct {
	ID                 string
	Name               string
	UnreadCount        int
	LastMessageAt      int64
	LastMessagePreview string
}

// DisplayName returns the chat name, falling back to its ID.
func (c Chat) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// Message is a stored chat message, sent or received.
type Message struct {
	ID         int64
	ChatID     string
	MsgID      string
	SenderName string
	Body       string
	Kind       message.Type
	FromMe     bool
	Status     string
	Timestamp  int64
}

// OutboxEntry is a committed message waiting for delivery.
type OutboxEntry struct {
	ID           int64
	ClientMsgID  string
	ChatID       string
	Kind         message.Type
	Body         string
	Status       string
	ErrorMessage string
	ServerMsgID  string
}

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	Message Message
	Snippet string
}
