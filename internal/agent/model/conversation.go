package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ConversationRepository keeps the recent chat transcript of a session.
type ConversationRepository interface {
	// AddMessage appends a message to the session history.
	AddMessage(ctx context.Context, sessionID string, message *schema.Message) error

	// LoadHistory returns the stored history; an unknown session yields an empty history.
	LoadHistory(ctx context.Context, sessionID string) (*ConversationHistory, error)

	ClearHistory(ctx context.Context, sessionID string) error

	GetMessageCount(ctx context.Context, sessionID string) (int, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	SessionID string
	Messages  []*schema.Message
}

// Tail returns at most n trailing messages.
func (h *ConversationHistory) Tail(n int) []*schema.Message {
	if h == nil || n <= 0 {
		return nil
	}
	if len(h.Messages) <= n {
		return h.Messages
	}
	return h.Messages[len(h.Messages)-n:]
}
