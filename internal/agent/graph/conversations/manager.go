package conversations

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Chative-commerce/server/internal/agent/model"
)

const (
	defaultIntentTurns   = 5
	defaultResponseTurns = 10
)

// MessagesManager reads and writes the per-session transcript used as model context.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
	intentTurns      int
	responseTurns    int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	mm := &MessagesManager{
		conversationRepo: conversationRepo,
		intentTurns:      config.NLU.MaxTurns,
		responseTurns:    config.Response.MaxTurns,
	}
	if mm.intentTurns <= 0 {
		mm.intentTurns = defaultIntentTurns
	}
	if mm.responseTurns <= 0 {
		mm.responseTurns = defaultResponseTurns
	}
	return mm
}

// Recent loads the transcript as it was before the current message. Only
// user and assistant turns with content are kept.
func (cm *MessagesManager) Recent(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	history, err := cm.conversationRepo.LoadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]*schema.Message, 0, len(history.Messages))
	for _, msg := range history.Messages {
		if msg == nil || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		if msg.Role != schema.User && msg.Role != schema.Assistant {
			continue
		}
		out = append(out, msg)
	}
	return trimTail(out, cm.responseTurns), nil
}

// ForIntent narrows history to the classifier window.
func (cm *MessagesManager) ForIntent(history []*schema.Message) []*schema.Message {
	return trimTail(history, cm.intentTurns)
}

// BuildResponseContext is the system prompt, prior turns and the current message.
func (cm *MessagesManager) BuildResponseContext(systemPrompt string, history []*schema.Message, current string) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	messages = append(messages, history...)
	if strings.TrimSpace(current) != "" {
		messages = append(messages, schema.UserMessage(current))
	}
	return messages
}

func (cm *MessagesManager) SaveUser(ctx context.Context, sessionID, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	return cm.conversationRepo.AddMessage(ctx, sessionID, schema.UserMessage(content))
}

func (cm *MessagesManager) SaveResponse(ctx context.Context, sessionID, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	return cm.conversationRepo.AddMessage(ctx, sessionID, schema.AssistantMessage(content, nil))
}

func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
