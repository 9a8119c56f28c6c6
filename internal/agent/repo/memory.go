package repo

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/Chative-commerce/server/internal/agent/model"
)

// MemoryConversationRepository keeps transcripts for the process lifetime.
type MemoryConversationRepository struct {
	mu     sync.RWMutex
	data   map[string][]*schema.Message
	maxLen int
}

func NewMemoryConversationRepository(maxLen int) *MemoryConversationRepository {
	return &MemoryConversationRepository{data: map[string][]*schema.Message{}, maxLen: maxLen}
}

func (r *MemoryConversationRepository) AddMessage(_ context.Context, sessionID string, message *schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := append(r.data[sessionID], message)
	if r.maxLen > 0 && len(msgs) > r.maxLen {
		msgs = append([]*schema.Message(nil), msgs[len(msgs)-r.maxLen:]...)
	}
	r.data[sessionID] = msgs
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, sessionID string) (*model.ConversationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := make([]*schema.Message, len(r.data[sessionID]))
	copy(msgs, r.data[sessionID])
	return &model.ConversationHistory{SessionID: sessionID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.data, sessionID)
	r.mu.Unlock()
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(_ context.Context, sessionID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data[sessionID]), nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
