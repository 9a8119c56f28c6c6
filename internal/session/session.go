// Package session keeps per-conversation state: the order being built and
// the last time the user talked to the store.
package session

import (
	"context"
	"time"

	"github.com/Chative-commerce/server/internal/agent/model"
)

// Key builds the composite session id.
func Key(userID, tenantID string) string {
	return userID + "_" + tenantID
}

// Session is the state kept between messages of one conversation.
type Session struct {
	Order           *model.OrderState `json:"order"`
	LastInteraction time.Time         `json:"last_interaction"`
}

// Store loads and saves sessions. Load never returns nil for an unknown key;
// it returns a fresh session with an open order.
type Store interface {
	Load(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, key string, s *Session) error
}

func fresh() *Session {
	return &Session{Order: model.NewOrderState()}
}

// normalize turns a finished order into a new open one.
func normalize(s *Session) *Session {
	if s == nil {
		return fresh()
	}
	if s.Order == nil || s.Order.Status == "" || s.Order.Status.IsTerminal() {
		s.Order = model.NewOrderState()
	}
	return s
}
