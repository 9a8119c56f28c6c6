package nodes

import (
	"errors"
	"time"

	"github.com/Chative-commerce/server/internal/agent/graph/conversations"
	"github.com/Chative-commerce/server/internal/agent/graph/prompts"
	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/agent/responders"
	"github.com/Chative-commerce/server/internal/order"
	"github.com/Chative-commerce/server/internal/rules"
)

// Deps are the collaborators the nodes call into. Media and Notifier are optional.
type Deps struct {
	Messages  *conversations.MessagesManager
	Media     *responders.MediaSummarizer
	Intent    *responders.IntentClassifier
	Signal    *responders.SignalClassifier
	Orders    *responders.OrderExtractor
	Pending   *order.PendingHandler
	Catalog   model.Catalog
	Rules     *rules.Engine
	Freight   order.FreightQuoter
	Addresses model.AddressStore
	Notifier  model.Notifier
	ToolNames prompts.ToolNames
	Now       func() time.Time
}

// Validate reports the first missing mandatory collaborator.
func (d *Deps) Validate() error {
	switch {
	case d == nil:
		return errors.New("deps is nil")
	case d.Messages == nil:
		return errors.New("messages manager is nil")
	case d.Intent == nil || d.Signal == nil || d.Orders == nil:
		return errors.New("responders are not properly initialized")
	case d.Pending == nil:
		return errors.New("pending handler is nil")
	case d.Catalog == nil || d.Rules == nil || d.Addresses == nil:
		return errors.New("catalog collaborators are nil")
	}
	return nil
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
