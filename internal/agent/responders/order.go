package responders

import (
	"context"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-commerce/server/internal/agent/graph/parsers"
	"github.com/Chative-commerce/server/internal/agent/graph/prompts"
)

// OrderExtractor pulls items, address and the final-order flag from a message.
type OrderExtractor struct {
	Model einomodel.BaseChatModel
}

func NewOrderExtractor(m einomodel.BaseChatModel) *OrderExtractor {
	return &OrderExtractor{Model: m}
}

func (e *OrderExtractor) Extract(ctx context.Context, text string, history []*schema.Message) (*parsers.OrderExtraction, error) {
	system, err := prompts.RenderOrderSystem(ctx)
	if err != nil {
		return nil, err
	}
	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, schema.SystemMessage(system))
	msgs = append(msgs, history...)
	msgs = append(msgs, schema.UserMessage(text))

	out, err := e.Model.Generate(ctx, msgs)
	if err != nil {
		return nil, err
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return nil, ErrEmptyOutput
	}
	return parsers.ParseOrderExtraction(out.Content)
}
