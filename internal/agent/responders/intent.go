// Package responders wraps the single-purpose LLM calls of the pipeline.
// Every responder degrades to a safe value instead of failing the run.
package responders

import (
	"context"
	"errors"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-commerce/server/internal/agent/graph/parsers"
	"github.com/Chative-commerce/server/internal/agent/graph/prompts"
	"github.com/Chative-commerce/server/internal/agent/model"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// ErrEmptyOutput is returned when a model answers with no content.
var ErrEmptyOutput = errors.New("model returned empty output")

// IntentInput is the text to classify plus recent history for context.
type IntentInput struct {
	Text    string
	History []*schema.Message
}

// IntentClassifier decomposes a message into ordered tasks.
type IntentClassifier struct {
	Model einomodel.BaseChatModel
}

func NewIntentClassifier(m einomodel.BaseChatModel) *IntentClassifier {
	return &IntentClassifier{Model: m}
}

// Classify always returns a usable analysis. A non-nil error means the
// fallback analysis was substituted.
func (c *IntentClassifier) Classify(ctx context.Context, in IntentInput) (model.IntentAnalysis, error) {
	analysis, err := c.classify(ctx, in)
	if err != nil {
		logx.Warn().Err(err).Str("responder", "intent").Msg("intent classification failed, using fallback")
		return model.FallbackAnalysis(in.Text), err
	}
	return *analysis, nil
}

func (c *IntentClassifier) classify(ctx context.Context, in IntentInput) (*model.IntentAnalysis, error) {
	system, err := prompts.RenderIntentSystem(ctx)
	if err != nil {
		return nil, err
	}
	msgs := make([]*schema.Message, 0, len(in.History)+2)
	msgs = append(msgs, schema.SystemMessage(system))
	msgs = append(msgs, in.History...)
	msgs = append(msgs, schema.UserMessage("Mensagem atual: "+in.Text))

	out, err := c.Model.Generate(ctx, msgs)
	if err != nil {
		return nil, err
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return nil, ErrEmptyOutput
	}
	return parsers.ParseIntentAnalysis(out.Content)
}
