package responders

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-commerce/server/internal/agent/graph/prompts"
	"github.com/Chative-commerce/server/internal/agent/model"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// SignalClassifier reads a one-word delivery/confirmation answer.
type SignalClassifier struct {
	Model einomodel.BaseChatModel
}

func NewSignalClassifier(m einomodel.BaseChatModel) *SignalClassifier {
	return &SignalClassifier{Model: m}
}

// Classify returns SignalOther, together with the cause, when the model fails.
func (s *SignalClassifier) Classify(ctx context.Context, text string) (model.DeliverySignal, error) {
	system, err := prompts.RenderSignalSystem(ctx)
	if err != nil {
		return model.SignalOther, err
	}
	out, err := s.Model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(text),
	})
	if err != nil {
		logx.Warn().Err(err).Str("responder", "signal").Msg("signal classification failed")
		return model.SignalOther, err
	}
	if out == nil {
		return model.SignalOther, ErrEmptyOutput
	}
	return model.ParseDeliverySignal(out.Content), nil
}
