package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-commerce/server/internal/agent/model"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// NewInputConverterPreHandler resets the per-run counters.
func NewInputConverterPreHandler() func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		s.SessionID = in.SessionID
		s.TenantID = in.TenantID
		s.Step = nil
		s.Recent = nil
		s.History = nil
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewInputConverterNode builds the step context, runs the media pre-step and
// records the user turn in the transcript.
func NewInputConverterNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.QueryInput) (*model.StepContext, error) {
		step := &model.StepContext{
			SessionID:   in.SessionID,
			UserID:      in.UserID,
			TenantID:    in.TenantID,
			MessageID:   in.MessageID,
			Text:        in.Text,
			File:        in.File,
			MimeType:    in.MimeType,
			Latitude:    in.Latitude,
			Longitude:   in.Longitude,
			Personality: in.Personality,
			StoreName:   in.StoreName,
			Order:       in.Order.Clone(),
		}
		log := logx.With("session_id", in.SessionID, "tenant_id", in.TenantID, "message_id", in.MessageID)

		if d.Media != nil {
			d.Media.Apply(ctx, step)
		}

		recent, err := d.Messages.Recent(ctx, in.SessionID)
		if err != nil {
			log.Warn().Err(err).Msg("loading conversation history failed")
			recent = nil
		}
		if !step.Halt {
			if err := d.Messages.SaveUser(ctx, in.SessionID, step.Text); err != nil {
				log.Warn().Err(err).Msg("saving user message failed")
			}
		}

		err = compose.ProcessState[*model.AppState](ctx, func(_ context.Context, s *model.AppState) error {
			s.Step = step
			s.Recent = recent
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store step: %w", err)
		}
		return step, nil
	})
}

// NewEntryCondition decides between early exit, the pending sub-flow and
// intent classification.
func NewEntryCondition() func(context.Context, *model.StepContext) (string, error) {
	return func(ctx context.Context, step *model.StepContext) (string, error) {
		switch {
		case step.Halt:
			return NodeEarlyExit, nil
		case step.Order != nil && step.Order.Status.IsPending():
			logx.Debug().Str("session_id", step.SessionID).Str("status", string(step.Order.Status)).Msg("Routing to pending confirmation")
			return NodePending, nil
		default:
			return NodeIntentClassifier, nil
		}
	}
}

// NewEarlyExitNode returns the draft set by the media pre-step.
func NewEarlyExitNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, step *model.StepContext) (*model.AIResponse, error) {
		resp := step.Result()
		resp.Order = step.Order
		return resp, nil
	})
}
