package nodes

import (
	"context"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/order"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// NewPendingNode advances a pending order. Its reply skips the formulator.
func NewPendingNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, step *model.StepContext) (*model.AIResponse, error) {
		signal := model.SignalOther
		if order.NeedsSignal(step.Order.Status) {
			signal, _ = d.Signal.Classify(ctx, step.Text)
		}
		logx.Debug().
			Str("session_id", step.SessionID).
			Str("status", string(step.Order.Status)).
			Str("signal", string(signal)).
			Msg("Handling pending order")

		resp := d.Pending.Handle(ctx, step.Order, order.PendingInput{
			UserID:    step.UserID,
			TenantID:  step.TenantID,
			Text:      step.Text,
			Signal:    signal,
			Latitude:  step.Latitude,
			Longitude: step.Longitude,
		})
		resp.FileSummary = step.Draft.FileSummary

		if err := d.Messages.SaveResponse(ctx, step.SessionID, resp.ResponseText); err != nil {
			logx.Warn().Err(err).Str("session_id", step.SessionID).Msg("saving pending reply failed")
		}
		return &resp, nil
	})
}
