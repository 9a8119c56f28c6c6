package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/freight"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// NewHumanHandoffNode flags the reply for a human and notifies the store.
func NewHumanHandoffNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, step *model.StepContext) (*model.StepContext, error) {
		step.Draft.HumanHandoff = true
		step.Draft.ResponseText = MsgHandoff

		logx.Warn().
			Str("session_id", step.SessionID).
			Str("tenant_id", step.TenantID).
			Msg("Human intervention requested")

		if d.Notifier != nil {
			err := d.Notifier.NotifyHandoff(ctx, model.HandoffEvent{
				SessionID: step.SessionID,
				UserID:    step.UserID,
				TenantID:  step.TenantID,
				StoreName: step.StoreName,
				Message:   step.Text,
				At:        d.now(),
			})
			if err != nil {
				logx.Error().Err(err).Str("session_id", step.SessionID).Msg("handoff notification failed")
			}
		}
		return step, nil
	})
}

func NewMenuNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, step *model.StepContext) (*model.StepContext, error) {
		step.Draft.SendMenu = true
		step.Draft.ResponseText = MsgMenu
		return step, nil
	})
}

// NewFreightNode quotes delivery to the shared location.
func NewFreightNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, step *model.StepContext) (*model.StepContext, error) {
		if !step.HasCoordinates() || d.Freight == nil {
			step.Draft.ResponseText = freight.MsgNeedLocation
			return step, nil
		}
		res, msg := d.Freight.Calculate(ctx, step.TenantID, *step.Latitude, *step.Longitude)
		if res == nil {
			step.Draft.ResponseText = msg
			return step, nil
		}
		applyFreight(step, res)
		return step, nil
	})
}

func applyFreight(step *model.StepContext, res *model.FreightResult) {
	step.FreightInfo = res
	step.Draft.FreightDetails = res
	if step.Order != nil {
		step.Order.Freight = res
	}
	if res.Cost != nil {
		step.Draft.ResponseText = fmt.Sprintf(MsgFreightQuote, *res.Cost, res.DistanceKM, res.DurationMinutes)
	} else {
		step.Draft.ResponseText = fmt.Sprintf(MsgFreightNoCost, res.DistanceKM, res.DurationMinutes)
	}
}
