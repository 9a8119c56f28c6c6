package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/order"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// NewOrderTakingNode extracts cart changes from the message and applies them.
func NewOrderTakingNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, step *model.StepContext) (*model.StepContext, error) {
		_, recent, err := loadRun(ctx)
		if err != nil {
			return nil, err
		}
		log := logx.With("session_id", step.SessionID, "tenant_id", step.TenantID)

		ext, err := d.Orders.Extract(ctx, step.Text, recent)
		if err != nil {
			log.Warn().Err(err).Msg("order extraction failed")
			step.Draft.ResponseText = MsgOrderNotRead
			return step, nil
		}

		task := firstTaskType(step)
		switch {
		case task == model.TaskRemoveItem:
			removed := order.RemoveItems(step.Order, ext.Items)
			if len(removed) > 0 {
				step.Draft.ResponseText = fmt.Sprintf(MsgItemsRemoved, order.Summary(removed))
			}
		case len(ext.Items) > 0:
			step.Order = order.AddItems(step.Order, ext.Items)
			step.Draft.ResponseText = fmt.Sprintf(MsgItemsAdded, order.Summary(ext.Items))
			suggestFor(ctx, d, step)
		}

		if step.Order == nil {
			step.Order = model.NewOrderState()
		}
		if promos, err := d.Rules.ApplicablePromotions(ctx, step.TenantID, step.Order); err != nil {
			log.Warn().Err(err).Msg("promotion lookup failed")
		} else {
			step.PromotionsInfo = promos
		}

		if addr := strings.TrimSpace(ext.Address); addr != "" {
			step.Order.Address = addr
			err := d.Addresses.UpsertAddress(ctx, model.SavedAddress{
				UserID:     step.UserID,
				TenantID:   step.TenantID,
				Text:       addr,
				Latitude:   step.Latitude,
				Longitude:  step.Longitude,
				LastUsedAt: d.now(),
			})
			if err != nil {
				log.Warn().Err(err).Msg("address upsert failed")
			}
			if len(ext.Items) == 0 {
				step.Draft.ResponseText = MsgAddressStored
			}
		}

		if (ext.IsFinalOrder || task == model.TaskConfirmOrder) && order.MarkFinal(step.Order) {
			step.Draft.ResponseText = MsgAskDelivery
		}

		log.Debug().
			Int("items", len(step.Order.Items)).
			Str("status", string(step.Order.Status)).
			Msg("Order updated")
		return step, nil
	})
}

func firstTaskType(step *model.StepContext) model.TaskType {
	if step.Intent == nil {
		return ""
	}
	t, ok := step.Intent.FirstTask()
	if !ok {
		return ""
	}
	return model.NormalizeTaskType(string(t.Type))
}

// suggestFor offers the add-ons linked to the last product in the cart.
func suggestFor(ctx context.Context, d *Deps, step *model.StepContext) {
	last, ok := order.LastItem(step.Order)
	if !ok {
		return
	}
	p, err := d.Catalog.GetProductByName(ctx, step.TenantID, last.ProductName)
	if err != nil || p == nil {
		if err != nil {
			logx.Warn().Err(err).Str("product", last.ProductName).Msg("product lookup failed")
		}
		return
	}
	sugg, err := d.Rules.ContextualSuggestions(ctx, p.ID)
	if err != nil {
		logx.Warn().Err(err).Int64("product_id", p.ID).Msg("suggestion lookup failed")
		return
	}
	step.SuggestionsInfo = sugg
}
