// Package rules evaluates add-on suggestions and promotion conditions for a
// tenant's catalog.
package rules

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Chative-commerce/server/internal/agent/model"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// Store is the slice of the catalog the engine reads.
type Store interface {
	GetLinkedAddons(ctx context.Context, productID int64) ([]model.Addon, error)
	GetActivePromotions(ctx context.Context, tenantID string) ([]model.Promotion, error)
	GetProductPrice(ctx context.Context, tenantID, name string) (float64, error)
}

// EvalContext is what a condition can look at.
type EvalContext struct {
	Ctx      context.Context
	TenantID string
	Order    *model.OrderState
	Now      time.Time
	Prices   Store
}

// ConditionFunc decides whether a promotion applies. raw is the whole condition object.
type ConditionFunc func(ec EvalContext, raw json.RawMessage) (bool, error)

// ActionFunc transforms a price. raw is the whole action object.
type ActionFunc func(price float64, raw json.RawMessage) (float64, error)

type Engine struct {
	store Store
	// Now is the clock used by time-based conditions.
	Now func() time.Time

	conditions map[string]ConditionFunc
	actions    map[string]ActionFunc
}

func New(store Store) *Engine {
	e := &Engine{
		store:      store,
		Now:        time.Now,
		conditions: map[string]ConditionFunc{},
		actions:    map[string]ActionFunc{},
	}
	e.RegisterCondition("DIA_SEMANA", weekdayCondition)
	e.RegisterCondition("VALOR_MINIMO", minimumValueCondition)
	e.RegisterCondition("COMBO_PRODUTOS", comboCondition)
	e.RegisterAction("DESCONTO_PERCENTUAL", percentDiscount)
	e.RegisterAction("DESCONTO_FIXO", fixedDiscount)
	return e
}

// RegisterCondition adds or replaces a condition interpreter keyed by "tipo".
func (e *Engine) RegisterCondition(tipo string, fn ConditionFunc) {
	e.conditions[strings.ToUpper(tipo)] = fn
}

// RegisterAction adds or replaces an action interpreter keyed by "tipo".
func (e *Engine) RegisterAction(tipo string, fn ActionFunc) {
	e.actions[strings.ToUpper(tipo)] = fn
}

// ContextualSuggestions lists the add-ons linked to a product. Never nil.
func (e *Engine) ContextualSuggestions(ctx context.Context, productID int64) ([]model.Suggestion, error) {
	addons, err := e.store.GetLinkedAddons(ctx, productID)
	if err != nil {
		return []model.Suggestion{}, err
	}
	out := make([]model.Suggestion, 0, len(addons))
	for _, a := range addons {
		out = append(out, model.Suggestion{Name: a.Name, AdditionalPrice: a.AdditionalPrice})
	}
	logx.Debug().Int64("product_id", productID).Int("count", len(out)).Msg("contextual suggestions")
	return out, nil
}

// ApplicablePromotions returns the tenant's active promotions whose condition
// holds for the order at the engine's current time. When a promotion's action
// changes the order subtotal, the discounted total is attached.
func (e *Engine) ApplicablePromotions(ctx context.Context, tenantID string, o *model.OrderState) ([]model.ApplicablePromotion, error) {
	promos, err := e.store.GetActivePromotions(ctx, tenantID)
	if err != nil {
		return []model.ApplicablePromotion{}, err
	}
	ec := EvalContext{Ctx: ctx, TenantID: tenantID, Order: o, Now: e.now(), Prices: e.store}

	subtotal := e.subtotal(ec)
	out := make([]model.ApplicablePromotion, 0, len(promos))
	for _, p := range promos {
		if !p.Active || !e.Evaluate(ec, p.ConditionJSON) {
			continue
		}
		ap := model.ApplicablePromotion{Name: p.Name, Description: p.DescriptionAI, ActionJSON: p.ActionJSON}
		if subtotal > 0 {
			if discounted := e.Apply(p.ActionJSON, subtotal); discounted != subtotal {
				ap.Subtotal = subtotal
				ap.DiscountedTotal = &discounted
			}
		}
		out = append(out, ap)
	}
	return out, nil
}

// subtotal prices the order. Zero when it cannot be priced.
func (e *Engine) subtotal(ec EvalContext) float64 {
	if ec.Order == nil || len(ec.Order.Items) == 0 || ec.Prices == nil {
		return 0
	}
	v, err := orderSubtotal(ec)
	if err != nil {
		logx.Debug().Err(err).Str("tenant_id", ec.TenantID).Msg("order subtotal unavailable")
		return 0
	}
	return v
}

type typed struct {
	Tipo string `json:"tipo"`
}

// Evaluate runs the condition interpreter. Empty or null conditions hold;
// unknown types and malformed input do not.
func (e *Engine) Evaluate(ec EvalContext, conditionJSON string) (ok bool) {
	s := strings.TrimSpace(conditionJSON)
	if s == "" || s == "null" || s == "{}" {
		return true
	}
	var t typed
	if err := json.Unmarshal([]byte(s), &t); err != nil {
		logx.Debug().Err(err).Msg("malformed promotion condition")
		return false
	}
	fn, found := e.conditions[strings.ToUpper(t.Tipo)]
	if !found {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			logx.Warn().Interface("panic", r).Str("tipo", t.Tipo).Msg("condition interpreter panicked")
			ok = false
		}
	}()
	ok, err := fn(ec, json.RawMessage(s))
	if err != nil {
		logx.Debug().Err(err).Str("tipo", t.Tipo).Msg("condition evaluation failed")
		return false
	}
	return ok
}

// Apply runs the action interpreter. Unknown or malformed actions return price unchanged.
func (e *Engine) Apply(actionJSON string, price float64) float64 {
	s := strings.TrimSpace(actionJSON)
	if s == "" || s == "null" {
		return price
	}
	var t typed
	if err := json.Unmarshal([]byte(s), &t); err != nil {
		return price
	}
	fn, found := e.actions[strings.ToUpper(t.Tipo)]
	if !found {
		return price
	}
	out, err := fn(price, json.RawMessage(s))
	if err != nil {
		return price
	}
	return out
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
