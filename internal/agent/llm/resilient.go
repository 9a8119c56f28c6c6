package llm

import (
	"context"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/core/retry"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// ExtraUsageCost is the Message.Extra key carrying the USD cost of a call.
const ExtraUsageCost = "usage_cost"

// Resilient bounds every call with a timeout and retries transient failures.
type Resilient struct {
	inner   einomodel.ChatModel
	name    string
	model   string
	timeout time.Duration
	policy  retry.Policy
}

var _ einomodel.ChatModel = (*Resilient)(nil)

func NewResilient(inner einomodel.ChatModel, name, modelName string, timeout time.Duration, policy retry.Policy) *Resilient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resilient{inner: inner, name: name, model: modelName, timeout: timeout, policy: policy}
}

func (r *Resilient) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	var out *schema.Message
	err := retry.Do(ctx, "llm."+r.name, r.policy, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		msg, err := r.inner.Generate(callCtx, input, opts...)
		if err != nil {
			return err
		}
		out = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.account(out)
	return out, nil
}

// Stream is not retried: a partially consumed stream cannot be replayed.
func (r *Resilient) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return r.inner.Stream(ctx, input, opts...)
}

func (r *Resilient) BindTools(tools []*schema.ToolInfo) error {
	return r.inner.BindTools(tools)
}

func (r *Resilient) account(msg *schema.Message) {
	if msg == nil || msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return
	}
	usage := msg.ResponseMeta.Usage
	_, _, total := model.ComputeCost(usage, model.ResolvePricing(r.model))
	if msg.Extra == nil {
		msg.Extra = map[string]any{}
	}
	msg.Extra[ExtraUsageCost] = total

	logx.Debug().
		Str("responder", r.name).
		Str("model", r.model).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Float64("cost_usd", total).
		Msg("llm usage")
}

// UsageCost reads the cost recorded by Resilient, zero when absent.
func UsageCost(msg *schema.Message) float64 {
	if msg == nil || msg.Extra == nil {
		return 0
	}
	v, _ := msg.Extra[ExtraUsageCost].(float64)
	return v
}
