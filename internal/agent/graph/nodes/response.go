package nodes

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-commerce/server/internal/agent/graph/parsers"
	"github.com/Chative-commerce/server/internal/agent/graph/prompts"
	"github.com/Chative-commerce/server/internal/agent/llm"
	"github.com/Chative-commerce/server/internal/agent/model"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// NewResponseAssemblerNode renders the formulator prompt over the step and
// the stored transcript.
func NewResponseAssemblerNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, step *model.StepContext) ([]*schema.Message, error) {
		_, recent, err := loadRun(ctx)
		if err != nil {
			return nil, err
		}
		system, err := prompts.RenderResponseSystem(ctx, step.Personality, step.StoreName, prompts.NewResponseContext(step), d.ToolNames)
		if err != nil {
			return nil, fmt.Errorf("generate response prompt: %w", err)
		}
		return d.Messages.BuildResponseContext(system, recent, step.Text), nil
	})
}

// NewResponseChatModelNode wraps the formulator so a failed call yields an
// empty reply instead of aborting the run.
func NewResponseChatModelNode(m einomodel.BaseChatModel) einomodel.BaseChatModel {
	return &fallbackModel{inner: m}
}

type fallbackModel struct {
	inner einomodel.BaseChatModel
}

func (f *fallbackModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	out, err := f.inner.Generate(ctx, input, opts...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		logx.Error().Err(err).Msg("response formulator failed")
		return schema.AssistantMessage("", nil), nil
	}
	if out == nil {
		return schema.AssistantMessage("", nil), nil
	}
	return out, nil
}

func (f *fallbackModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

// NewResponseChatModelPreHandler accumulates the formulator transcript and
// adds a wrap-up notice once the tool budget is spent.
func NewResponseChatModelPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		// Some providers drop tool_call_id on tool results.
		if len(in) > 0 {
			last := in[len(in)-1]
			if last != nil && last.Role == schema.Tool && strings.TrimSpace(last.ToolCallID) == "" {
				for i := len(state.History) - 1; i >= 0; i-- {
					msg := state.History[i]
					if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
						continue
					}
					if id := msg.ToolCalls[0].ID; strings.TrimSpace(id) != "" {
						last.ToolCallID = id
					}
					break
				}
			}
		}

		state.History = append(state.History, in...)

		if checkAndMarkToolLimit(state, maxToolCalls) {
			maxToolCalls = normalizeMaxToolCalls(maxToolCalls)
			state.History = append(state.History, &schema.Message{
				Role: schema.System,
				Content: fmt.Sprintf(
					"AVISO DO SISTEMA: o limite de %d consultas ao catálogo foi atingido. "+
						"Responda agora com as informações que você já tem, no formato JSON combinado.",
					maxToolCalls,
				),
			})
		}

		logx.Debug().Str("session_id", state.SessionID).Int("messages", len(state.History)).Msg("Formulating response")
		return state.History, nil
	}
}

// NewResponseChatModelPostHandler records the model turn and its cost.
func NewResponseChatModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if out == nil {
			return out, nil
		}
		if cost := llm.UsageCost(out); cost > 0 {
			state.TotalCostUSD += cost
			logx.Debug().
				Str("session_id", state.SessionID).
				Str("node", NodeResponseChatModel).
				Str("model", modelName).
				Float64("total_cost_usd", state.TotalCostUSD).
				Msg("LLM usage")
		}

		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
		}
		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		}
		return out, nil
	}
}

// NewToolExecutorCondition sends tool calls to the executor until the budget
// is exhausted.
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		_ = compose.ProcessState[*model.AppState](ctx, func(_ context.Context, state *model.AppState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})

		if limitReached {
			logx.Debug().Msg("Tool limit reached previously - finalizing")
			return NodeFinalizer, nil
		}
		if input != nil && len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}
		return NodeFinalizer, nil
	}
}

func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		exceeded := incrementToolCallAndCheck(state, maxToolCalls)
		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Str("session_id", state.SessionID).
			Msg("Tool execution attempt")
		if exceeded {
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", normalizeMaxToolCalls(maxToolCalls)).
				Str("session_id", state.SessionID).
				Msg("Tool call limit exceeded - flagging and continuing")
		}
		return in, nil
	}
}

// NewFinalizerNode turns the formulator output into the reply and records it.
func NewFinalizerNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (*model.AIResponse, error) {
		step, _, err := loadRun(ctx)
		if err != nil {
			return nil, err
		}

		var content string
		if msg != nil {
			content = msg.Content
		}
		out, structured := parsers.ParseFormulatorOutput(content)

		resp := step.Result()
		resp.HumanHandoff = resp.HumanHandoff || out.HumanHandoff
		resp.SendMenu = resp.SendMenu || out.SendMenu
		switch {
		case out.ResponseText != "":
			resp.ResponseText = out.ResponseText
		case strings.TrimSpace(resp.ResponseText) == "":
			resp.ResponseText = MsgGeneric
		}
		resp.Formulated = true
		resp.Order = step.Order

		if !structured {
			logx.Debug().Str("session_id", step.SessionID).Msg("Formulator output was not structured")
		}
		if err := d.Messages.SaveResponse(ctx, step.SessionID, resp.ResponseText); err != nil {
			logx.Error().Err(err).Str("session_id", step.SessionID).Msg("Error saving assistant response")
		}
		return resp, nil
	})
}
