package prompts

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-commerce/server/internal/agent/model"
)

//go:embed template/response_prompt.txt
var responsePrompt string

// DefaultPersonality is used when the tenant has none configured.
const DefaultPersonality = "Você é um assistente de IA prestativo."

// ToolNames are the catalog tools advertised to the formulator.
type ToolNames struct {
	ProductQuery string
	Addons       string
}

// ResponseContext is the structured payload handed to the formulator.
type ResponseContext struct {
	Draft          string                      `json:"draft,omitempty"`
	Order          *model.OrderState           `json:"order"`
	Suggestions    []model.Suggestion          `json:"suggestions,omitempty"`
	Promotions     []model.ApplicablePromotion `json:"promotions,omitempty"`
	Freight        *model.FreightResult        `json:"freight,omitempty"`
	FileSummary    *model.FileSummary          `json:"file_summary,omitempty"`
	HumanHandoff   bool                        `json:"human_handoff"`
	SendMenu       bool                        `json:"send_menu"`
	Branch         string                      `json:"branch,omitempty"`
	DeferredTasks  []model.Task                `json:"deferred_tasks,omitempty"`
	UserMessage    string                      `json:"user_message"`
	ClientLocation bool                        `json:"client_location_available"`
}

// NewResponseContext snapshots what the formulator needs from a step.
func NewResponseContext(s *model.StepContext) ResponseContext {
	return ResponseContext{
		Draft:          s.Draft.ResponseText,
		Order:          s.Order,
		Suggestions:    s.SuggestionsInfo,
		Promotions:     s.PromotionsInfo,
		Freight:        s.FreightInfo,
		FileSummary:    s.Draft.FileSummary,
		HumanHandoff:   s.Draft.HumanHandoff,
		SendMenu:       s.Draft.SendMenu,
		Branch:         s.Branch,
		DeferredTasks:  s.PendingTasks,
		UserMessage:    s.Text,
		ClientLocation: s.HasCoordinates(),
	}
}

// RenderResponseSystem renders the formulator system prompt.
func RenderResponseSystem(ctx context.Context, personality, storeName string, rc ResponseContext, tools ToolNames) (string, error) {
	if personality == "" {
		personality = DefaultPersonality
	}
	ctxJSON, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("response context: %w", err)
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(responsePrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"Personality":      personality,
		"StoreName":        storeName,
		"ContextJSON":      string(ctxJSON),
		"HasDeferred":      len(rc.DeferredTasks) > 0,
		"ProductQueryTool": tools.ProductQuery,
		"AddonsTool":       tools.Addons,
	})
	if err != nil {
		return "", fmt.Errorf("response prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("response prompt render: empty result")
	}
	return msgs[0].Content, nil
}
