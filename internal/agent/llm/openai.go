package llm

import (
	"context"
	"errors"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIChatModel adapts go-openai to the Eino ChatModel interface.
type OpenAIChatModel struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	tools       []openai.Tool
}

var _ einomodel.ChatModel = (*OpenAIChatModel)(nil)

func NewOpenAIChatModel(client *openai.Client, modelName string, temperature float32, maxTokens int) *OpenAIChatModel {
	return &OpenAIChatModel{client: client, model: modelName, temperature: temperature, maxTokens: maxTokens}
}

func (m *OpenAIChatModel) BindTools(tools []*schema.ToolInfo) error {
	converted := make([]openai.Tool, 0, len(tools))
	for _, ti := range tools {
		if ti == nil {
			continue
		}
		def := &openai.FunctionDefinition{Name: ti.Name, Description: ti.Desc}
		if ti.ParamsOneOf != nil {
			params, err := ti.ParamsOneOf.ToJSONSchema()
			if err != nil {
				return fmt.Errorf("tool %s schema: %w", ti.Name, err)
			}
			def.Parameters = params
		}
		converted = append(converted, openai.Tool{Type: openai.ToolTypeFunction, Function: def})
	}
	m.tools = converted
	return nil
}

func (m *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	temp, maxTokens, name := m.temperature, m.maxTokens, m.model
	o := einomodel.GetCommonOptions(&einomodel.Options{Temperature: &temp, MaxTokens: &maxTokens, Model: &name}, opts...)

	req := openai.ChatCompletionRequest{
		Model:    *o.Model,
		Messages: toOpenAIMessages(input),
		Tools:    m.tools,
	}
	if o.Temperature != nil {
		req.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		req.MaxTokens = *o.MaxTokens
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty choices")
	}
	choice := resp.Choices[0]

	out := &schema.Message{
		Role:    schema.Assistant,
		Content: choice.Message.Content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: string(choice.FinishReason),
			Usage: &schema.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		},
	}
	for i, tc := range choice.Message.ToolCalls {
		idx := i
		out.ToolCalls = append(out.ToolCalls, schema.ToolCall{
			Index: &idx,
			ID:    tc.ID,
			Type:  string(tc.Type),
			Function: schema.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return out, nil
}

func (m *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func toOpenAIMessages(in []*schema.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(in))
	for _, msg := range in {
		if msg == nil {
			continue
		}
		cm := openai.ChatCompletionMessage{
			Role:       string(msg.Role),
			ToolCallID: msg.ToolCallID,
		}
		if len(msg.MultiContent) > 0 {
			for _, p := range msg.MultiContent {
				switch p.Type {
				case schema.ChatMessagePartTypeImageURL:
					if p.ImageURL != nil {
						cm.MultiContent = append(cm.MultiContent, openai.ChatMessagePart{
							Type:     openai.ChatMessagePartTypeImageURL,
							ImageURL: &openai.ChatMessageImageURL{URL: p.ImageURL.URL},
						})
					}
				default:
					cm.MultiContent = append(cm.MultiContent, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeText,
						Text: p.Text,
					})
				}
			}
		} else {
			cm.Content = msg.Content
		}
		for _, tc := range msg.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out = append(out, cm)
	}
	return out
}
