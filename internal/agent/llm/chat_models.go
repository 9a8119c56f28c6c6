// Package llm builds the chat models used by the responders and wraps them
// with per-call timeouts, retries and cost accounting.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/genai"

	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/core/retry"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config selects the provider and its credentials.
type Config struct {
	Provider      string `envconfig:"LLM_PROVIDER" default:"gemini"`
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiAPIKey2 string `envconfig:"GEMINI_API_KEY_2"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
}

// ChatModels holds one chat model per responder plus the media backend.
type ChatModels struct {
	Intent   einomodel.ChatModel
	Order    einomodel.ChatModel
	Signal   einomodel.ChatModel
	Response einomodel.ChatModel
	Media    MediaAnalyzer

	ResponseModelName string
}

func tracedHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// NewChatModels creates every responder model for the configured provider.
func NewChatModels(ctx context.Context, cfg Config, rc model.ResponderConfig, policy retry.Policy) (*ChatModels, error) {
	rc = rc.Normalize()
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		return newGeminiModels(ctx, cfg, rc, policy)
	case ProviderOpenAI:
		return newOpenAIModels(cfg, rc, policy)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func newGenaiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: tracedHTTPClient(),
	}
	if baseURL != "" {
		clientCfg.HTTPOptions.BaseURL = baseURL
	}
	return genai.NewClient(ctx, clientCfg)
}

func newGeminiModels(ctx context.Context, cfg Config, rc model.ResponderConfig, policy retry.Policy) (*ChatModels, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for provider %q", ProviderGemini)
	}
	client, err := newGenaiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiBaseURL)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	mediaClient := client
	if cfg.GeminiAPIKey2 != "" {
		if mediaClient, err = newGenaiClient(ctx, cfg.GeminiAPIKey2, cfg.GeminiBaseURL); err != nil {
			return nil, fmt.Errorf("error creating Gemini media client: %w", err)
		}
	}

	build := func(name string, c model.ChatModelConfig) (einomodel.ChatModel, error) {
		temp := c.Temperature
		maxTokens := c.MaxTokens
		cm, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client:      client,
			Model:       c.Model,
			Temperature: &temp,
			MaxTokens:   &maxTokens,
		})
		if err != nil {
			logx.Error().Err(err).Str("responder", name).Msg("Error creating chat model")
			return nil, fmt.Errorf("error creating %s model: %w", name, err)
		}
		return NewResilient(cm, name, c.Model, c.Timeout, policy), nil
	}

	out := &ChatModels{ResponseModelName: rc.Response.Model}
	if out.Intent, err = build("intent", rc.Intent); err != nil {
		return nil, err
	}
	if out.Order, err = build("order", rc.Order); err != nil {
		return nil, err
	}
	if out.Signal, err = build("signal", rc.Signal); err != nil {
		return nil, err
	}
	if out.Response, err = build("response", rc.Response); err != nil {
		return nil, err
	}
	out.Media = NewGeminiMedia(mediaClient, rc.File.Model)
	return out, nil
}

func newOpenAIModels(cfg Config, rc model.ResponderConfig, policy retry.Policy) (*ChatModels, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for provider %q", ProviderOpenAI)
	}
	oc := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = cfg.OpenAIBaseURL
	}
	oc.HTTPClient = tracedHTTPClient()
	client := openai.NewClientWithConfig(oc)

	// Gemini model names are meaningless here; fall back to gpt-4o-mini.
	pick := func(c model.ChatModelConfig) model.ChatModelConfig {
		if strings.HasPrefix(c.Model, "gemini") {
			c.Model = openai.GPT4oMini
		}
		return c
	}
	build := func(name string, c model.ChatModelConfig) einomodel.ChatModel {
		c = pick(c)
		return NewResilient(NewOpenAIChatModel(client, c.Model, c.Temperature, c.MaxTokens), name, c.Model, c.Timeout, policy)
	}

	return &ChatModels{
		Intent:            build("intent", rc.Intent),
		Order:             build("order", rc.Order),
		Signal:            build("signal", rc.Signal),
		Response:          build("response", rc.Response),
		Media:             NewOpenAIMedia(client, pick(rc.File).Model),
		ResponseModelName: pick(rc.Response).Model,
	}, nil
}

// BindToolsToResponseModel binds tools to the response chat model.
func (cm *ChatModels) BindToolsToResponseModel(tools []*schema.ToolInfo) error {
	if err := cm.Response.BindTools(tools); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return fmt.Errorf("failed to bind tools: %w", err)
	}
	logx.Debug().Int("tools", len(tools)).Msg("Successfully bound tools to response model")
	return nil
}
