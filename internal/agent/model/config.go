package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL time.Duration `envconfig:"CONVERSATION_TTL" default:"24h"`
	NLU struct {
		MaxTurns int `envconfig:"CONVERSATION_NLU_MAX_TURNS" default:"5"`
	}
	Response struct {
		MaxTurns int `envconfig:"CONVERSATION_RESPONSE_MAX_TURNS" default:"10"`
	}
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"5"`
	}
}

// ChatModelConfig configures one responder. Nested under a prefix, so
// Intent.Model reads INTENT_MODEL.
type ChatModelConfig struct {
	Model       string        `envconfig:"MODEL"`
	MaxTokens   int           `envconfig:"MAX_TOKENS" default:"2000"`
	Temperature float32       `envconfig:"TEMPERATURE" default:"0.2"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"30s"`
}

// WithDefaultModel fills Model when unset.
func (c ChatModelConfig) WithDefaultModel(name string) ChatModelConfig {
	if c.Model == "" {
		c.Model = name
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

const (
	DefaultLiteModel = "gemini-2.0-flash-lite"
	DefaultModel     = "gemini-2.0-flash"
)

// ResponderConfig groups the chat model settings of every responder.
type ResponderConfig struct {
	Intent   ChatModelConfig `envconfig:"INTENT"`
	Order    ChatModelConfig `envconfig:"ORDER"`
	File     ChatModelConfig `envconfig:"FILE"`
	Response ChatModelConfig `envconfig:"RESPONSE"`
	Signal   ChatModelConfig `envconfig:"SIGNAL"`
}

// Normalize applies per-responder model defaults.
func (r ResponderConfig) Normalize() ResponderConfig {
	r.Intent = r.Intent.WithDefaultModel(DefaultLiteModel)
	r.Signal = r.Signal.WithDefaultModel(DefaultLiteModel)
	r.Order = r.Order.WithDefaultModel(DefaultModel)
	r.File = r.File.WithDefaultModel(DefaultModel)
	r.Response = r.Response.WithDefaultModel(DefaultModel)
	return r
}
