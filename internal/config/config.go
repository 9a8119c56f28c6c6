// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Chative-commerce/server/internal/agent/llm"
	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/core"
	"github.com/Chative-commerce/server/internal/core/retry"
	"github.com/Chative-commerce/server/internal/freight"
	"github.com/Chative-commerce/server/internal/notify"
	"github.com/Chative-commerce/server/internal/telemetry"
	pkgmongo "github.com/Chative-commerce/server/pkg/mongo"
	pkgredis "github.com/Chative-commerce/server/pkg/redis"
)

const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// App defines every configurable parameter, sourced from environment
// variables (loaded from .env for local runs).
type App struct {
	Environment core.Environment `envconfig:"APP_ENV" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`
	HTTPAddr    string           `envconfig:"HTTP_ADDR" default:":8080"`
	// RequestTimeout bounds one webhook call, pipeline included.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"120s"`
	// StoreTimezone is the clock used for the daily greeting.
	StoreTimezone string `envconfig:"STORE_TIMEZONE" default:"America/Sao_Paulo"`

	// Infrastructure
	StoreBackend string `envconfig:"STORE_BACKEND" default:"sqlite"`
	SQLitePath   string `envconfig:"SQLITE_PATH" default:"chative.db"`
	Mongo        pkgmongo.Config
	Redis        pkgredis.Config
	SessionTTL   time.Duration `envconfig:"SESSION_TTL" default:"72h"`

	// LLM provider
	LLM          llm.Config
	// Responders is read without a prefix so INTENT_MODEL etc. resolve.
	Responders   model.ResponderConfig `ignored:"true"`
	Retry        retry.Policy
	Conversation model.ConversationConfig

	Maps     freight.Config
	Telegram notify.TelegramConfig
	Tracing  telemetry.Config
}

// Load reads .env when present and fills App from the environment.
func Load(envFiles ...string) (*App, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	if err := envconfig.Process("", &cfg.Responders); err != nil {
		return nil, fmt.Errorf("failed to process responder config: %w", err)
	}
	cfg.Responders = cfg.Responders.Normalize()
	return &cfg, cfg.Validate()
}

// Validate reports configuration that makes startup impossible.
func (c *App) Validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "", llm.ProviderGemini:
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	case llm.ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	switch c.StoreBackend {
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves StoreTimezone.
func (c *App) Location() (*time.Location, error) {
	if c.StoreTimezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_TIMEZONE %q: %w", c.StoreTimezone, err)
	}
	return loc, nil
}
