package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-commerce/server/internal/core"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("APP_ENV", "production")
	t.Setenv("INTENT_MODEL", "gemini-custom")
	t.Setenv("RESPONSE_TIMEOUT", "45s")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CONVERSATION_TOOL_MAX_CALLS", "7")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "123")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, core.Production, cfg.Environment)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "gemini-custom", cfg.Responders.Intent.Model)
	assert.Equal(t, 45*time.Second, cfg.Responders.Response.Timeout)
	assert.Equal(t, "gemini-2.0-flash", cfg.Responders.Response.Model)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 7, cfg.Conversation.Tools.MaxCalls)
	assert.Equal(t, int64(123), cfg.Telegram.AdminChatID)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GEMINI_API_KEY=from-file\nHTTP_ADDR=:9090\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("GEMINI_API_KEY")
		_ = os.Unsetenv("HTTP_ADDR")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.LLM.GeminiAPIKey)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
}

func TestValidate(t *testing.T) {
	base := App{StoreBackend: BackendSQLite, SQLitePath: "x.db", StoreTimezone: "UTC"}
	base.LLM.GeminiAPIKey = "k"
	require.NoError(t, base.Validate())

	c := base
	c.LLM.GeminiAPIKey = ""
	assert.ErrorContains(t, c.Validate(), "GEMINI_API_KEY")

	c = base
	c.LLM.Provider = "openai"
	assert.ErrorContains(t, c.Validate(), "OPENAI_API_KEY")

	c = base
	c.StoreBackend = "postgres"
	assert.ErrorContains(t, c.Validate(), "STORE_BACKEND")

	c = base
	c.StoreTimezone = "Mars/Olympus"
	assert.ErrorContains(t, c.Validate(), "STORE_TIMEZONE")
}
