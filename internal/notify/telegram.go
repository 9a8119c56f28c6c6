package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"

	"github.com/Chative-commerce/server/internal/agent/model"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// TelegramConfig is read from TELEGRAM_*; an empty token disables the alert.
type TelegramConfig struct {
	BotToken    string        `envconfig:"TELEGRAM_BOT_TOKEN"`
	AdminChatID int64         `envconfig:"TELEGRAM_ADMIN_CHAT_ID"`
	Timeout     time.Duration `envconfig:"TELEGRAM_TIMEOUT" default:"10s"`
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.AdminChatID != 0
}

// Telegram sends handoff alerts to the admin chat.
type Telegram struct {
	bot     *gotgbot.Bot
	chatID  int64
	timeout time.Duration
}

// NewTelegram creates the bot client. opts may be nil.
func NewTelegram(cfg TelegramConfig, opts *gotgbot.BotOpts) (*Telegram, error) {
	bot, err := gotgbot.NewBot(cfg.BotToken, opts)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Telegram{bot: bot, chatID: cfg.AdminChatID, timeout: timeout}, nil
}

func (t *Telegram) NotifyHandoff(ctx context.Context, ev model.HandoffEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.SendMessage(t.chatID, Format(ev), &gotgbot.SendMessageOpts{
		RequestOpts: &gotgbot.RequestOpts{Timeout: t.timeout},
	})
	if err != nil {
		logx.Warn().Err(err).Int64("chat_id", t.chatID).Msg("telegram handoff alert failed")
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
