package recorder

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"

	"github.com/terzinodays/arbiter-go/internal/config"
	"github.com/terzinodays/arbiter-go/internal/models"
)

// TelegramNotifier pushes alerts to a Telegram chat. Without a bot token it
// is a no-op, so the engine can run unconfigured.
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
	logger *logrus.Logger
}

// NewTelegramNotifier creates a notifier. An empty token disables delivery.
func NewTelegramNotifier(cfg config.TelegramConfig, logger *logrus.Logger) *TelegramNotifier {
	if logger == nil {
		logger = logrus.New()
	}

	var telegramBot *bot.Bot
	if cfg.BotToken != "" {
		b, err := bot.New(cfg.BotToken)
		if err != nil {
			logger.WithError(err).Warn("Telegram bot initialization failed, alerts will not be delivered")
		} else {
			telegramBot = b
		}
	}

	return &TelegramNotifier{
		bot:    telegramBot,
		chatID: cfg.ChatID,
		logger: logger,
	}
}

// Notify delivers one alert. Failures are logged and swallowed; alert
// delivery never steers engine control flow.
func (n *TelegramNotifier) Notify(ctx context.Context, alert models.Alert) {
	if n.bot == nil || n.chatID == 0 {
		return
	}

	text := fmt.Sprintf("%s %s\n%s", severityEmoji(alert.Severity), alert.Title, alert.Message)

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   text,
	})
	if err != nil {
		n.logger.WithError(err).WithField("title", alert.Title).Warn("Failed to deliver Telegram alert")
	}
}

func severityEmoji(severity models.AlertSeverity) string {
	switch severity {
	case models.AlertSuccess:
		return "✅"
	case models.AlertWarning:
		return "⚠️"
	case models.AlertError:
		return "🚨"
	default:
		return "ℹ️"
	}
}
