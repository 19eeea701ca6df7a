package alerting

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramAlerter sends operator alerts to a Telegram chat
type TelegramAlerter struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewTelegramAlerter creates a new alerter for the bot and chat
func NewTelegramAlerter(botToken, chatID string) (*TelegramAlerter, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newTelegramAlerter(bot, chatID)
}

func newTelegramAlerter(bot *tgbotapi.BotAPI, chatID string) (*TelegramAlerter, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	return &TelegramAlerter{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     3,
		retryDelayBase: time.Second,
	}, nil
}

// Alert sends message, retrying with a linear delay
func (a *TelegramAlerter) Alert(ctx context.Context, message string) error {
	msg := tgbotapi.NewMessage(a.chatID, "⚠️ *betledger*\n\n"+escapeMarkdownV2(message))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < a.maxRetries; i++ {
		_, err := a.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.retryDelayBase * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to send alert after %d retries: %w", a.maxRetries, lastErr)
}

var markdownV2Replacer = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
)

func escapeMarkdownV2(text string) string {
	return markdownV2Replacer.Replace(text)
}
