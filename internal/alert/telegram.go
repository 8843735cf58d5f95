package alert

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender is the subset of *tgbotapi.BotAPI used for alerts.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewTelegramAPI connects a bot API whose requests are bounded by timeout.
func NewTelegramAPI(token string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	return newTelegramAPI(token, tgbotapi.APIEndpoint, timeout)
}

func newTelegramAPI(token, endpoint string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
}

// TelegramChannel messages an admin chat.
type TelegramChannel struct {
	api    TelegramSender
	chatID int64
}

// NewTelegramChannel returns nil without a sender or chat id.
func NewTelegramChannel(api TelegramSender, chatID int64) *TelegramChannel {
	if api == nil || chatID == 0 {
		return nil
	}
	return &TelegramChannel{api: api, chatID: chatID}
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Send(ctx context.Context, a Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	esc := func(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s) }

	text := fmt.Sprintf("🚨 *%s*\n\n%s\n\n_Service:_ %s\n_Time:_ %s",
		esc(a.Subject), esc(a.Message), esc(a.Service), esc(a.SentAt.Format(time.RFC3339)))

	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send to %d: %w", c.chatID, err)
	}
	return nil
}
