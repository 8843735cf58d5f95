package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// PollTimeout is how long a single getUpdates call may wait on the server.
const PollTimeout = 30 * time.Second

// Bot long-polls Telegram for operator commands.
type Bot struct {
	api *tgbotapi.BotAPI
	h   *Handlers
}

func NewBot(api *tgbotapi.BotAPI, svc PrayerService, allowedChat int64) *Bot {
	return &Bot{api: api, h: NewHandlers(api, svc, allowedChat)}
}

// Run polls until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(PollTimeout / time.Second)

	updates := b.api.GetUpdatesChan(u)
	log.Info().Str("bot", b.api.Self.UserName).Msg("telegram: polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			log.Info().Msg("telegram: polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			log.Debug().
				Int64("chat_id", update.Message.Chat.ID).
				Str("text", update.Message.Text).
				Msg("telegram: message received")
			b.h.HandleMessage(ctx, update.Message)
		}
	}
}
