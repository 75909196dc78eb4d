package notify

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mkazakova/remindbot/internal/models"
	"github.com/mkazakova/remindbot/internal/render"
)

// TelegramSender delivers reminders as chat messages. Recipients are
// numeric chat ids; a blocked bot or a bad id fails that recipient only.
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

func (s *TelegramSender) Channel() models.NotificationChannel {
	return models.ChannelTelegram
}

func (s *TelegramSender) Send(ctx context.Context, recipient string, msg render.Message) error {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", recipient, err)
	}

	out := tgbotapi.NewMessage(chatID, msg.Chat)
	out.ParseMode = tgbotapi.ModeHTML
	if _, err := s.api.Send(out); err != nil {
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return nil
}
