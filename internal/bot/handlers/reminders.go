package handlers

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mkazakova/remindbot/internal/render"
	"github.com/mkazakova/remindbot/internal/selector"
)

func (h *Handlers) handleReminders(ctx context.Context, msg *tgbotapi.Message) {
	events, err := h.repos.Event.GetActiveByCreator(ctx, msg.From.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to list events")
		h.sendMessage(msg.Chat.ID, "❌ Something went wrong while fetching reminders")
		return
	}

	now := time.Now().In(h.loc)
	due := selector.Partition(events, now, h.lookaheadDays)
	if due.Empty() {
		h.sendMessage(msg.Chat.ID, "📭 No active reminders")
		return
	}

	h.sendChunked(msg.Chat.ID, render.DueListing(due, now))
}
