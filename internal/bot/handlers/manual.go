package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mkazakova/remindbot/internal/models"
	"github.com/mkazakova/remindbot/internal/notify"
	"github.com/mkazakova/remindbot/internal/repository"
)

func (h *Handlers) handleManualMenu(ctx context.Context, msg *tgbotapi.Message) {
	events, err := h.repos.Event.GetActiveByCreator(ctx, msg.From.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to list events")
		h.sendMessage(msg.Chat.ID, "❌ Something went wrong while fetching your events")
		return
	}
	if len(events) == 0 {
		h.sendMessage(msg.Chat.ID, "📭 You have no active events to send reminders for.")
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID,
		"📢 Pick an event to send a reminder for:\n⚠️ It goes to every responsible person")
	out.ReplyMarkup = eventMenu(events, "manual")
	if _, err := h.api.Send(out); err != nil {
		h.log.Error().Err(err).Msg("failed to send manual menu")
	}
}

// handleManualCallback runs an operator-triggered dispatch. This path must
// never advance the event's recurrence state, whatever the send outcome.
func (h *Handlers) handleManualCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, eventID int64) {
	event, err := h.repos.Event.GetByID(ctx, eventID, cb.From.ID)
	if errors.Is(err, repository.ErrNotFound) {
		h.editCallbackMessage(cb, "❌ Event not found or already deleted")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to load event")
		h.editCallbackMessage(cb, "❌ Something went wrong")
		return
	}

	outcomes, err := h.dispatcher.Dispatch(ctx, event, cb.From.ID, true)
	if err != nil {
		h.log.Error().Err(err).Int64("event_id", eventID).Msg("manual dispatch failed")
		h.editCallbackMessage(cb, "❌ Could not send the reminder")
		return
	}

	h.editCallbackMessage(cb, manualSummary(event, outcomes))
}

func manualSummary(event *models.Event, outcomes map[models.NotificationChannel]notify.Outcome) string {
	var sb strings.Builder
	sb.WriteString("📤 Delivery status:\n\n")
	for _, ch := range []models.NotificationChannel{models.ChannelTelegram, models.ChannelEmail} {
		outcome, ok := outcomes[ch]
		if !ok || outcome.Status == notify.OutcomeSkipped {
			continue
		}
		mark := "✅"
		if outcome.Status == notify.OutcomeFailed {
			mark = "❌"
		}
		switch ch {
		case models.ChannelTelegram:
			fmt.Fprintf(&sb, "%s Telegram (%d/%d recipients)\n", mark, outcome.Delivered, outcome.Attempts)
		case models.ChannelEmail:
			fmt.Fprintf(&sb, "%s Email (%s)\n", mark, event.RecipientEmail)
		}
	}
	return sb.String()
}
