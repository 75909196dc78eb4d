package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mkazakova/remindbot/internal/models"
	"github.com/mkazakova/remindbot/internal/render"
	"github.com/mkazakova/remindbot/internal/repository"
	"github.com/mkazakova/remindbot/internal/selector"
)

func groupedForMenu(events []*models.Event) []selector.FileGroup {
	return selector.GroupByFile(events)
}

func (h *Handlers) handleEventList(ctx context.Context, msg *tgbotapi.Message) {
	events, err := h.repos.Event.GetActiveByCreator(ctx, msg.From.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to list events")
		h.sendMessage(msg.Chat.ID, "❌ Something went wrong while fetching your events")
		return
	}
	if len(events) == 0 {
		h.sendMessage(msg.Chat.ID, "📭 You have no active events.")
		return
	}
	h.sendChunked(msg.Chat.ID, render.EventListing(events))
}

func (h *Handlers) handleDeleteMenu(ctx context.Context, msg *tgbotapi.Message) {
	events, err := h.repos.Event.GetActiveByCreator(ctx, msg.From.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to list events")
		h.sendMessage(msg.Chat.ID, "❌ Something went wrong while fetching your events")
		return
	}
	if len(events) == 0 {
		h.sendMessage(msg.Chat.ID, "📭 No events to delete.")
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, "🗑 Pick an event to delete:")
	out.ReplyMarkup = eventMenu(events, "delete")
	if _, err := h.api.Send(out); err != nil {
		h.log.Error().Err(err).Msg("failed to send delete menu")
	}
}

func (h *Handlers) handleDeleteCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, eventID int64) {
	err := h.repos.Event.SoftDelete(ctx, eventID, cb.From.ID)
	if errors.Is(err, repository.ErrNotFound) {
		h.editCallbackMessage(cb, "❌ Event not found.")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to delete event")
		h.editCallbackMessage(cb, "❌ Something went wrong while deleting the event")
		return
	}

	// Best effort: a job that already fired completes on its own.
	if _, err := h.scheduler.Cancel(ctx, eventID); err != nil {
		h.log.Warn().Err(err).Int64("event_id", eventID).Msg("failed to cancel reminder job")
	}
	h.editCallbackMessage(cb, "✅ Event deleted.")
}

func (h *Handlers) handleUpdateMenu(ctx context.Context, msg *tgbotapi.Message) {
	events, err := h.repos.Event.GetActiveByCreator(ctx, msg.From.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to list events")
		h.sendMessage(msg.Chat.ID, "❌ Something went wrong while fetching your events")
		return
	}
	if len(events) == 0 {
		h.sendMessage(msg.Chat.ID, "📭 You have no active events.")
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, "✏️ Pick an event to change:")
	out.ReplyMarkup = eventMenu(events, "update")
	if _, err := h.api.Send(out); err != nil {
		h.log.Error().Err(err).Msg("failed to send update menu")
	}
}

func (h *Handlers) handleUpdateCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, eventID int64) {
	event, err := h.repos.Event.GetByID(ctx, eventID, cb.From.ID)
	if errors.Is(err, repository.ErrNotFound) {
		h.editCallbackMessage(cb, "❌ Event not found.")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to load event")
		h.editCallbackMessage(cb, "❌ Something went wrong")
		return
	}

	h.mu.Lock()
	h.pendingUpdates[cb.From.ID] = eventID
	h.mu.Unlock()

	h.editCallbackMessage(cb, fmt.Sprintf(
		"🔄 Updating %q\nCurrent date: %s\n\n📅 Send the new date as DD.MM.YYYY",
		event.EventName, event.EventDate.Format("02.01.2006"),
	))
}

// handleNewDate consumes a plain text message as the new date for a
// pending event update, if the user has one in progress.
func (h *Handlers) handleNewDate(ctx context.Context, msg *tgbotapi.Message) {
	h.mu.Lock()
	eventID, ok := h.pendingUpdates[msg.From.ID]
	if ok {
		delete(h.pendingUpdates, msg.From.ID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	newDate, err := time.Parse("02.01.2006", msg.Text)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "❌ Bad date format, expected DD.MM.YYYY")
		return
	}

	event, err := h.repos.Event.GetByID(ctx, eventID, msg.From.ID)
	if errors.Is(err, repository.ErrNotFound) {
		h.sendMessage(msg.Chat.ID, "❌ Event not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to load event")
		h.sendMessage(msg.Chat.ID, "❌ Something went wrong while updating the event")
		return
	}

	oldDate := event.EventDate
	date := models.DateOnly(newDate)
	nextReminder := event.ReminderAt(date, h.loc)

	updated, err := h.repos.Event.UpdateDate(ctx, eventID, msg.From.ID, date, nextReminder)
	if err != nil {
		h.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to update event date")
		h.sendMessage(msg.Chat.ID, "❌ Something went wrong while updating the event")
		return
	}
	if err := h.scheduler.Schedule(ctx, updated); err != nil {
		h.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to reschedule reminder")
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf(
		"✅ Date of %q changed!\nOld date: %s\nNew date: %s",
		updated.EventName, oldDate.Format("02.01.2006"), updated.EventDate.Format("02.01.2006"),
	))
}

func (h *Handlers) editCallbackMessage(cb *tgbotapi.CallbackQuery, text string) {
	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, text)
	if _, err := h.api.Send(edit); err != nil {
		h.log.Warn().Err(err).Msg("failed to edit callback message")
	}
}
