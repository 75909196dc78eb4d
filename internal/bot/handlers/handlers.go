package handlers

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/mkazakova/remindbot/internal/ingest"
	"github.com/mkazakova/remindbot/internal/models"
	"github.com/mkazakova/remindbot/internal/notify"
	"github.com/mkazakova/remindbot/internal/render"
	"github.com/mkazakova/remindbot/internal/repository"
	"github.com/mkazakova/remindbot/internal/scheduler"
)

type Repositories struct {
	User         *repository.UserRepository
	Event        *repository.EventRepository
	Notification *repository.NotificationRepository
}

type Handlers struct {
	api           *tgbotapi.BotAPI
	repos         *Repositories
	dispatcher    *notify.Dispatcher
	scheduler     *scheduler.Scheduler
	ingest        *ingest.Service
	loc           *time.Location
	lookaheadDays int
	tempDir       string
	log           zerolog.Logger

	mu             sync.Mutex
	pendingUpdates map[int64]int64 // user id -> event id awaiting a new date
}

func New(
	api *tgbotapi.BotAPI,
	repos *Repositories,
	dispatcher *notify.Dispatcher,
	sched *scheduler.Scheduler,
	ingestSvc *ingest.Service,
	loc *time.Location,
	lookaheadDays int,
	tempDir string,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		api:            api,
		repos:          repos,
		dispatcher:     dispatcher,
		scheduler:      sched,
		ingest:         ingestSvc,
		loc:            loc,
		lookaheadDays:  lookaheadDays,
		tempDir:        tempDir,
		log:            log,
		pendingUpdates: make(map[int64]int64),
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := h.repos.User.GetOrCreate(ctx, msg.From.ID, msg.From.UserName, msg.From.FirstName); err != nil {
		h.log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to register user")
		return
	}

	switch msg.Command() {
	case "start":
		h.handleStart(msg)
	case "my_events":
		h.handleEventList(ctx, msg)
	case "reminders":
		h.handleReminders(ctx, msg)
	case "delete_event":
		h.handleDeleteMenu(ctx, msg)
	case "update_event":
		h.handleUpdateMenu(ctx, msg)
	case "send_reminder":
		h.handleManualMenu(ctx, msg)
	case "add_file":
		h.handleAddFile(msg)
	default:
		h.sendMessage(msg.Chat.ID, "Unknown command, use /start to see the menu")
	}
}

func (h *Handlers) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := h.repos.User.GetOrCreate(ctx, msg.From.ID, msg.From.UserName, msg.From.FirstName); err != nil {
		h.log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to register user")
		return
	}

	if msg.Document != nil {
		h.handleDocument(ctx, msg)
		return
	}

	switch strings.TrimSpace(msg.Text) {
	case "📋 My events":
		h.handleEventList(ctx, msg)
	case "🔔 Reminders":
		h.handleReminders(ctx, msg)
	case "📂 Add file":
		h.handleAddFile(msg)
	case "✏️ Edit event":
		h.handleUpdateMenu(ctx, msg)
	case "🗑 Delete event":
		h.handleDeleteMenu(ctx, msg)
	case "📢 Send reminder":
		h.handleManualMenu(ctx, msg)
	default:
		h.handleNewDate(ctx, msg)
	}
}

func (h *Handlers) HandleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Answer first to clear the client's loading state.
	if _, err := h.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		h.log.Warn().Err(err).Msg("failed to answer callback")
	}

	if strings.HasPrefix(cb.Data, "header_") {
		return
	}

	action, idStr, ok := strings.Cut(cb.Data, "_")
	if !ok {
		return
	}
	eventID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return
	}

	switch action {
	case "delete":
		h.handleDeleteCallback(ctx, cb, eventID)
	case "update":
		h.handleUpdateCallback(ctx, cb, eventID)
	case "manual":
		h.handleManualCallback(ctx, cb, eventID)
	}
}

func (h *Handlers) handleStart(msg *tgbotapi.Message) {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📋 My events"),
			tgbotapi.NewKeyboardButton("🔔 Reminders"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📂 Add file"),
			tgbotapi.NewKeyboardButton("✏️ Edit event"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🗑 Delete event"),
			tgbotapi.NewKeyboardButton("📢 Send reminder"),
		),
	)
	keyboard.ResizeKeyboard = true

	out := tgbotapi.NewMessage(msg.Chat.ID,
		"Hi! I track your events and send reminders.\n\nUse the menu buttons below:")
	out.ReplyMarkup = keyboard
	if _, err := h.api.Send(out); err != nil {
		h.log.Error().Err(err).Msg("failed to send start message")
	}
}

func (h *Handlers) sendMessage(chatID int64, text string) {
	out := tgbotapi.NewMessage(chatID, text)
	if _, err := h.api.Send(out); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

// sendChunked splits listings that exceed Telegram's message limit.
func (h *Handlers) sendChunked(chatID int64, text string) {
	for _, chunk := range render.Chunk(text, render.TelegramMessageLimit) {
		h.sendMessage(chatID, chunk)
	}
}

// eventMenu builds an inline keyboard of the user's active events grouped
// by source file, with one callback action per event row.
func eventMenu(events []*models.Event, action string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, group := range groupedForMenu(events) {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(render.GroupLabel(group.Label), "header_"+group.Label),
		))
		for _, event := range group.Events {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					render.EventLine(event),
					action+"_"+strconv.FormatInt(event.EventID, 10),
				),
			))
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
