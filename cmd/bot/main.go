package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/mkazakova/remindbot/internal/bot"
	"github.com/mkazakova/remindbot/internal/bot/handlers"
	"github.com/mkazakova/remindbot/internal/config"
	"github.com/mkazakova/remindbot/internal/database"
	"github.com/mkazakova/remindbot/internal/ingest"
	"github.com/mkazakova/remindbot/internal/notify"
	"github.com/mkazakova/remindbot/internal/repository"
	"github.com/mkazakova/remindbot/internal/scheduler"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.DatabaseURI == "" {
		log.Fatal().Msg("DATABASE_URI is required")
	}
	if cfg.TelegramToken == "" {
		log.Fatal().Msg("TELEGRAM_TOKEN is required")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve timezone")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to database")

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("database migrations completed")

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create telegram api")
	}

	repos := &handlers.Repositories{
		User:         repository.NewUserRepository(db),
		Event:        repository.NewEventRepository(db),
		Notification: repository.NewNotificationRepository(db),
	}
	jobRepo := repository.NewJobRepository(db)

	sched := scheduler.New(jobRepo, cfg.PollInterval, loc, log.With().Str("component", "scheduler").Logger())

	senders := []notify.Sender{
		notify.NewTelegramSender(api),
		notify.NewEmailSender(cfg.SMTP, log.With().Str("component", "email").Logger()),
	}
	dispatcher := notify.NewDispatcher(
		db, repos.Event, repos.Notification, sched, senders, loc,
		log.With().Str("component", "dispatcher").Logger(),
	)

	ingestSvc := ingest.NewService(
		repos.Event, sched, cfg.NotifyTime, loc,
		log.With().Str("component", "ingest").Logger(),
	)

	go sched.Start(ctx, dispatcher)

	h := handlers.New(api, repos, dispatcher, sched, ingestSvc, loc, cfg.LookaheadDays, cfg.TempDir, log)
	b := bot.New(api, h, log)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down")
		cancel()
	}()

	log.Info().Msg("starting bot")
	if err := b.Start(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("bot error")
	}
}
