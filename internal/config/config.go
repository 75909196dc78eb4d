package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/mkazakova/remindbot/internal/models"
)

type Config struct {
	DatabaseURI   string
	TelegramToken string
	SMTP          SMTP
	Timezone      string
	NotifyTime    models.ClockTime // default time of day for events without one
	LookaheadDays int
	PollInterval  time.Duration
	TempDir       string // where uploaded spreadsheets are staged
}

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func Load() (*Config, error) {
	// .env file is optional in production
	_ = godotenv.Load()

	notifyTime, err := models.ParseClock(getEnvOrDefault("NOTIFY_TIME", "09:00"))
	if err != nil {
		return nil, fmt.Errorf("NOTIFY_TIME: %w", err)
	}

	lookahead, err := getEnvInt("LOOKAHEAD_DAYS", 30)
	if err != nil {
		return nil, err
	}

	pollInterval := time.Minute
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		pollInterval, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("POLL_INTERVAL: %w", err)
		}
	}

	smtpPort, err := getEnvInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURI:   os.Getenv("DATABASE_URI"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     smtpPort,
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnvOrDefault("SMTP_FROM", os.Getenv("SMTP_USERNAME")),
		},
		Timezone:      getEnvOrDefault("TIMEZONE", "Europe/Moscow"),
		NotifyTime:    notifyTime,
		LookaheadDays: lookahead,
		PollInterval:  pollInterval,
		TempDir:       getEnvOrDefault("TEMP_DIR", "temp_files"),
	}, nil
}

// Location resolves the deployment timezone. All reminder instants are
// computed in this one location.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
