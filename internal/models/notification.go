package models

import "time"

type NotificationChannel string

const (
	ChannelTelegram NotificationChannel = "telegram"
	ChannelEmail    NotificationChannel = "email"
)

type NotificationStatus string

const (
	StatusPending NotificationStatus = "pending"
	StatusSent    NotificationStatus = "sent"
	StatusFailed  NotificationStatus = "failed"
)

// Notification is one audit record of a delivery attempt on one channel.
// Rows are append-only: a retry produces a new row, never an update.
type Notification struct {
	NotificationID int64               `json:"notification_id"`
	EventID        int64               `json:"event_id"`
	UserID         int64               `json:"user_id"` // who the attempt was made on behalf of
	Channel        NotificationChannel `json:"channel"`
	Status         NotificationStatus  `json:"status"`
	ScheduledAt    time.Time           `json:"scheduled_at"`
	SentAt         *time.Time          `json:"sent_at"`
	ErrorMessage   string              `json:"error_message"`
	CreatedAt      time.Time           `json:"created_at"`
}
