package models

import (
	"strings"
	"time"
)

type RepeatType string

const (
	RepeatNone    RepeatType = "none"
	RepeatMonthly RepeatType = "monthly"
)

// ParseRepeatType maps free-form spreadsheet values onto the closed enum.
// Anything that is not recognizably "monthly" means no repeat.
func ParseRepeatType(s string) RepeatType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "month", "ежемесячно":
		return RepeatMonthly
	default:
		return RepeatNone
	}
}

type Event struct {
	EventID          int64      `json:"event_id"`
	CreatorID        int64      `json:"creator_id"`
	FileName         string     `json:"file_name"` // source spreadsheet label, "" for events added by hand
	EventName        string     `json:"event_name"`
	EventDate        time.Time  `json:"event_date"` // date only, normalized to midnight UTC
	EventTime        ClockTime  `json:"event_time"`
	RemindBefore     int        `json:"remind_before"` // days of lead time, >= 0
	RepeatType       RepeatType `json:"repeat_type"`
	Periodicity      int        `json:"periodicity"` // months, meaningful only for monthly repeat
	NextReminder     time.Time  `json:"next_reminder"`
	IsActive         bool       `json:"is_active"`
	RecipientChatIDs string     `json:"recipient_chat_ids"` // comma-separated telegram chat ids
	RecipientEmail   string     `json:"recipient_email"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsRecurring returns true if this event rolls forward after firing.
func (e *Event) IsRecurring() bool {
	return e.RepeatType == RepeatMonthly
}

// ChatRecipients splits the stored comma list into individual chat ids,
// dropping empty entries.
func (e *Event) ChatRecipients() []string {
	var ids []string
	for _, id := range strings.Split(e.RecipientChatIDs, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// RecipientsFor returns the delivery addresses configured for a channel.
// An empty result means the channel is skipped for this event.
func (e *Event) RecipientsFor(ch NotificationChannel) []string {
	switch ch {
	case ChannelTelegram:
		return e.ChatRecipients()
	case ChannelEmail:
		if addr := strings.TrimSpace(e.RecipientEmail); addr != "" {
			return []string{addr}
		}
	}
	return nil
}

// ReminderAt computes when the reminder for a given occurrence date fires:
// the event's time of day, remind_before days ahead of the occurrence, in loc.
func (e *Event) ReminderAt(occurrence time.Time, loc *time.Location) time.Time {
	d := occurrence.AddDate(0, 0, -e.RemindBefore)
	return e.EventTime.On(d, loc)
}

// DateOnly strips the clock and location from t, keeping the calendar day.
// Event dates are stored and compared in this normalized form.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
