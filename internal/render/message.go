// Package render builds the user-facing text for reminders and listings.
// Chat messages use Telegram HTML; email gets a plain-text body plus an
// HTML alternative so mail clients can pick either.
package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/mkazakova/remindbot/internal/models"
)

// TelegramMessageLimit is Telegram's hard cap on message length. Long
// listings are split into chunks of at most this many characters.
const TelegramMessageLimit = 4096

// Message is one rendered reminder in every form the channels need.
type Message struct {
	Subject string // email subject
	Chat    string // Telegram HTML body
	Plain   string // email text/plain body
	HTML    string // email text/html body
}

// Reminder renders the notification payload for one event. Manual sends
// are labelled so recipients can tell them from the scheduled cadence.
func Reminder(event *models.Event, now time.Time, manual bool) Message {
	daysLeft := DaysUntil(event.EventDate, now)
	date := event.EventDate.Format("02.01.2006")
	name := event.EventName

	title := "Event reminder"
	if manual {
		title = "Manual event reminder"
	}

	var chat strings.Builder
	fmt.Fprintf(&chat, "🔔 <b>%s</b>\n\n", title)
	fmt.Fprintf(&chat, "📌 Event: %s\n", html.EscapeString(name))
	fmt.Fprintf(&chat, "📅 Date: %s\n", date)
	fmt.Fprintf(&chat, "⏰ Days left: %d\n", daysLeft)
	if event.IsRecurring() {
		fmt.Fprintf(&chat, "🔄 Repeats every %d month(s)\n", event.Periodicity)
	}

	var plain strings.Builder
	fmt.Fprintf(&plain, "%s\n\n", title)
	fmt.Fprintf(&plain, "Event: %s\n", name)
	fmt.Fprintf(&plain, "Date: %s\n", date)
	fmt.Fprintf(&plain, "Days left: %d\n", daysLeft)
	if event.IsRecurring() {
		fmt.Fprintf(&plain, "Repeats every %d month(s)\n", event.Periodicity)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<html><body><h2>%s</h2>", title)
	fmt.Fprintf(&body, "<p><strong>Event:</strong> %s</p>", html.EscapeString(name))
	fmt.Fprintf(&body, "<p><strong>Date:</strong> %s</p>", date)
	fmt.Fprintf(&body, "<p><strong>Days left:</strong> %d</p>", daysLeft)
	if event.IsRecurring() {
		fmt.Fprintf(&body, "<p><strong>Repeats:</strong> every %d month(s)</p>", event.Periodicity)
	}
	body.WriteString("<hr><p><small>This is an automated notification, please do not reply.</small></p></body></html>")

	return Message{
		Subject: "Reminder: " + name,
		Chat:    chat.String(),
		Plain:   plain.String(),
		HTML:    body.String(),
	}
}

// DaysUntil counts whole calendar days from now's date to date.
func DaysUntil(date, now time.Time) int {
	return int(models.DateOnly(date).Sub(models.DateOnly(now)).Hours() / 24)
}

// Chunk splits s into pieces of at most limit runes, for APIs with a hard
// message size cap.
func Chunk(s string, limit int) []string {
	if limit <= 0 || s == "" {
		return []string{s}
	}
	runes := []rune(s)
	var chunks []string
	for len(runes) > limit {
		chunks = append(chunks, string(runes[:limit]))
		runes = runes[limit:]
	}
	return append(chunks, string(runes))
}
