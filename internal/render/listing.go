package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/mkazakova/remindbot/internal/models"
	"github.com/mkazakova/remindbot/internal/selector"
)

const (
	groupSeparator = "━━━━━━━━━━━━━━━\n"
	otherLabel     = "Other events"
)

// GroupLabel names a file bucket in listings and button menus.
func GroupLabel(label string) string {
	if label == "" {
		return "📝 " + otherLabel
	}
	return "📁 " + label
}

// EventLine is the one-line form used in listings and inline buttons.
func EventLine(event *models.Event) string {
	return fmt.Sprintf("%s: %s", event.EventName, event.EventDate.Format("02.01.2006"))
}

// EventDetails is the multi-line form used in "my events".
func EventDetails(event *models.Event) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 Event: %s\n", event.EventName)
	fmt.Fprintf(&sb, "🗓 Date: %s\n", event.EventDate.Format("02.01.2006"))
	fmt.Fprintf(&sb, "⏰ Time: %s\n", event.EventTime)
	if event.IsRecurring() {
		fmt.Fprintf(&sb, "🔄 Repeats: every %d month(s)\n", event.Periodicity)
	}
	if event.RemindBefore > 0 {
		fmt.Fprintf(&sb, "⏳ Remind %d day(s) before\n", event.RemindBefore)
	}
	if ids := event.ChatRecipients(); len(ids) > 0 {
		fmt.Fprintf(&sb, "👤 Responsible: %s\n", strings.Join(ids, ", "))
	}
	if event.RecipientEmail != "" {
		fmt.Fprintf(&sb, "📧 Email: %s\n", event.RecipientEmail)
	}
	return sb.String()
}

// EventListing renders a user's active events grouped by source file.
func EventListing(events []*models.Event) string {
	var sb strings.Builder
	sb.WriteString("📋 Your events:\n\n")
	for _, group := range selector.GroupByFile(events) {
		sb.WriteString(GroupLabel(group.Label) + "\n")
		sb.WriteString(groupSeparator)
		for _, event := range group.Events {
			sb.WriteString(EventDetails(event) + "\n")
		}
	}
	return sb.String()
}

// DueListing renders the overdue / today / upcoming partitions.
func DueListing(due selector.Due, now time.Time) string {
	var sb strings.Builder
	writeDueSection(&sb, "⚠️ Overdue events:", due.Overdue, now, false)
	writeDueSection(&sb, "📅 Events today:", due.Today, now, false)
	writeDueSection(&sb, "🔔 Upcoming events:", due.Upcoming, now, true)
	return sb.String()
}

func writeDueSection(sb *strings.Builder, header string, events []*models.Event, now time.Time, withCountdown bool) {
	if len(events) == 0 {
		return
	}
	sb.WriteString(header + "\n")
	for _, group := range selector.GroupByFile(events) {
		sb.WriteString(GroupLabel(group.Label) + "\n")
		sb.WriteString(groupSeparator)
		for _, event := range group.Events {
			fmt.Fprintf(sb, "📅 %s\n", EventLine(event))
			if withCountdown {
				fmt.Fprintf(sb, "Days left: %d\n", DaysUntil(event.EventDate, now))
			}
		}
	}
	sb.WriteString("\n")
}
