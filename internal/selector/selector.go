// Package selector partitions a user's active events into the due buckets
// shown in listings and used to decide what needs a reminder now. It is
// pure: slices in, partitions out, no store access.
package selector

import (
	"sort"
	"time"

	"github.com/mkazakova/remindbot/internal/models"
)

// Due holds the three partitions for one instant. Within each partition
// events keep a deterministic order: event date ascending, ties broken by
// source file label and id.
type Due struct {
	Overdue  []*models.Event
	Today    []*models.Event
	Upcoming []*models.Event
}

// Empty reports whether nothing is due.
func (d Due) Empty() bool {
	return len(d.Overdue) == 0 && len(d.Today) == 0 && len(d.Upcoming) == 0
}

// Partition classifies events relative to now:
//
//   - overdue: event date before today
//   - today: event date is today (wins over upcoming when remind_before is 0)
//   - upcoming: event date within the look-ahead window and the reminder
//     lead time has begun (today >= date - remind_before days)
//
// Events whose lead time has not started are in no partition. Inactive
// events must be filtered out by the caller's query; they are ignored here
// as well for safety.
func Partition(events []*models.Event, now time.Time, windowDays int) Due {
	today := models.DateOnly(now)
	horizon := today.AddDate(0, 0, windowDays)

	var due Due
	for _, event := range events {
		if !event.IsActive {
			continue
		}
		date := models.DateOnly(event.EventDate)
		switch {
		case date.Before(today):
			due.Overdue = append(due.Overdue, event)
		case date.Equal(today):
			due.Today = append(due.Today, event)
		case !date.After(horizon):
			leadStart := date.AddDate(0, 0, -event.RemindBefore)
			if !today.Before(leadStart) {
				due.Upcoming = append(due.Upcoming, event)
			}
		}
	}

	sortEvents(due.Overdue)
	sortEvents(due.Today)
	sortEvents(due.Upcoming)
	return due
}

// FileGroup is one source-file bucket of a listing.
type FileGroup struct {
	Label  string // "" for events not tied to a file
	Events []*models.Event
}

// GroupByFile buckets events by their source-file label for rendering.
// The no-file bucket always comes first, then labels in ascending order;
// events inside a bucket are ordered by date. The same input always yields
// the same output, so chunked rendering is stable across calls.
func GroupByFile(events []*models.Event) []FileGroup {
	byLabel := make(map[string][]*models.Event)
	for _, event := range events {
		byLabel[event.FileName] = append(byLabel[event.FileName], event)
	}

	labels := make([]string, 0, len(byLabel))
	for label := range byLabel {
		if label != "" {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	if _, ok := byLabel[""]; ok {
		labels = append([]string{""}, labels...)
	}

	groups := make([]FileGroup, 0, len(labels))
	for _, label := range labels {
		group := FileGroup{Label: label, Events: byLabel[label]}
		sortEvents(group.Events)
		groups = append(groups, group)
	}
	return groups
}

func sortEvents(events []*models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].EventDate.Equal(events[j].EventDate) {
			return events[i].EventDate.Before(events[j].EventDate)
		}
		if events[i].FileName != events[j].FileName {
			return events[i].FileName < events[j].FileName
		}
		return events[i].EventID < events[j].EventID
	})
}
