// Package recurrence computes the next occurrence of a fired recurring
// event. It performs no store mutation; callers decide what to do with the
// result (and with non-recurring events, which the engine leaves alone).
package recurrence

import (
	"errors"
	"time"

	"github.com/mkazakova/remindbot/internal/models"
)

// ErrInvalidPeriodicity reports a monthly event configured with a
// non-positive period. This is a configuration error, never silently
// defaulted; ingestion is expected to coerce bad input before events get
// this far.
var ErrInvalidPeriodicity = errors.New("recurrence: periodicity must be a positive number of months")

// Next returns the event date after one rollover step. Only monthly events
// roll forward; for repeat type none the event date is returned unchanged
// and the caller decides the policy.
func Next(event *models.Event) (time.Time, error) {
	if event.RepeatType != models.RepeatMonthly {
		return event.EventDate, nil
	}
	if event.Periodicity <= 0 {
		return time.Time{}, ErrInvalidPeriodicity
	}
	return AddMonthsClamped(models.DateOnly(event.EventDate), event.Periodicity), nil
}

// AddMonthsClamped advances d by the given number of months, clamping a
// day-of-month that does not exist in the target month to that month's
// last day (Jan 31 + 1 month = Feb 28/29). time.AddDate would normalize
// Feb 31 into early March instead, which is the wrong cadence here.
func AddMonthsClamped(d time.Time, months int) time.Time {
	year, month, day := d.Date()
	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, d.Location())
	if last := lastDayOfMonth(target); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, d.Location())
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
