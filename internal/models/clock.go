package models

import (
	"fmt"
	"strings"
	"time"
)

// ClockTime is a wall-clock time of day without a date or location.
// Events keep their date and time of day separately; the two are only
// combined (in the deployment timezone) when a reminder instant is needed.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock accepts "15:04" and the spreadsheet variant "15.04".
func ParseClock(s string) (ClockTime, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ".", ":")
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On places the clock time onto the calendar day of d, in loc.
func (c ClockTime) On(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, loc)
}
