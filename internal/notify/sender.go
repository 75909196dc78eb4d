// Package notify delivers reminders through the configured channels and
// records an audit row for every attempt.
package notify

import (
	"context"

	"github.com/mkazakova/remindbot/internal/models"
	"github.com/mkazakova/remindbot/internal/render"
)

// Sender delivers one rendered message to one recipient address on its
// channel. Implementations return an error on failure; the dispatcher
// decides what a failure means for the channel as a whole.
type Sender interface {
	Channel() models.NotificationChannel
	Send(ctx context.Context, recipient string, msg render.Message) error
}

type OutcomeStatus string

const (
	OutcomeSent    OutcomeStatus = "sent"
	OutcomeFailed  OutcomeStatus = "failed"
	OutcomeSkipped OutcomeStatus = "skipped" // no recipient configured
)

// Outcome is the aggregate result for one channel of one dispatch attempt.
// A channel counts as sent if at least one of its recipients succeeded.
type Outcome struct {
	Status    OutcomeStatus
	Reason    string // joined send errors when failed
	Attempts  int    // individual recipient sends tried
	Delivered int    // individual recipient sends that succeeded
}
