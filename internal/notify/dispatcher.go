package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkazakova/remindbot/internal/database"
	"github.com/mkazakova/remindbot/internal/models"
	"github.com/mkazakova/remindbot/internal/recurrence"
	"github.com/mkazakova/remindbot/internal/render"
	"github.com/mkazakova/remindbot/internal/repository"
)

type eventStore interface {
	GetActive(ctx context.Context, eventID int64) (*models.Event, error)
	ApplyRollover(ctx context.Context, q database.Querier, eventID int64, nextDate, nextReminder time.Time) error
	Deactivate(ctx context.Context, q database.Querier, eventID int64) error
}

type notificationStore interface {
	Create(ctx context.Context, q database.Querier, n *models.Notification) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(q database.Querier) error) error
}

type jobScheduler interface {
	Schedule(ctx context.Context, event *models.Event) error
}

// Dispatcher fans one due event out to every channel sender, records an
// audit row per attempted channel, and on the scheduled path rolls the
// event forward. There are no in-call retries: a failed channel leaves the
// event's reminder state alone, so the next selection cycle picks it up
// again. That re-selection is the at-least-once guarantee.
type Dispatcher struct {
	tx            txRunner
	events        eventStore
	notifications notificationStore
	scheduler     jobScheduler
	senders       []Sender
	loc           *time.Location
	log           zerolog.Logger
}

func NewDispatcher(
	tx txRunner,
	events eventStore,
	notifications notificationStore,
	scheduler jobScheduler,
	senders []Sender,
	loc *time.Location,
	log zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		tx:            tx,
		events:        events,
		notifications: notifications,
		scheduler:     scheduler,
		senders:       senders,
		loc:           loc,
		log:           log,
	}
}

// FireScheduled is the job-scheduler entry point: load the event and run a
// scheduled (recurrence-advancing) dispatch on behalf of its creator.
func (d *Dispatcher) FireScheduled(ctx context.Context, eventID int64) error {
	event, err := d.events.GetActive(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Deleted or deactivated after the job was queued.
			d.log.Info().Int64("event_id", eventID).Msg("skipping fire for inactive event")
			return nil
		}
		return fmt.Errorf("load event %d: %w", eventID, err)
	}
	_, err = d.Dispatch(ctx, event, event.CreatorID, false)
	return err
}

// Dispatch sends the reminder for event on every channel with a configured
// recipient and returns the per-channel outcomes. operatorID is recorded
// on the audit rows (the creator for scheduled fires, the requesting user
// for manual ones). Only a non-manual dispatch advances recurrence state;
// a manual "send now" must never change the cadence.
func (d *Dispatcher) Dispatch(ctx context.Context, event *models.Event, operatorID int64, manual bool) (map[models.NotificationChannel]Outcome, error) {
	now := time.Now().In(d.loc)
	msg := render.Reminder(event, now, manual)

	outcomes := make(map[models.NotificationChannel]Outcome, len(d.senders))
	for _, sender := range d.senders {
		outcomes[sender.Channel()] = d.sendChannel(ctx, sender, event, msg)
	}

	var nextDate, nextReminder time.Time
	if !manual && event.IsRecurring() {
		var err error
		nextDate, err = recurrence.Next(event)
		if err != nil {
			// Configuration error: record the attempt, do not guess a cadence.
			if txErr := d.persist(ctx, event, operatorID, now, outcomes, false, nextDate, nextReminder); txErr != nil {
				return outcomes, txErr
			}
			return outcomes, fmt.Errorf("event %d: %w", event.EventID, err)
		}
		nextReminder = event.ReminderAt(nextDate, d.loc)
	}

	if err := d.persist(ctx, event, operatorID, now, outcomes, !manual, nextDate, nextReminder); err != nil {
		return outcomes, err
	}

	if !manual && event.IsRecurring() {
		next := *event
		next.EventDate = nextDate
		next.NextReminder = nextReminder
		if err := d.scheduler.Schedule(ctx, &next); err != nil {
			return outcomes, fmt.Errorf("schedule next fire for event %d: %w", event.EventID, err)
		}
		event.EventDate = nextDate
		event.NextReminder = nextReminder
	}

	return outcomes, nil
}

func (d *Dispatcher) sendChannel(ctx context.Context, sender Sender, event *models.Event, msg render.Message) Outcome {
	recipients := event.RecipientsFor(sender.Channel())
	if len(recipients) == 0 {
		return Outcome{Status: OutcomeSkipped}
	}

	var outcome Outcome
	var reasons []string
	for _, recipient := range recipients {
		outcome.Attempts++
		if err := sender.Send(ctx, recipient, msg); err != nil {
			d.log.Warn().Err(err).
				Int64("event_id", event.EventID).
				Str("channel", string(sender.Channel())).
				Str("recipient", recipient).
				Msg("send failed")
			reasons = append(reasons, err.Error())
			continue
		}
		outcome.Delivered++
	}

	if outcome.Delivered > 0 {
		outcome.Status = OutcomeSent
	} else {
		outcome.Status = OutcomeFailed
		outcome.Reason = strings.Join(reasons, "; ")
	}
	return outcome
}

// persist writes the audit rows and, when rollForward is set, the event
// mutation in one transaction, so an event can never be rolled forward
// without its audit trail.
func (d *Dispatcher) persist(
	ctx context.Context,
	event *models.Event,
	operatorID int64,
	now time.Time,
	outcomes map[models.NotificationChannel]Outcome,
	rollForward bool,
	nextDate, nextReminder time.Time,
) error {
	return d.tx.WithTx(ctx, func(q database.Querier) error {
		for _, sender := range d.senders {
			ch := sender.Channel()
			outcome := outcomes[ch]
			if outcome.Status == OutcomeSkipped {
				continue
			}

			n := &models.Notification{
				EventID:      event.EventID,
				UserID:       operatorID,
				Channel:      ch,
				Status:       models.StatusFailed,
				ScheduledAt:  now,
				ErrorMessage: outcome.Reason,
			}
			if outcome.Status == OutcomeSent {
				n.Status = models.StatusSent
				sentAt := now
				n.SentAt = &sentAt
			}
			if err := d.notifications.Create(ctx, q, n); err != nil {
				return fmt.Errorf("record %s notification: %w", ch, err)
			}
		}

		if !rollForward {
			return nil
		}
		if event.IsRecurring() && !nextDate.IsZero() {
			return d.events.ApplyRollover(ctx, q, event.EventID, nextDate, nextReminder)
		}
		// One-shot event: deactivate after its scheduled fire, keeping the
		// row for history. The recurrence engine itself never mutates.
		return d.events.Deactivate(ctx, q, event.EventID)
	})
}
