package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkazakova/remindbot/internal/database"
	"github.com/mkazakova/remindbot/internal/models"
	"github.com/mkazakova/remindbot/internal/recurrence"
	"github.com/mkazakova/remindbot/internal/render"
	"github.com/mkazakova/remindbot/internal/repository"
)

type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(q database.Querier) error) error {
	f.calls++
	return fn(nil)
}

type fakeEvents struct {
	event        *models.Event
	rolledDate   time.Time
	rolledRemind time.Time
	rolled       bool
	deactivated  bool
}

func (f *fakeEvents) GetActive(ctx context.Context, eventID int64) (*models.Event, error) {
	if f.event == nil || f.event.EventID != eventID {
		return nil, repository.ErrNotFound
	}
	copy := *f.event
	return &copy, nil
}

func (f *fakeEvents) ApplyRollover(ctx context.Context, q database.Querier, eventID int64, nextDate, nextReminder time.Time) error {
	f.rolled = true
	f.rolledDate = nextDate
	f.rolledRemind = nextReminder
	return nil
}

func (f *fakeEvents) Deactivate(ctx context.Context, q database.Querier, eventID int64) error {
	f.deactivated = true
	return nil
}

type fakeNotifications struct {
	rows []models.Notification
}

func (f *fakeNotifications) Create(ctx context.Context, q database.Querier, n *models.Notification) error {
	f.rows = append(f.rows, *n)
	return nil
}

type fakeScheduler struct {
	scheduled []models.Event
}

func (f *fakeScheduler) Schedule(ctx context.Context, event *models.Event) error {
	f.scheduled = append(f.scheduled, *event)
	return nil
}

type fakeSender struct {
	channel  models.NotificationChannel
	failFor  map[string]error
	attempts []string
}

func (f *fakeSender) Channel() models.NotificationChannel { return f.channel }

func (f *fakeSender) Send(ctx context.Context, recipient string, msg render.Message) error {
	f.attempts = append(f.attempts, recipient)
	if err, ok := f.failFor[recipient]; ok {
		return err
	}
	return nil
}

func monthlyEvent() *models.Event {
	return &models.Event{
		EventID:          7,
		CreatorID:        100,
		EventName:        "Audit",
		EventDate:        time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
		EventTime:        models.ClockTime{Hour: 9},
		RemindBefore:     5,
		RepeatType:       models.RepeatMonthly,
		Periodicity:      1,
		IsActive:         true,
		RecipientChatIDs: "111,222",
		RecipientEmail:   "ops@example.com",
	}
}

func newTestDispatcher(events *fakeEvents, senders ...Sender) (*Dispatcher, *fakeTx, *fakeNotifications, *fakeScheduler) {
	tx := &fakeTx{}
	notifications := &fakeNotifications{}
	sched := &fakeScheduler{}
	d := NewDispatcher(tx, events, notifications, sched, senders, time.UTC, zerolog.Nop())
	return d, tx, notifications, sched
}

func TestDispatchPartialChatFailureStillSent(t *testing.T) {
	event := monthlyEvent()
	chat := &fakeSender{
		channel: models.ChannelTelegram,
		failFor: map[string]error{"111": errors.New("bot blocked")},
	}
	email := &fakeSender{channel: models.ChannelEmail}
	d, _, notifications, _ := newTestDispatcher(&fakeEvents{event: event}, chat, email)

	outcomes, err := d.Dispatch(context.Background(), event, event.CreatorID, true)
	require.NoError(t, err)

	// One failed and one delivered recipient: the channel counts as sent.
	assert.Equal(t, OutcomeSent, outcomes[models.ChannelTelegram].Status)
	assert.Equal(t, 2, outcomes[models.ChannelTelegram].Attempts)
	assert.Equal(t, 1, outcomes[models.ChannelTelegram].Delivered)
	assert.Equal(t, []string{"111", "222"}, chat.attempts)

	// One audit row per channel, not per recipient.
	require.Len(t, notifications.rows, 2)
	assert.Equal(t, models.ChannelTelegram, notifications.rows[0].Channel)
	assert.Equal(t, models.StatusSent, notifications.rows[0].Status)
	assert.NotNil(t, notifications.rows[0].SentAt)
	assert.Equal(t, models.ChannelEmail, notifications.rows[1].Channel)
}

func TestDispatchAllRecipientsFailedRecordsFailure(t *testing.T) {
	event := monthlyEvent()
	event.RecipientChatIDs = "111"
	event.RecipientEmail = ""
	chat := &fakeSender{
		channel: models.ChannelTelegram,
		failFor: map[string]error{"111": errors.New("bot blocked")},
	}
	d, _, notifications, _ := newTestDispatcher(&fakeEvents{event: event}, chat)

	outcomes, err := d.Dispatch(context.Background(), event, event.CreatorID, true)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, outcomes[models.ChannelTelegram].Status)
	assert.Contains(t, outcomes[models.ChannelTelegram].Reason, "bot blocked")

	require.Len(t, notifications.rows, 1)
	assert.Equal(t, models.StatusFailed, notifications.rows[0].Status)
	assert.Nil(t, notifications.rows[0].SentAt)
	assert.Contains(t, notifications.rows[0].ErrorMessage, "bot blocked")
}

func TestDispatchSkipsChannelWithoutRecipients(t *testing.T) {
	event := monthlyEvent()
	event.RecipientEmail = ""
	chat := &fakeSender{channel: models.ChannelTelegram}
	email := &fakeSender{channel: models.ChannelEmail}
	d, _, notifications, _ := newTestDispatcher(&fakeEvents{event: event}, chat, email)

	outcomes, err := d.Dispatch(context.Background(), event, event.CreatorID, true)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSkipped, outcomes[models.ChannelEmail].Status)
	assert.Empty(t, email.attempts)

	// Skipped channels get no audit row.
	require.Len(t, notifications.rows, 1)
	assert.Equal(t, models.ChannelTelegram, notifications.rows[0].Channel)
}

func TestManualDispatchNeverRollsForward(t *testing.T) {
	event := monthlyEvent()
	events := &fakeEvents{event: event}
	chat := &fakeSender{
		channel: models.ChannelTelegram,
		failFor: map[string]error{"111": errors.New("down"), "222": errors.New("down")},
	}
	d, _, _, sched := newTestDispatcher(events, chat)

	_, err := d.Dispatch(context.Background(), event, 555, true)
	require.NoError(t, err)

	assert.False(t, events.rolled)
	assert.False(t, events.deactivated)
	assert.Empty(t, sched.scheduled)
	assert.Equal(t, time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC), event.EventDate)
}

func TestScheduledFireRollsMonthlyForward(t *testing.T) {
	event := monthlyEvent()
	events := &fakeEvents{event: event}
	chat := &fakeSender{channel: models.ChannelTelegram}
	email := &fakeSender{channel: models.ChannelEmail}
	d, tx, notifications, sched := newTestDispatcher(events, chat, email)

	require.NoError(t, d.FireScheduled(context.Background(), event.EventID))

	// Rolled forward by one month, reminder re-derived from the new date.
	assert.True(t, events.rolled)
	assert.Equal(t, time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC), events.rolledDate)
	assert.Equal(t, time.Date(2025, 8, 10, 9, 0, 0, 0, time.UTC), events.rolledRemind)

	// Audit rows and the rollover share one transaction.
	assert.Equal(t, 1, tx.calls)
	assert.Len(t, notifications.rows, 2)

	// The next firing is queued at the new reminder time.
	require.Len(t, sched.scheduled, 1)
	assert.Equal(t, events.rolledRemind, sched.scheduled[0].NextReminder)
}

func TestScheduledFireRollsForwardEvenWhenAllSendsFail(t *testing.T) {
	// Rollover is deliberately independent of the send outcome; otherwise
	// one permanently bad address would re-fire the event every cycle.
	event := monthlyEvent()
	event.RecipientEmail = ""
	events := &fakeEvents{event: event}
	chat := &fakeSender{
		channel: models.ChannelTelegram,
		failFor: map[string]error{"111": errors.New("down"), "222": errors.New("down")},
	}
	d, _, _, _ := newTestDispatcher(events, chat)

	require.NoError(t, d.FireScheduled(context.Background(), event.EventID))
	assert.True(t, events.rolled)
}

func TestScheduledFireDeactivatesOneShotEvent(t *testing.T) {
	event := monthlyEvent()
	event.RepeatType = models.RepeatNone
	event.Periodicity = 0
	events := &fakeEvents{event: event}
	chat := &fakeSender{channel: models.ChannelTelegram}
	d, _, _, sched := newTestDispatcher(events, chat)

	require.NoError(t, d.FireScheduled(context.Background(), event.EventID))

	assert.False(t, events.rolled)
	assert.True(t, events.deactivated)
	assert.Empty(t, sched.scheduled)
}

func TestScheduledFireBadPeriodicityIsConfigurationError(t *testing.T) {
	event := monthlyEvent()
	event.Periodicity = 0
	events := &fakeEvents{event: event}
	chat := &fakeSender{channel: models.ChannelTelegram}
	d, _, notifications, sched := newTestDispatcher(events, chat)

	err := d.FireScheduled(context.Background(), event.EventID)
	assert.ErrorIs(t, err, recurrence.ErrInvalidPeriodicity)

	// The attempt is still audited, but no cadence is guessed.
	assert.NotEmpty(t, notifications.rows)
	assert.False(t, events.rolled)
	assert.False(t, events.deactivated)
	assert.Empty(t, sched.scheduled)
}

func TestFireScheduledSkipsDeletedEvent(t *testing.T) {
	events := &fakeEvents{} // nothing active
	chat := &fakeSender{channel: models.ChannelTelegram}
	d, _, notifications, _ := newTestDispatcher(events, chat)

	require.NoError(t, d.FireScheduled(context.Background(), 42))
	assert.Empty(t, notifications.rows)
	assert.Empty(t, chat.attempts)
}
