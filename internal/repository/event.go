package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mkazakova/remindbot/internal/database"
	"github.com/mkazakova/remindbot/internal/models"
)

const eventColumns = `event_id, creator_id, file_name, event_name, event_date, event_time,
	 remind_before, repeat_type, periodicity, next_reminder, is_active,
	 recipient_chat_ids, recipient_email, created_at`

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Upsert inserts the event or, if a row with the same (creator, file, name)
// already exists, overwrites its date/reminder/recurrence/recipient fields
// in place. The row id and active flag are preserved on update.
func (r *EventRepository) Upsert(ctx context.Context, event *models.Event) error {
	row := r.db.Pool.QueryRow(ctx,
		`INSERT INTO events (creator_id, file_name, event_name, event_date, event_time,
		 remind_before, repeat_type, periodicity, next_reminder, is_active,
		 recipient_chat_ids, recipient_email)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, $10, $11)
		 ON CONFLICT (creator_id, file_name, event_name) DO UPDATE SET
		 event_date = EXCLUDED.event_date,
		 event_time = EXCLUDED.event_time,
		 remind_before = EXCLUDED.remind_before,
		 repeat_type = EXCLUDED.repeat_type,
		 periodicity = EXCLUDED.periodicity,
		 next_reminder = EXCLUDED.next_reminder,
		 recipient_chat_ids = EXCLUDED.recipient_chat_ids,
		 recipient_email = EXCLUDED.recipient_email
		 RETURNING `+eventColumns,
		event.CreatorID, event.FileName, event.EventName, event.EventDate,
		event.EventTime.String(), event.RemindBefore, event.RepeatType,
		event.Periodicity, event.NextReminder,
		event.RecipientChatIDs, event.RecipientEmail,
	)
	return scanEvent(row, event)
}

// GetByID fetches one event owned by creatorID. Returns ErrNotFound for a
// missing or foreign-owned row.
func (r *EventRepository) GetByID(ctx context.Context, eventID, creatorID int64) (*models.Event, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE event_id = $1 AND creator_id = $2`,
		eventID, creatorID,
	)
	event := &models.Event{}
	if err := scanEvent(row, event); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

// GetActive fetches one active event regardless of owner. Used by the
// scheduled firing path, which acts on behalf of the creator.
func (r *EventRepository) GetActive(ctx context.Context, eventID int64) (*models.Event, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE event_id = $1 AND is_active = TRUE`,
		eventID,
	)
	event := &models.Event{}
	if err := scanEvent(row, event); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

// GetActiveByCreator lists a user's active events ordered by source file
// and date, which is the order every listing and selection relies on.
func (r *EventRepository) GetActiveByCreator(ctx context.Context, creatorID int64) ([]*models.Event, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE creator_id = $1 AND is_active = TRUE
		 ORDER BY file_name ASC, event_date ASC, event_id ASC`,
		creatorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// UpdateDate changes the event date and the reminder derived from it.
func (r *EventRepository) UpdateDate(ctx context.Context, eventID, creatorID int64, newDate, nextReminder time.Time) (*models.Event, error) {
	row := r.db.Pool.QueryRow(ctx,
		`UPDATE events SET event_date = $1, next_reminder = $2
		 WHERE event_id = $3 AND creator_id = $4 AND is_active = TRUE
		 RETURNING `+eventColumns,
		newDate, nextReminder, eventID, creatorID,
	)
	event := &models.Event{}
	if err := scanEvent(row, event); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

// SoftDelete deactivates the event, preserving it for notification history.
func (r *EventRepository) SoftDelete(ctx context.Context, eventID, creatorID int64) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE events SET is_active = FALSE
		 WHERE event_id = $1 AND creator_id = $2 AND is_active = TRUE`,
		eventID, creatorID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyRollover advances a recurring event to its next occurrence. Runs on
// the caller's transaction so the audit rows land atomically with it.
func (r *EventRepository) ApplyRollover(ctx context.Context, q database.Querier, eventID int64, nextDate, nextReminder time.Time) error {
	tag, err := q.Exec(ctx,
		`UPDATE events SET event_date = $1, next_reminder = $2
		 WHERE event_id = $3`,
		nextDate, nextReminder, eventID,
	)
	if err != nil {
		return fmt.Errorf("roll event %d forward: %w", eventID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes on the caller's transaction; used for
// non-recurring events after their scheduled fire.
func (r *EventRepository) Deactivate(ctx context.Context, q database.Querier, eventID int64) error {
	_, err := q.Exec(ctx,
		`UPDATE events SET is_active = FALSE WHERE event_id = $1`,
		eventID,
	)
	return err
}

func scanEvent(row pgx.Row, event *models.Event) error {
	var eventTime string
	if err := row.Scan(&event.EventID, &event.CreatorID, &event.FileName, &event.EventName,
		&event.EventDate, &eventTime, &event.RemindBefore, &event.RepeatType,
		&event.Periodicity, &event.NextReminder, &event.IsActive,
		&event.RecipientChatIDs, &event.RecipientEmail, &event.CreatedAt); err != nil {
		return err
	}
	clock, err := models.ParseClock(eventTime)
	if err != nil {
		return fmt.Errorf("event %d has malformed event_time: %w", event.EventID, err)
	}
	event.EventTime = clock
	event.EventDate = models.DateOnly(event.EventDate)
	return nil
}

func scanEvents(rows pgx.Rows) ([]*models.Event, error) {
	var events []*models.Event
	for rows.Next() {
		event := &models.Event{}
		if err := scanEvent(rows, event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
