package repository

import (
	"context"

	"github.com/mkazakova/remindbot/internal/database"
	"github.com/mkazakova/remindbot/internal/models"
)

type NotificationRepository struct {
	db *database.DB
}

func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create appends one audit row. Rows are immutable once written; there is
// deliberately no update method on this repository.
func (r *NotificationRepository) Create(ctx context.Context, q database.Querier, n *models.Notification) error {
	return q.QueryRow(ctx,
		`INSERT INTO notifications (event_id, user_id, channel, status, scheduled_at, sent_at, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING notification_id, created_at`,
		n.EventID, n.UserID, n.Channel, n.Status, n.ScheduledAt, n.SentAt, n.ErrorMessage,
	).Scan(&n.NotificationID, &n.CreatedAt)
}

// ListByEvent returns the delivery history of one event, oldest first.
func (r *NotificationRepository) ListByEvent(ctx context.Context, eventID int64) ([]*models.Notification, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT notification_id, event_id, user_id, channel, status, scheduled_at, sent_at, error_message, created_at
		 FROM notifications WHERE event_id = $1
		 ORDER BY created_at ASC, notification_id ASC`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		if err := rows.Scan(&n.NotificationID, &n.EventID, &n.UserID, &n.Channel, &n.Status,
			&n.ScheduledAt, &n.SentAt, &n.ErrorMessage, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
