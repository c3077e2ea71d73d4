package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type NotificationRepository struct {
	q Executor
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	query := `INSERT INTO notifications (id, user_id, message, booking_id, is_read, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.q.Exec(ctx, query, n.ID, n.UserID, n.Message, n.BookingID, n.IsRead, n.CreatedAt); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// IncrementCounter runs as its own statement, so the counter may briefly
// disagree with the notification log.
func (r *NotificationRepository) IncrementCounter(ctx context.Context, userID uuid.UUID) error {
	query := `INSERT INTO notification_counters (user_id, count) VALUES ($1, 1)
			ON CONFLICT (user_id) DO UPDATE SET count = notification_counters.count + 1`

	if _, err := r.q.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to increment notification counter: %w", err)
	}
	return nil
}

func (r *NotificationRepository) DecrementCounter(ctx context.Context, userID uuid.UUID, by int64) error {
	query := `UPDATE notification_counters SET count = GREATEST(count - $2, 0) WHERE user_id = $1`

	if _, err := r.q.Exec(ctx, query, userID, by); err != nil {
		return fmt.Errorf("failed to decrement notification counter: %w", err)
	}
	return nil
}

func (r *NotificationRepository) GetCounter(ctx context.Context, userID uuid.UUID) (*domain.NotificationCounter, error) {
	c := domain.NotificationCounter{UserID: userID}

	err := r.q.QueryRow(ctx, `SELECT count FROM notification_counters WHERE user_id = $1`, userID).Scan(&c.Count)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to read notification counter: %w", err)
	}
	return &c, nil
}

func (r *NotificationRepository) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error) {
	query := `SELECT id, user_id, message, booking_id, is_read, created_at
			FROM notifications
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`

	rows, err := r.q.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Notification, error) {
		var n domain.Notification
		err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.BookingID, &n.IsRead, &n.CreatedAt)
		return &n, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan notifications: %w", err)
	}
	return results, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE
			WHERE user_id = $1 AND id = ANY($2) AND is_read = FALSE`

	cmdTag, err := r.q.Exec(ctx, query, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
