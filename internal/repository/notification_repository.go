package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uniportal/ecms-api/internal/models"
	"github.com/uniportal/ecms-api/pkg/database"
)

// NotificationRepository persists the per-user in-app inbox.
type NotificationRepository struct {
	db    *sqlx.DB
	retry database.RetryPolicy
}

// NewNotificationRepository creates the repository.
func NewNotificationRepository(db *sqlx.DB, retry database.RetryPolicy) *NotificationRepository {
	return &NotificationRepository{db: db, retry: retry}
}

// Create inserts an unread notification row.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.Type == "" {
		notification.Type = models.NotificationInfo
	}
	now := time.Now().UTC()
	notification.IsRead = false
	notification.CreatedAt = now
	notification.UpdatedAt = now

	const query = `INSERT INTO notifications (id, user_id, title, message, type, related_id, is_read, created_at, updated_at)
VALUES (:id, :user_id, :title, :message, :type, :related_id, :is_read, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListForUser returns the user's notifications, newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT id, user_id, title, message, type, related_id, is_read, read_at, created_at, updated_at
FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT %d`, limit)

	var notifications []models.Notification
	err := r.retry.Do(ctx, func() error {
		notifications = nil
		return r.db.SelectContext(ctx, &notifications, query, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flips the read flag. Both id and user id must match; affecting
// zero rows is a silent no-op, which is how ownership is enforced without
// disclosing other users' notification ids.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	const query = `UPDATE notifications SET is_read = TRUE, read_at = $1, updated_at = $1
WHERE id = $2 AND user_id = $3`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id, userID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// Delete removes a notification owned by the user; zero rows is a no-op.
func (r *NotificationRepository) Delete(ctx context.Context, id, userID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = $1 AND user_id = $2", id, userID); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// UnreadCount returns how many unread notifications the user has.
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.retry.Do(ctx, func() error {
		return r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE", userID)
	})
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// CleanupOlderThan bulk-deletes old notifications and reports how many rows
// went away. With onlyIfRead, unread entries are kept regardless of age.
func (r *NotificationRepository) CleanupOlderThan(ctx context.Context, days int, onlyIfRead bool) (int64, error) {
	if days < 1 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	query := "DELETE FROM notifications WHERE created_at < $1"
	if onlyIfRead {
		query += " AND is_read = TRUE"
	}

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup notifications: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup notifications rows affected: %w", err)
	}
	return removed, nil
}
