package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/uniportal/ecms-api/internal/models"
	appErrors "github.com/uniportal/ecms-api/pkg/errors"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	Delete(ctx context.Context, id, userID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
	CleanupOlderThan(ctx context.Context, days int, onlyIfRead bool) (int64, error)
}

// NotificationService manages the per-user in-app inbox.
type NotificationService struct {
	repo    notificationRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationRepository, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, metrics: metrics, logger: logger}
}

// Notify creates an in-app notification. It is fire-and-forget: a failure is
// logged and swallowed so the triggering operation keeps its result.
func (s *NotificationService) Notify(ctx context.Context, userID, title, message string, typ models.NotificationType, relatedID string) {
	if !models.ValidNotificationType(typ) {
		typ = models.NotificationInfo
	}
	notification := &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    typ,
	}
	if relatedID != "" {
		notification.RelatedID = &relatedID
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		s.logger.Error("failed to create notification",
			zap.String("user_id", userID),
			zap.String("title", title),
			zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.RecordNotification()
	}
}

// List returns the caller's notifications together with the unread count.
func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]models.Notification, int, error) {
	notifications, err := s.repo.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	unread, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	return notifications, unread, nil
}

// MarkRead flips a notification's read flag. Marking an already read or
// unknown id succeeds without effect.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// Delete removes a notification owned by the caller.
func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notification")
	}
	return nil
}

// UnreadCount returns the caller's unread badge number.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	return count, nil
}

// Cleanup removes read notifications older than the retention window. It is
// run on a schedule.
func (s *NotificationService) Cleanup(ctx context.Context, retentionDays int) {
	removed, err := s.repo.CleanupOlderThan(ctx, retentionDays, true)
	if err != nil {
		s.logger.Error("notification cleanup failed", zap.Error(err))
		return
	}
	s.logger.Info("notification cleanup finished", zap.Int64("removed", removed))
}
