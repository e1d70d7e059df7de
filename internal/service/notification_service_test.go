package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniportal/ecms-api/internal/models"
)

type mockNotificationRepo struct {
	notifications map[string][]models.Notification
	createErr     error
	cleanupDays   int
	cleanupRead   bool
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.notifications == nil {
		m.notifications = make(map[string][]models.Notification)
	}
	if notification.ID == "" {
		notification.ID = "new-notification"
	}
	notification.IsRead = false
	m.notifications[notification.UserID] = append(m.notifications[notification.UserID], *notification)
	return nil
}

func (m *mockNotificationRepo) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	list := m.notifications[userID]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	for i, n := range m.notifications[userID] {
		if n.ID == id {
			m.notifications[userID][i].IsRead = true
		}
	}
	return nil
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id, userID string) error {
	kept := m.notifications[userID][:0]
	for _, n := range m.notifications[userID] {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	m.notifications[userID] = kept
	return nil
}

func (m *mockNotificationRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, n := range m.notifications[userID] {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) CleanupOlderThan(ctx context.Context, days int, onlyIfRead bool) (int64, error) {
	m.cleanupDays = days
	m.cleanupRead = onlyIfRead
	return 3, nil
}

func TestNotificationServiceNotify(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, nil, nil)

	svc.Notify(context.Background(), "stu-1", "Complaint Submitted", "Your complaint was received.", models.NotificationSuccess, "cmp-1")

	require.Len(t, repo.notifications["stu-1"], 1)
	created := repo.notifications["stu-1"][0]
	assert.Equal(t, models.NotificationSuccess, created.Type)
	assert.False(t, created.IsRead)
	require.NotNil(t, created.RelatedID)
	assert.Equal(t, "cmp-1", *created.RelatedID)
}

func TestNotificationServiceNotifySwallowsFailures(t *testing.T) {
	repo := &mockNotificationRepo{createErr: errors.New("insert failed")}
	svc := NewNotificationService(repo, nil, nil)

	// Must not panic or propagate; the triggering operation already
	// succeeded.
	svc.Notify(context.Background(), "stu-1", "title", "message", models.NotificationInfo, "")
	assert.Empty(t, repo.notifications["stu-1"])
}

func TestNotificationServiceNotifyNormalisesUnknownType(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, nil, nil)

	svc.Notify(context.Background(), "stu-1", "title", "message", "celebration", "")
	require.Len(t, repo.notifications["stu-1"], 1)
	assert.Equal(t, models.NotificationInfo, repo.notifications["stu-1"][0].Type)
}

func TestNotificationServiceListWithUnreadCount(t *testing.T) {
	repo := &mockNotificationRepo{notifications: map[string][]models.Notification{
		"stu-1": {
			{ID: "ntf-1", UserID: "stu-1", IsRead: false},
			{ID: "ntf-2", UserID: "stu-1", IsRead: true},
		},
	}}
	svc := NewNotificationService(repo, nil, nil)

	list, unread, err := svc.List(context.Background(), "stu-1", 20)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 1, unread)
}

func TestNotificationServiceMarkReadUnknownIDSucceeds(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, nil, nil)

	require.NoError(t, svc.MarkRead(context.Background(), "does-not-exist", "stu-1"))
}

func TestNotificationServiceCleanup(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, nil, nil)

	svc.Cleanup(context.Background(), 30)
	assert.Equal(t, 30, repo.cleanupDays)
	assert.True(t, repo.cleanupRead)
}
