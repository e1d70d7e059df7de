package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniportal/ecms-api/internal/models"
	"github.com/uniportal/ecms-api/internal/repository"
	"github.com/uniportal/ecms-api/internal/scope"
	appErrors "github.com/uniportal/ecms-api/pkg/errors"
)

type mockComplaintRepo struct {
	complaints map[string]models.Complaint
	history    []models.StatusHistoryEntry
	updateErr  error
	created    *models.Complaint
}

func (m *mockComplaintRepo) List(ctx context.Context, filter scope.Filter, limit, offset int) ([]models.ComplaintSummary, int, error) {
	var summaries []models.ComplaintSummary
	for _, c := range m.complaints {
		if filter.Allows(&c) {
			summaries = append(summaries, models.ComplaintSummary{
				ID:              c.ID,
				ReferenceNumber: c.ReferenceNumber,
				FullName:        c.FullName,
				ExamName:        c.ExamName,
				Status:          c.Status,
			})
		}
	}
	return summaries, len(summaries), nil
}

func (m *mockComplaintRepo) GetByID(ctx context.Context, id string) (*models.Complaint, error) {
	if c, ok := m.complaints[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockComplaintRepo) Create(ctx context.Context, complaint *models.Complaint) error {
	if m.complaints == nil {
		m.complaints = make(map[string]models.Complaint)
	}
	if complaint.ID == "" {
		complaint.ID = "new-complaint"
	}
	m.complaints[complaint.ID] = *complaint
	m.created = complaint
	return nil
}

func (m *mockComplaintRepo) History(ctx context.Context, complaintID string) ([]models.StatusHistoryEntry, error) {
	return m.history, nil
}

func (m *mockComplaintRepo) UpdateStatus(ctx context.Context, params repository.UpdateStatusParams) (models.ComplaintStatus, error) {
	if m.updateErr != nil {
		return "", m.updateErr
	}
	c, ok := m.complaints[params.ComplaintID]
	if !ok {
		return "", sql.ErrNoRows
	}
	old := c.Status
	c.Status = params.NewStatus
	m.complaints[params.ComplaintID] = c
	m.history = append(m.history, models.StatusHistoryEntry{
		ComplaintID:   params.ComplaintID,
		OldStatus:     old,
		NewStatus:     params.NewStatus,
		ChangedBy:     params.ChangedBy,
		ChangedByName: params.ChangedByName,
		Notes:         params.Notes,
	})
	return old, nil
}

type mockResponseReader struct {
	responses map[string][]models.Response
}

func (m *mockResponseReader) ListForComplaint(ctx context.Context, complaintID string) ([]models.Response, error) {
	return m.responses[complaintID], nil
}

type recordingNotifier struct {
	delivered []models.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, userID, title, message string, typ models.NotificationType, relatedID string) {
	n.delivered = append(n.delivered, models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    typ,
	})
}

func strPtr(s string) *string { return &s }

func seedComplaint(id string, userID string, course string, status models.ComplaintStatus) models.Complaint {
	c := models.Complaint{
		ID:              id,
		ReferenceNumber: "REF-20250110-ABC123",
		UserID:          userID,
		FullName:        "Ada Obi",
		StudentID:       "STU-100",
		Email:           "ada@uni.edu",
		ExamName:        "Algorithms Final",
		ExamDate:        time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		ComplaintType:   "grading-error",
		Status:          status,
	}
	if course != "" {
		c.Course = strPtr(course)
	}
	return c
}

func TestComplaintServiceCreate(t *testing.T) {
	repo := &mockComplaintRepo{}
	notifier := &recordingNotifier{}
	svc := NewComplaintService(repo, &mockResponseReader{}, notifier, nil, nil, nil, nil)

	claims := &models.SessionClaims{UserID: "stu-1", Role: models.RoleStudent}
	complaint, err := svc.Create(context.Background(), claims, CreateComplaintRequest{
		FullName:          "Ada Obi",
		StudentID:         "STU-100",
		Email:             "ada@uni.edu",
		ExamName:          "Algorithms Final",
		ExamDate:          "2025-01-05",
		ComplaintType:     "grading-error",
		Description:       "My second question was marked wrong despite a correct answer.",
		DesiredResolution: "Regrade the paper",
		Course:            strPtr("CS101"),
	})
	require.NoError(t, err)
	assert.Equal(t, "stu-1", complaint.UserID)
	assert.Equal(t, models.StatusPending, complaint.Status)
	assert.Regexp(t, `^REF-\d{8}-[0-9A-F]{6}$`, complaint.ReferenceNumber)
	require.Len(t, notifier.delivered, 1)
	assert.Equal(t, "stu-1", notifier.delivered[0].UserID)
}

func TestComplaintServiceCreateRejectsAdmins(t *testing.T) {
	svc := NewComplaintService(&mockComplaintRepo{}, &mockResponseReader{}, nil, nil, nil, nil, nil)

	claims := &models.SessionClaims{UserID: "adm-1", Role: models.RoleAdmin}
	_, err := svc.Create(context.Background(), claims, CreateComplaintRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestComplaintServiceGetHidesOutOfScope(t *testing.T) {
	repo := &mockComplaintRepo{complaints: map[string]models.Complaint{
		"cmp-1": seedComplaint("cmp-1", "stu-1", "CS303", models.StatusPending),
	}}
	svc := NewComplaintService(repo, &mockResponseReader{}, nil, nil, nil, nil, nil)

	lecturer := scope.Actor{UserID: "adm-1", Role: models.RoleAdmin, Position: "lecturer", Courses: []string{"CS101"}}
	_, err := svc.Get(context.Background(), lecturer, "cmp-1")
	require.Error(t, err)
	// Out of scope must be indistinguishable from nonexistent.
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Get(context.Background(), lecturer, "cmp-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestComplaintServiceGetIncludesHistoryForAdminsOnly(t *testing.T) {
	repo := &mockComplaintRepo{
		complaints: map[string]models.Complaint{
			"cmp-1": seedComplaint("cmp-1", "stu-1", "CS101", models.StatusPending),
		},
		history: []models.StatusHistoryEntry{{ComplaintID: "cmp-1", OldStatus: models.StatusPending, NewStatus: models.StatusUnderReview}},
	}
	svc := NewComplaintService(repo, &mockResponseReader{}, nil, nil, nil, nil, nil)

	owner := scope.Actor{UserID: "stu-1", Role: models.RoleStudent}
	detail, err := svc.Get(context.Background(), owner, "cmp-1")
	require.NoError(t, err)
	assert.Empty(t, detail.StatusHistory)

	admin := scope.Actor{UserID: "adm-1", Role: models.RoleAdmin, Position: "system-administrator"}
	detail, err = svc.Get(context.Background(), admin, "cmp-1")
	require.NoError(t, err)
	assert.Len(t, detail.StatusHistory, 1)
}

func TestComplaintServiceUpdateStatus(t *testing.T) {
	repo := &mockComplaintRepo{complaints: map[string]models.Complaint{
		"cmp-1": seedComplaint("cmp-1", "stu-1", "CS101", models.StatusPending),
	}}
	notifier := &recordingNotifier{}
	svc := NewComplaintService(repo, &mockResponseReader{}, notifier, nil, nil, nil, nil)

	admin := scope.Actor{UserID: "adm-1", Role: models.RoleAdmin, Position: "system-administrator"}
	notes := "Score recalculated and register corrected"
	updated, err := svc.UpdateStatus(context.Background(), admin, "Dr. Bello", "cmp-1", UpdateStatusRequest{
		Status: models.StatusResolved,
		Notes:  &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, updated.Status)
	require.Len(t, updated.StatusHistory, 1)
	assert.Equal(t, models.StatusPending, updated.StatusHistory[0].OldStatus)

	// One history row with the old and new values and the notes.
	require.Len(t, repo.history, 1)
	entry := repo.history[0]
	assert.Equal(t, models.StatusPending, entry.OldStatus)
	assert.Equal(t, models.StatusResolved, entry.NewStatus)
	assert.Equal(t, "adm-1", entry.ChangedBy)
	require.NotNil(t, entry.Notes)
	assert.Equal(t, notes, *entry.Notes)

	// The owner is told about the transition.
	require.Len(t, notifier.delivered, 1)
	assert.Equal(t, "stu-1", notifier.delivered[0].UserID)
	assert.Contains(t, notifier.delivered[0].Message, "resolved")
}

func TestComplaintServiceUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := NewComplaintService(&mockComplaintRepo{}, &mockResponseReader{}, nil, nil, nil, nil, nil)

	admin := scope.Actor{UserID: "adm-1", Role: models.RoleAdmin, Position: "system-administrator"}
	_, err := svc.UpdateStatus(context.Background(), admin, "Dr. Bello", "cmp-1", UpdateStatusRequest{Status: "closed"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestComplaintServiceUpdateStatusRejectsStudents(t *testing.T) {
	svc := NewComplaintService(&mockComplaintRepo{}, &mockResponseReader{}, nil, nil, nil, nil, nil)

	student := scope.Actor{UserID: "stu-1", Role: models.RoleStudent}
	_, err := svc.UpdateStatus(context.Background(), student, "Ada", "cmp-1", UpdateStatusRequest{Status: models.StatusResolved})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestComplaintServiceUpdateStatusFailureSkipsNotification(t *testing.T) {
	repo := &mockComplaintRepo{
		complaints: map[string]models.Complaint{
			"cmp-1": seedComplaint("cmp-1", "stu-1", "CS101", models.StatusPending),
		},
		updateErr: errors.New("deadlock detected"),
	}
	notifier := &recordingNotifier{}
	svc := NewComplaintService(repo, &mockResponseReader{}, notifier, nil, nil, nil, nil)

	admin := scope.Actor{UserID: "adm-1", Role: models.RoleAdmin, Position: "system-administrator"}
	_, err := svc.UpdateStatus(context.Background(), admin, "Dr. Bello", "cmp-1", UpdateStatusRequest{Status: models.StatusResolved})
	require.Error(t, err)
	assert.Empty(t, notifier.delivered)
}

func TestComplaintServiceListScopesByActor(t *testing.T) {
	repo := &mockComplaintRepo{complaints: map[string]models.Complaint{
		"cmp-1": seedComplaint("cmp-1", "stu-1", "CS101", models.StatusPending),
		"cmp-2": seedComplaint("cmp-2", "stu-2", "CS303", models.StatusPending),
	}}
	svc := NewComplaintService(repo, &mockResponseReader{}, nil, nil, nil, nil, nil)

	lecturer := scope.Actor{UserID: "adm-1", Role: models.RoleAdmin, Position: "lecturer", Courses: []string{"CS101"}}
	summaries, pagination, err := svc.List(context.Background(), lecturer, ComplaintListRequest{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "cmp-1", summaries[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)

	owner := scope.Actor{UserID: "stu-2", Role: models.RoleStudent}
	summaries, _, err = svc.List(context.Background(), owner, ComplaintListRequest{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "cmp-2", summaries[0].ID)
}
