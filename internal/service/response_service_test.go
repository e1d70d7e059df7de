package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniportal/ecms-api/internal/models"
	"github.com/uniportal/ecms-api/internal/scope"
	appErrors "github.com/uniportal/ecms-api/pkg/errors"
)

type mockResponseRepo struct {
	responses map[string][]models.Response
}

func (m *mockResponseRepo) ListForComplaint(ctx context.Context, complaintID string) ([]models.Response, error) {
	return m.responses[complaintID], nil
}

func (m *mockResponseRepo) Create(ctx context.Context, response *models.Response) error {
	if m.responses == nil {
		m.responses = make(map[string][]models.Response)
	}
	if response.ID == "" {
		response.ID = "new-response"
	}
	m.responses[response.ComplaintID] = append(m.responses[response.ComplaintID], *response)
	return nil
}

func TestResponseServiceCreate(t *testing.T) {
	complaints := &mockComplaintRepo{complaints: map[string]models.Complaint{
		"cmp-1": seedComplaint("cmp-1", "stu-1", "CS101", models.StatusUnderReview),
	}}
	repo := &mockResponseRepo{}
	notifier := &recordingNotifier{}
	m := &recordingMailer{}
	svc := NewResponseService(repo, complaints, notifier, m, nil, nil, nil, "http://localhost:3000")

	lecturer := scope.Actor{UserID: "adm-1", Role: models.RoleAdmin, Position: "lecturer", Courses: []string{"CS101"}}
	response, err := svc.Create(context.Background(), lecturer, "Dr. Bello", "cmp-1", CreateResponseRequest{
		Text: "We have recalculated your score and updated the register.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Bello", response.Author)
	assert.Equal(t, "adm-1", response.AuthorID)

	require.Len(t, notifier.delivered, 1)
	assert.Equal(t, "stu-1", notifier.delivered[0].UserID)

	require.Len(t, m.responseEmails, 1)
	assert.Equal(t, "Algorithms Final", m.responseEmails[0].ExamName)
	assert.Equal(t, "Dr. Bello", m.responseEmails[0].AdminName)
}

func TestResponseServiceCreateOutOfScope(t *testing.T) {
	complaints := &mockComplaintRepo{complaints: map[string]models.Complaint{
		"cmp-1": seedComplaint("cmp-1", "stu-1", "CS303", models.StatusPending),
	}}
	svc := NewResponseService(&mockResponseRepo{}, complaints, nil, nil, nil, nil, nil, "")

	lecturer := scope.Actor{UserID: "adm-1", Role: models.RoleAdmin, Position: "lecturer", Courses: []string{"CS101"}}
	_, err := svc.Create(context.Background(), lecturer, "Dr. Bello", "cmp-1", CreateResponseRequest{
		Text: "This should never be stored.",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResponseServiceCreateRejectsStudents(t *testing.T) {
	svc := NewResponseService(&mockResponseRepo{}, &mockComplaintRepo{}, nil, nil, nil, nil, nil, "")

	student := scope.Actor{UserID: "stu-1", Role: models.RoleStudent}
	_, err := svc.Create(context.Background(), student, "Ada", "cmp-1", CreateResponseRequest{Text: "hello"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestResponseServiceListForComplaintOwner(t *testing.T) {
	complaints := &mockComplaintRepo{complaints: map[string]models.Complaint{
		"cmp-1": seedComplaint("cmp-1", "stu-1", "CS101", models.StatusUnderReview),
	}}
	repo := &mockResponseRepo{responses: map[string][]models.Response{
		"cmp-1": {{ID: "rsp-1", ComplaintID: "cmp-1", Text: "Looking into it", Author: "Dr. Bello"}},
	}}
	svc := NewResponseService(repo, complaints, nil, nil, nil, nil, nil, "")

	owner := scope.Actor{UserID: "stu-1", Role: models.RoleStudent}
	responses, err := svc.ListForComplaint(context.Background(), owner, "cmp-1")
	require.NoError(t, err)
	require.Len(t, responses, 1)

	stranger := scope.Actor{UserID: "stu-2", Role: models.RoleStudent}
	_, err = svc.ListForComplaint(context.Background(), stranger, "cmp-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
