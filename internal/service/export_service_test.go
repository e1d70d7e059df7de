package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniportal/ecms-api/internal/models"
	"github.com/uniportal/ecms-api/internal/scope"
	appErrors "github.com/uniportal/ecms-api/pkg/errors"
)

type stubExportRepo struct {
	lastFilter scope.Filter
	summaries  []models.ComplaintSummary
}

func (s *stubExportRepo) List(ctx context.Context, filter scope.Filter, limit, offset int) ([]models.ComplaintSummary, int, error) {
	s.lastFilter = filter
	return s.summaries, len(s.summaries), nil
}

func TestExportServiceGenerateCSV(t *testing.T) {
	repo := &stubExportRepo{summaries: []models.ComplaintSummary{{
		ID:              "cmp-1",
		ReferenceNumber: "REF-20250110-ABC123",
		FullName:        "Ada Obi",
		ExamName:        "Algorithms Final",
		ExamDate:        time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		ComplaintType:   "grading-error",
		Status:          models.StatusPending,
		CreatedAt:       time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC),
	}}}
	svc := NewExportService(repo, nil, nil, nil)

	admin := scope.Actor{UserID: "adm-1", Role: models.RoleAdmin, Position: "system-administrator"}
	result, err := svc.Generate(context.Background(), admin, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Data)
	assert.Contains(t, body, "REF-20250110-ABC123")
	assert.Contains(t, body, "Algorithms Final")
	assert.Contains(t, body, "pending")
}

func TestExportServiceGeneratePDF(t *testing.T) {
	repo := &stubExportRepo{summaries: []models.ComplaintSummary{{
		ID:              "cmp-1",
		ReferenceNumber: "REF-20250110-ABC123",
		FullName:        "Ada Obi",
		ExamName:        "Algorithms Final",
		Status:          models.StatusResolved,
	}}}
	svc := NewExportService(repo, nil, nil, nil)

	admin := scope.Actor{UserID: "adm-1", Role: models.RoleAdmin, Position: "dean", Faculty: "Science"}
	result, err := svc.Generate(context.Background(), admin, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Data), "%PDF"))
}

func TestExportServiceUsesActorScope(t *testing.T) {
	repo := &stubExportRepo{}
	svc := NewExportService(repo, nil, nil, nil)

	lecturer := scope.Actor{UserID: "adm-1", Role: models.RoleAdmin, Position: "lecturer", Courses: []string{"CS101"}}
	_, err := svc.Generate(context.Background(), lecturer, FormatCSV)
	require.NoError(t, err)

	// The export ran through the same visibility filter as listing.
	visible := seedComplaint("cmp-1", "stu-1", "CS101", models.StatusPending)
	hidden := seedComplaint("cmp-2", "stu-2", "CS303", models.StatusPending)
	assert.True(t, repo.lastFilter.Allows(&visible))
	assert.False(t, repo.lastFilter.Allows(&hidden))
}

func TestExportServiceRejectsStudentsAndUnknownFormats(t *testing.T) {
	svc := NewExportService(&stubExportRepo{}, nil, nil, nil)

	student := scope.Actor{UserID: "stu-1", Role: models.RoleStudent}
	_, err := svc.Generate(context.Background(), student, FormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	admin := scope.Actor{UserID: "adm-1", Role: models.RoleAdmin, Position: "system-administrator"}
	_, err = svc.Generate(context.Background(), admin, ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
