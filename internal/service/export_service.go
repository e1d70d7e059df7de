package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uniportal/ecms-api/internal/models"
	"github.com/uniportal/ecms-api/internal/scope"
	appErrors "github.com/uniportal/ecms-api/pkg/errors"
	"github.com/uniportal/ecms-api/pkg/export"
)

type exportComplaintRepository interface {
	List(ctx context.Context, filter scope.Filter, limit, offset int) ([]models.ComplaintSummary, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult is a rendered export file.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders an actor's visible complaints as a downloadable
// file. The same scope filter used for listing drives the export, so a file
// can never contain rows its requester could not have browsed.
type ExportService struct {
	complaints exportComplaintRepository
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(complaints exportComplaintRepository, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{complaints: complaints, csv: csv, pdf: pdf, logger: logger}
}

const exportRowLimit = 100

// Generate renders the actor's visible complaints in the requested format.
func (s *ExportService) Generate(ctx context.Context, actor scope.Actor, format ExportFormat) (*ExportResult, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can export complaints")
	}

	filter := scope.ForActor(actor)
	summaries, _, err := s.complaints.List(ctx, filter, exportRowLimit, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaints for export")
	}

	dataset := export.Dataset{
		Headers: []string{"Reference", "Student", "Exam", "Exam Date", "Type", "Status", "Submitted"},
	}
	for _, c := range summaries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Reference": c.ReferenceNumber,
			"Student":   c.FullName,
			"Exam":      c.ExamName,
			"Exam Date": c.ExamDate.Format("2006-01-02"),
			"Type":      c.ComplaintType,
			"Status":    string(c.Status),
			"Submitted": c.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case FormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("complaints-%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case FormatPDF:
		data, err := s.pdf.Render(dataset, "Exam Complaints")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("complaints-%s.pdf", stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
