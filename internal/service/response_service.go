package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniportal/ecms-api/internal/models"
	"github.com/uniportal/ecms-api/internal/scope"
	appErrors "github.com/uniportal/ecms-api/pkg/errors"
	"github.com/uniportal/ecms-api/pkg/mailer"
)

type complaintReader interface {
	GetByID(ctx context.Context, id string) (*models.Complaint, error)
}

type responseRepository interface {
	ListForComplaint(ctx context.Context, complaintID string) ([]models.Response, error)
	Create(ctx context.Context, response *models.Response) error
}

// ResponseService appends admin replies to complaints and fans out the
// student-facing notifications.
type ResponseService struct {
	repo       responseRepository
	complaints complaintReader
	notifier   notifier
	mailer     mailer.Mailer
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	appURL     string
}

// NewResponseService constructs the service. mailer, notifier and metrics
// are optional.
func NewResponseService(repo responseRepository, complaints complaintReader, n notifier, m mailer.Mailer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, appURL string) *ResponseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseService{
		repo:       repo,
		complaints: complaints,
		notifier:   n,
		mailer:     m,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		appURL:     appURL,
	}
}

// CreateResponseRequest describes the reply payload.
type CreateResponseRequest struct {
	Text string `json:"text" validate:"required,min=2"`
}

// Create appends a reply to a complaint within the admin's scope. The email
// and in-app notification are best-effort: the reply stands even if both
// deliveries fail.
func (s *ResponseService) Create(ctx context.Context, actor scope.Actor, actorName, complaintID string, req CreateResponseRequest) (*models.Response, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can respond to complaints")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid response payload")
	}

	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	if !scope.ForActor(actor).Allows(complaint) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
	}

	response := &models.Response{
		ComplaintID: complaintID,
		Text:        req.Text,
		Author:      actorName,
		AuthorID:    actor.UserID,
	}
	if err := s.repo.Create(ctx, response); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save response")
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, complaint.UserID,
			"New Response to Your Complaint",
			fmt.Sprintf("%s responded to your complaint %s.", actorName, complaint.ReferenceNumber),
			models.NotificationInfo, complaint.ID)
	}
	if s.mailer != nil {
		err := s.mailer.SendComplaintResponse(ctx, complaint.Email, mailer.ResponseDetails{
			ExamName:     complaint.ExamName,
			ResponseText: req.Text,
			AdminName:    actorName,
			ViewURL:      fmt.Sprintf("%s/complaints/%s", s.appURL, complaint.ID),
		})
		if s.metrics != nil {
			s.metrics.RecordEmail("complaint_response", err == nil)
		}
		if err != nil {
			s.logger.Error("failed to send response email",
				zap.String("complaint_id", complaint.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("response created",
		zap.String("complaint_id", complaintID),
		zap.String("author_id", actor.UserID))
	return response, nil
}

// ListForComplaint returns the replies of a complaint visible to the actor.
func (s *ResponseService) ListForComplaint(ctx context.Context, actor scope.Actor, complaintID string) ([]models.Response, error) {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	if !scope.ForActor(actor).Allows(complaint) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
	}

	responses, err := s.repo.ListForComplaint(ctx, complaintID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list responses")
	}
	if responses == nil {
		responses = []models.Response{}
	}
	return responses, nil
}
