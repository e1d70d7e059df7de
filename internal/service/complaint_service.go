package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniportal/ecms-api/internal/models"
	"github.com/uniportal/ecms-api/internal/repository"
	"github.com/uniportal/ecms-api/internal/scope"
	"github.com/uniportal/ecms-api/pkg/database"
	appErrors "github.com/uniportal/ecms-api/pkg/errors"
)

type complaintRepository interface {
	List(ctx context.Context, filter scope.Filter, limit, offset int) ([]models.ComplaintSummary, int, error)
	GetByID(ctx context.Context, id string) (*models.Complaint, error)
	Create(ctx context.Context, complaint *models.Complaint) error
	History(ctx context.Context, complaintID string) ([]models.StatusHistoryEntry, error)
	UpdateStatus(ctx context.Context, params repository.UpdateStatusParams) (models.ComplaintStatus, error)
}

type responseReader interface {
	ListForComplaint(ctx context.Context, complaintID string) ([]models.Response, error)
}

// notifier delivers best-effort in-app notifications. Failures must never
// affect the outcome of the operation that triggered them.
type notifier interface {
	Notify(ctx context.Context, userID, title, message string, typ models.NotificationType, relatedID string)
}

// ComplaintService handles submission, visibility-scoped reads and the
// status workflow.
type ComplaintService struct {
	repo      complaintRepository
	responses responseReader
	notifier  notifier
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewComplaintService constructs the service. notifier, cache and metrics
// are optional.
func NewComplaintService(repo complaintRepository, responses responseReader, n notifier, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ComplaintService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplaintService{
		repo:      repo,
		responses: responses,
		notifier:  n,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// CreateComplaintRequest describes the submission payload.
type CreateComplaintRequest struct {
	FullName          string  `json:"full_name" validate:"required"`
	StudentID         string  `json:"student_id" validate:"required"`
	Email             string  `json:"email" validate:"required,email"`
	Phone             *string `json:"phone"`
	ExamName          string  `json:"exam_name" validate:"required"`
	ExamDate          string  `json:"exam_date" validate:"required,datetime=2006-01-02"`
	ComplaintType     string  `json:"complaint_type" validate:"required"`
	Description       string  `json:"description" validate:"required,min=10"`
	DesiredResolution string  `json:"desired_resolution" validate:"required,min=5"`
	EvidenceURL       *string `json:"evidence_url" validate:"omitempty,url"`
	Course            *string `json:"course"`
	Department        *string `json:"department"`
	Faculty           *string `json:"faculty"`
}

// ComplaintListRequest describes list filters.
type ComplaintListRequest struct {
	Page     int
	PageSize int
}

// UpdateStatusRequest describes one workflow transition.
type UpdateStatusRequest struct {
	Status models.ComplaintStatus `json:"status" validate:"required"`
	Notes  *string                `json:"notes"`
}

// Create submits a new complaint on behalf of the authenticated student.
func (s *ComplaintService) Create(ctx context.Context, claims *models.SessionClaims, req CreateComplaintRequest) (*models.Complaint, error) {
	if claims == nil || claims.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can submit complaints")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complaint payload")
	}

	examDate, err := time.Parse("2006-01-02", req.ExamDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam_date must be YYYY-MM-DD")
	}

	complaint := &models.Complaint{
		ReferenceNumber:   repository.NextReference(time.Now()),
		UserID:            claims.UserID,
		FullName:          req.FullName,
		StudentID:         req.StudentID,
		Email:             req.Email,
		Phone:             req.Phone,
		ExamName:          req.ExamName,
		ExamDate:          examDate,
		ComplaintType:     req.ComplaintType,
		Description:       req.Description,
		DesiredResolution: req.DesiredResolution,
		EvidenceURL:       req.EvidenceURL,
		Course:            req.Course,
		Department:        req.Department,
		Faculty:           req.Faculty,
		Status:            models.StatusPending,
	}
	if err := s.repo.Create(ctx, complaint); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit complaint")
	}

	if s.metrics != nil {
		s.metrics.RecordComplaintSubmitted()
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, "analytics:*")
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, claims.UserID,
			"Complaint Submitted",
			fmt.Sprintf("Your complaint %s has been received and is pending review.", complaint.ReferenceNumber),
			models.NotificationSuccess, complaint.ID)
	}

	s.logger.Info("complaint submitted",
		zap.String("complaint_id", complaint.ID),
		zap.String("reference", complaint.ReferenceNumber))
	return complaint, nil
}

// List returns the complaints visible to the actor, newest first.
func (s *ComplaintService) List(ctx context.Context, actor scope.Actor, req ComplaintListRequest) ([]models.ComplaintSummary, *models.Pagination, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 10
	}

	filter := scope.ForActor(actor)
	summaries, total, err := s.repo.List(ctx, filter, req.PageSize, (req.Page-1)*req.PageSize)
	if err != nil {
		if database.IsTransient(err) {
			return nil, nil, appErrors.Clone(appErrors.ErrUnavailable, "database temporarily unavailable")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints")
	}
	if summaries == nil {
		summaries = []models.ComplaintSummary{}
	}
	pagination := &models.Pagination{Page: req.Page, PageSize: req.PageSize, TotalCount: total}
	return summaries, pagination, nil
}

// Get returns a complaint with its responses and, for admins, the status
// history. A complaint outside the actor's scope is reported as not found;
// its existence is not disclosed.
func (s *ComplaintService) Get(ctx context.Context, actor scope.Actor, id string) (*models.ComplaintDetail, error) {
	complaint, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	responses, err := s.responses.ListForComplaint(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load responses")
	}
	if responses == nil {
		responses = []models.Response{}
	}

	detail := &models.ComplaintDetail{Complaint: *complaint, Responses: responses}
	if actor.Role == models.RoleAdmin {
		history, err := s.repo.History(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status history")
		}
		detail.StatusHistory = history
	}
	return detail, nil
}

// UpdateStatus applies one workflow transition, notifies the complaint
// owner and returns the complaint together with its full history, newest
// entry first. The notification is dispatched only after the transition has
// committed, and its failure does not fail the update.
func (s *ComplaintService) UpdateStatus(ctx context.Context, actor scope.Actor, actorName, id string, req UpdateStatusRequest) (*models.ComplaintDetail, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can update complaint status")
	}
	if !models.ValidStatus(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, under-review or resolved")
	}

	complaint, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	oldStatus, err := s.repo.UpdateStatus(ctx, repository.UpdateStatusParams{
		ComplaintID:   id,
		NewStatus:     req.Status,
		ChangedBy:     actor.UserID,
		ChangedByName: actorName,
		Notes:         req.Notes,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}

	if s.metrics != nil {
		s.metrics.RecordStatusTransition(string(oldStatus), string(req.Status))
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, "analytics:*")
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, complaint.UserID,
			"Complaint Status Updated",
			fmt.Sprintf("Your complaint %s moved from %s to %s.", complaint.ReferenceNumber, oldStatus, req.Status),
			notificationTypeForStatus(req.Status), complaint.ID)
	}

	s.logger.Info("complaint status updated",
		zap.String("complaint_id", id),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(req.Status)),
		zap.String("changed_by", actor.UserID))

	complaint.Status = req.Status
	complaint.UpdatedAt = time.Now().UTC()

	history, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status history")
	}
	responses, err := s.responses.ListForComplaint(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load responses")
	}
	if responses == nil {
		responses = []models.Response{}
	}
	return &models.ComplaintDetail{Complaint: *complaint, Responses: responses, StatusHistory: history}, nil
}

// History returns the status log of a visible complaint.
func (s *ComplaintService) History(ctx context.Context, actor scope.Actor, id string) ([]models.StatusHistoryEntry, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can view status history")
	}
	if _, err := s.loadVisible(ctx, actor, id); err != nil {
		return nil, err
	}
	history, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status history")
	}
	return history, nil
}

// loadVisible loads a complaint and enforces the actor's visibility filter.
// Out-of-scope and nonexistent complaints are indistinguishable to callers.
func (s *ComplaintService) loadVisible(ctx context.Context, actor scope.Actor, id string) (*models.Complaint, error) {
	complaint, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		if database.IsTransient(err) {
			return nil, appErrors.Clone(appErrors.ErrUnavailable, "database temporarily unavailable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	if !scope.ForActor(actor).Allows(complaint) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
	}
	return complaint, nil
}

func notificationTypeForStatus(status models.ComplaintStatus) models.NotificationType {
	switch status {
	case models.StatusResolved:
		return models.NotificationSuccess
	case models.StatusUnderReview:
		return models.NotificationInfo
	default:
		return models.NotificationInfo
	}
}
