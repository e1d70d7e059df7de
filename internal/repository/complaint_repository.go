package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uniportal/ecms-api/internal/models"
	"github.com/uniportal/ecms-api/internal/scope"
	"github.com/uniportal/ecms-api/pkg/database"
)

const complaintColumns = `id, reference_number, user_id, full_name, student_id, email, phone, exam_name, exam_date,
complaint_type, description, desired_resolution, evidence_url, course, department, faculty, status, created_at, updated_at`

// ComplaintRepository provides persistence for complaints, their responses
// and the status history log.
type ComplaintRepository struct {
	db    *sqlx.DB
	retry database.RetryPolicy
}

// NewComplaintRepository creates the repository. The retry policy applies to
// read queries only.
func NewComplaintRepository(db *sqlx.DB, retry database.RetryPolicy) *ComplaintRepository {
	return &ComplaintRepository{db: db, retry: retry}
}

// List returns complaint summaries visible under the filter, newest first.
func (r *ComplaintRepository) List(ctx context.Context, filter scope.Filter, limit, offset int) ([]models.ComplaintSummary, int, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	var args []interface{}
	where := "1=1"
	if clause, clauseArgs := filter.SQL(1); clause != "" {
		where = clause
		args = clauseArgs
	}

	query := fmt.Sprintf(`SELECT id, reference_number, full_name, exam_name, exam_date, complaint_type, status, created_at
FROM complaints WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, where, limit, offset)

	var summaries []models.ComplaintSummary
	err := r.retry.Do(ctx, func() error {
		summaries = nil
		return r.db.SelectContext(ctx, &summaries, query, args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list complaints: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM complaints WHERE %s", where)
	var total int
	err = r.retry.Do(ctx, func() error {
		return r.db.GetContext(ctx, &total, countQuery, args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("count complaints: %w", err)
	}

	return summaries, total, nil
}

// GetByID returns a complaint by identifier. Visibility is the caller's
// concern: services evaluate the scope filter against the loaded row.
func (r *ComplaintRepository) GetByID(ctx context.Context, id string) (*models.Complaint, error) {
	query := fmt.Sprintf("SELECT %s FROM complaints WHERE id = $1", complaintColumns)

	var complaint models.Complaint
	err := r.retry.Do(ctx, func() error {
		return r.db.GetContext(ctx, &complaint, query, id)
	})
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}

// Create inserts a new complaint with status pending.
func (r *ComplaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	if complaint.ID == "" {
		complaint.ID = uuid.NewString()
	}
	if complaint.Status == "" {
		complaint.Status = models.StatusPending
	}
	now := time.Now().UTC()
	complaint.CreatedAt = now
	complaint.UpdatedAt = now

	const query = `INSERT INTO complaints
	(id, reference_number, user_id, full_name, student_id, email, phone, exam_name, exam_date,
	 complaint_type, description, desired_resolution, evidence_url, course, department, faculty, status, created_at, updated_at)
	VALUES (:id, :reference_number, :user_id, :full_name, :student_id, :email, :phone, :exam_name, :exam_date,
	 :complaint_type, :description, :desired_resolution, :evidence_url, :course, :department, :faculty, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, complaint); err != nil {
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

// History returns the status log for a complaint, newest first.
func (r *ComplaintRepository) History(ctx context.Context, complaintID string) ([]models.StatusHistoryEntry, error) {
	const query = `SELECT id, complaint_id, old_status, new_status, changed_by, changed_by_name, notes, created_at
FROM complaint_status_history WHERE complaint_id = $1 ORDER BY created_at DESC`

	var entries []models.StatusHistoryEntry
	err := r.retry.Do(ctx, func() error {
		entries = nil
		return r.db.SelectContext(ctx, &entries, query, complaintID)
	})
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return entries, nil
}

// UpdateStatusParams carries one status transition.
type UpdateStatusParams struct {
	ComplaintID   string
	NewStatus     models.ComplaintStatus
	ChangedBy     string
	ChangedByName string
	Notes         *string
}

// UpdateStatus applies a status transition atomically: the complaint row is
// locked for the read-modify-append window, the status column is updated and
// exactly one history row is written. Either all three happen or none do.
// The transaction is never retried; an ambiguous failure is surfaced as-is.
func (r *ComplaintRepository) UpdateStatus(ctx context.Context, params UpdateStatusParams) (models.ComplaintStatus, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return "", fmt.Errorf("begin status transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var oldStatus models.ComplaintStatus
	if err = tx.GetContext(ctx, &oldStatus, "SELECT status FROM complaints WHERE id = $1 FOR UPDATE", params.ComplaintID); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, "UPDATE complaints SET status = $1, updated_at = $2 WHERE id = $3",
		params.NewStatus, now, params.ComplaintID); err != nil {
		return "", fmt.Errorf("update complaint status: %w", err)
	}

	const historyQuery = `INSERT INTO complaint_status_history
	(id, complaint_id, old_status, new_status, changed_by, changed_by_name, notes, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err = tx.ExecContext(ctx, historyQuery,
		uuid.NewString(), params.ComplaintID, oldStatus, params.NewStatus,
		params.ChangedBy, params.ChangedByName, params.Notes, now); err != nil {
		return "", fmt.Errorf("insert status history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit status transaction: %w", err)
	}
	return oldStatus, nil
}

// NextReference builds a submission reference number.
func NextReference(now time.Time) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("REF-%s-%s", now.UTC().Format("20060102"), strings.ToUpper(raw[:6]))
}
