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

// ResponseRepository persists admin replies to complaints.
type ResponseRepository struct {
	db    *sqlx.DB
	retry database.RetryPolicy
}

// NewResponseRepository creates the repository.
func NewResponseRepository(db *sqlx.DB, retry database.RetryPolicy) *ResponseRepository {
	return &ResponseRepository{db: db, retry: retry}
}

// ListForComplaint returns all responses for a complaint, newest first.
func (r *ResponseRepository) ListForComplaint(ctx context.Context, complaintID string) ([]models.Response, error) {
	const query = `SELECT id, complaint_id, text, author, author_id, created_at
FROM responses WHERE complaint_id = $1 ORDER BY created_at DESC`

	var responses []models.Response
	err := r.retry.Do(ctx, func() error {
		responses = nil
		return r.db.SelectContext(ctx, &responses, query, complaintID)
	})
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return responses, nil
}

// Create appends a response row.
func (r *ResponseRepository) Create(ctx context.Context, response *models.Response) error {
	if response.ID == "" {
		response.ID = uuid.NewString()
	}
	if response.CreatedAt.IsZero() {
		response.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO responses (id, complaint_id, text, author, author_id, created_at)
VALUES (:id, :complaint_id, :text, :author, :author_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, response); err != nil {
		return fmt.Errorf("create response: %w", err)
	}
	return nil
}
