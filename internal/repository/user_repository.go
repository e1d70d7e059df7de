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

const userColumns = `id, email, password_hash, first_name, last_name, role, student_id, staff_id, level,
position, phone, department, faculty, courses, created_at, updated_at`

// UserRepository provides persistence for user accounts and password reset
// tokens.
type UserRepository struct {
	db    *sqlx.DB
	retry database.RetryPolicy
}

// NewUserRepository creates the repository.
func NewUserRepository(db *sqlx.DB, retry database.RetryPolicy) *UserRepository {
	return &UserRepository{db: db, retry: retry}
}

// FindByEmail returns the user with the given email and role.
func (r *UserRepository) FindByEmail(ctx context.Context, email string, role models.UserRole) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1 AND role = $2 LIMIT 1", userColumns)

	var user models.User
	err := r.retry.Do(ctx, func() error {
		return r.db.GetContext(ctx, &user, query, email, role)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns the user with the given identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1 LIMIT 1", userColumns)

	var user models.User
	err := r.retry.Do(ctx, func() error {
		return r.db.GetContext(ctx, &user, query, id)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByEmailOrStudentID reports whether an account already uses the email
// or student id.
func (r *UserRepository) ExistsByEmailOrStudentID(ctx context.Context, email, studentID string) (bool, error) {
	var count int
	err := r.retry.Do(ctx, func() error {
		return r.db.GetContext(ctx, &count,
			"SELECT COUNT(*) FROM users WHERE email = $1 OR student_id = $2", email, studentID)
	})
	if err != nil {
		return false, fmt.Errorf("check user existence: %w", err)
	}
	return count > 0, nil
}

// ExistsAdminByEmail reports whether an admin account already uses the email.
func (r *UserRepository) ExistsAdminByEmail(ctx context.Context, email string) (bool, error) {
	var count int
	err := r.retry.Do(ctx, func() error {
		return r.db.GetContext(ctx, &count,
			"SELECT COUNT(*) FROM users WHERE email = $1 AND role = $2", email, models.RoleAdmin)
	})
	if err != nil {
		return false, fmt.Errorf("check admin existence: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `INSERT INTO users
	(id, email, password_hash, first_name, last_name, role, student_id, staff_id, level,
	 position, phone, department, faculty, courses, created_at, updated_at)
	VALUES (:id, :email, :password_hash, :first_name, :last_name, :role, :student_id, :staff_id, :level,
	 :position, :phone, :department, :faculty, :courses, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateProfile stores the editable account fields. The role predicate keeps
// a student update from ever touching an admin row with the same id.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()

	const query = `UPDATE users SET email = :email, first_name = :first_name, last_name = :last_name,
	phone = :phone, department = :department, faculty = :faculty, updated_at = :updated_at
	WHERE id = :id AND role = :role`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = "UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3"
	if _, err := r.db.ExecContext(ctx, query, passwordHash, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// CreateResetToken stores a password reset token.
func (r *UserRepository) CreateResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	const query = `INSERT INTO password_reset_tokens (id, user_id, role, token, expires_at)
VALUES (:id, :user_id, :role, :token, :expires_at)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}
	return nil
}

// FindValidResetToken returns an unexpired token matching both value and user.
func (r *UserRepository) FindValidResetToken(ctx context.Context, token, userID string) (*models.PasswordResetToken, error) {
	const query = `SELECT id, user_id, role, token, expires_at FROM password_reset_tokens
WHERE token = $1 AND user_id = $2 AND expires_at > $3 LIMIT 1`

	var reset models.PasswordResetToken
	err := r.retry.Do(ctx, func() error {
		return r.db.GetContext(ctx, &reset, query, token, userID, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	return &reset, nil
}

// DeleteResetToken removes a consumed token.
func (r *UserRepository) DeleteResetToken(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM password_reset_tokens WHERE token = $1", token); err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}
	return nil
}
