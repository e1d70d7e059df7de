package models

import (
	"strings"
	"time"
)

// UserRole distinguishes the two account kinds of the portal.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleAdmin   UserRole = "admin"
)

// AdminPosition is an admin's organizational role. It determines which
// complaints the admin may see.
type AdminPosition string

const (
	PositionLecturer    AdminPosition = "lecturer"
	PositionHOD         AdminPosition = "hod"
	PositionDean        AdminPosition = "dean"
	PositionSystemAdmin AdminPosition = "system-administrator"
)

// User represents a row in the users table. Students carry studentId,
// department, faculty and level; admins carry staffId, position and the scope
// attribute their position needs.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Role         UserRole  `db:"role" json:"role"`
	StudentID    *string   `db:"student_id" json:"student_id,omitempty"`
	StaffID      *string   `db:"staff_id" json:"staff_id,omitempty"`
	Level        *string   `db:"level" json:"level,omitempty"`
	Position     *string   `db:"position" json:"position,omitempty"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Department   *string   `db:"department" json:"department,omitempty"`
	Faculty      *string   `db:"faculty" json:"faculty,omitempty"`
	Courses      *string   `db:"courses" json:"courses,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name for display and audit columns.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// CourseList splits the comma separated courses column.
func (u *User) CourseList() []string {
	if u.Courses == nil {
		return nil
	}
	return SplitCourses(*u.Courses)
}

// SplitCourses parses a comma separated course-code list, dropping blanks.
func SplitCourses(raw string) []string {
	parts := strings.Split(raw, ",")
	courses := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			courses = append(courses, trimmed)
		}
	}
	return courses
}

// PasswordResetToken is a single-use reset credential with a hard expiry.
type PasswordResetToken struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`
	Token     string    `db:"token" json:"token"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
