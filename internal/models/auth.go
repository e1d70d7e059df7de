package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the signed payload carried by the session cookie (or an
// Authorization Bearer header). Scope attributes are snapshotted at login.
type SessionClaims struct {
	UserID     string   `json:"user_id"`
	Name       string   `json:"name,omitempty"`
	Role       UserRole `json:"role"`
	Position   string   `json:"position,omitempty"`
	Department string   `json:"department,omitempty"`
	Faculty    string   `json:"faculty,omitempty"`
	Courses    string   `json:"courses,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the session belongs to an admin account.
func (c *SessionClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// CourseList splits the comma separated courses claim.
func (c *SessionClaims) CourseList() []string {
	if c == nil || c.Courses == "" {
		return nil
	}
	return SplitCourses(c.Courses)
}

// LoginResponse returns the issued session token and user info.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	User      UserInfo  `json:"user"`
	IssuedAt  time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Role      UserRole `json:"role"`
	Position  string   `json:"position,omitempty"`
}
