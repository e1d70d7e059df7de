package models

import "time"

// ComplaintStatus enumerates the workflow states of a complaint. Transitions
// are admin-triggered and deliberately unconstrained: re-opening a resolved
// complaint is allowed.
type ComplaintStatus string

const (
	StatusPending     ComplaintStatus = "pending"
	StatusUnderReview ComplaintStatus = "under-review"
	StatusResolved    ComplaintStatus = "resolved"
)

// ValidStatus reports whether s is one of the known workflow states.
func ValidStatus(s ComplaintStatus) bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusResolved:
		return true
	}
	return false
}

// Complaint is a student's exam complaint. Everything except status and
// updated_at is immutable after submission.
type Complaint struct {
	ID                string          `db:"id" json:"id"`
	ReferenceNumber   string          `db:"reference_number" json:"reference_number"`
	UserID            string          `db:"user_id" json:"user_id"`
	FullName          string          `db:"full_name" json:"full_name"`
	StudentID         string          `db:"student_id" json:"student_id"`
	Email             string          `db:"email" json:"email"`
	Phone             *string         `db:"phone" json:"phone,omitempty"`
	ExamName          string          `db:"exam_name" json:"exam_name"`
	ExamDate          time.Time       `db:"exam_date" json:"exam_date"`
	ComplaintType     string          `db:"complaint_type" json:"complaint_type"`
	Description       string          `db:"description" json:"description"`
	DesiredResolution string          `db:"desired_resolution" json:"desired_resolution"`
	EvidenceURL       *string         `db:"evidence_url" json:"evidence_url,omitempty"`
	Course            *string         `db:"course" json:"course,omitempty"`
	Department        *string         `db:"department" json:"department,omitempty"`
	Faculty           *string         `db:"faculty" json:"faculty,omitempty"`
	Status            ComplaintStatus `db:"status" json:"status"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// ComplaintSummary is the list-view projection of a complaint.
type ComplaintSummary struct {
	ID              string          `db:"id" json:"id"`
	ReferenceNumber string          `db:"reference_number" json:"reference_number"`
	FullName        string          `db:"full_name" json:"student"`
	ExamName        string          `db:"exam_name" json:"exam_name"`
	ExamDate        time.Time       `db:"exam_date" json:"exam_date"`
	ComplaintType   string          `db:"complaint_type" json:"type"`
	Status          ComplaintStatus `db:"status" json:"status"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// StatusHistoryEntry is one append-only audit row per status change.
type StatusHistoryEntry struct {
	ID            string          `db:"id" json:"id"`
	ComplaintID   string          `db:"complaint_id" json:"complaint_id"`
	OldStatus     ComplaintStatus `db:"old_status" json:"old_status"`
	NewStatus     ComplaintStatus `db:"new_status" json:"new_status"`
	ChangedBy     string          `db:"changed_by" json:"changed_by"`
	ChangedByName string          `db:"changed_by_name" json:"changed_by_name"`
	Notes         *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Response is an admin's append-only reply to a complaint.
type Response struct {
	ID          string    `db:"id" json:"id"`
	ComplaintID string    `db:"complaint_id" json:"complaint_id"`
	Text        string    `db:"text" json:"text"`
	Author      string    `db:"author" json:"author"`
	AuthorID    string    `db:"author_id" json:"author_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ComplaintDetail bundles a complaint with its responses and, for admins, the
// status history.
type ComplaintDetail struct {
	Complaint
	Responses     []Response           `json:"responses"`
	StatusHistory []StatusHistoryEntry `json:"status_history,omitempty"`
}
