package models

// AnalyticsFilter narrows the admin analytics queries.
type AnalyticsFilter struct {
	StartDate string
	EndDate   string
	Status    string
	Type      string
}

// TrendPoint is one day of complaint volume broken down by status.
type TrendPoint struct {
	Date        string `db:"date" json:"date"`
	Count       int    `db:"count" json:"count"`
	Pending     int    `db:"pending" json:"pending"`
	UnderReview int    `db:"under_review" json:"under_review"`
	Resolved    int    `db:"resolved" json:"resolved"`
}

// DistributionSlice is a labelled share of the complaint population.
type DistributionSlice struct {
	Label      string  `db:"label" json:"label"`
	Count      int     `db:"count" json:"count"`
	Percentage float64 `db:"percentage" json:"percentage"`
}

// ResolutionTimes summarises days-to-resolution for resolved complaints.
type ResolutionTimes struct {
	AvgDays float64 `db:"avg_days" json:"avg_days"`
	MinDays float64 `db:"min_days" json:"min_days"`
	MaxDays float64 `db:"max_days" json:"max_days"`
}

// HourBucket is complaint volume for one hour of the day.
type HourBucket struct {
	Hour  int `db:"hour" json:"hour"`
	Count int `db:"count" json:"count"`
}

// ExamComplaintCount ranks exams by complaint volume.
type ExamComplaintCount struct {
	ExamName          string   `db:"exam_name" json:"exam_name"`
	ComplaintCount    int      `db:"complaint_count" json:"complaint_count"`
	AvgResolutionDays *float64 `db:"avg_resolution_days" json:"avg_resolution_days,omitempty"`
}

// ResponseStats summarises admin responsiveness.
type ResponseStats struct {
	ComplaintsWithResponses int      `db:"complaints_with_responses" json:"complaints_with_responses"`
	TotalResponses          int      `db:"total_responses" json:"total_responses"`
	AvgFirstResponseDays    *float64 `db:"avg_first_response_days" json:"avg_first_response_days,omitempty"`
}

// Analytics is the aggregate payload of the admin analytics endpoint.
type Analytics struct {
	Trends             []TrendPoint        `json:"trends"`
	TypeDistribution   []DistributionSlice `json:"type_distribution"`
	StatusDistribution []DistributionSlice `json:"status_distribution"`
	ResolutionTimes    ResolutionTimes     `json:"resolution_times"`
	HourlyDistribution []HourBucket        `json:"hourly_distribution"`
	TopExams           []ExamComplaintCount `json:"top_exams"`
	ResponseStats      ResponseStats       `json:"response_stats"`
}

// AdminStats is the dashboard headline block.
type AdminStats struct {
	TotalStudents     int     `json:"total_students"`
	TotalComplaints   int     `json:"total_complaints"`
	PendingReview     int     `json:"pending_review"`
	ResolvedThisMonth int     `json:"resolved_this_month"`
	ActiveAdmins      int     `json:"active_admins"`
	AvgResolutionDays float64 `json:"avg_resolution_days"`
	ActiveToday       int     `json:"active_today"`
}
