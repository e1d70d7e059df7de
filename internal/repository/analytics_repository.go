package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/uniportal/ecms-api/internal/models"
	"github.com/uniportal/ecms-api/pkg/database"
)

// AnalyticsRepository aggregates complaint data for the admin dashboards.
type AnalyticsRepository struct {
	db    *sqlx.DB
	retry database.RetryPolicy
}

// NewAnalyticsRepository creates the repository.
func NewAnalyticsRepository(db *sqlx.DB, retry database.RetryPolicy) *AnalyticsRepository {
	return &AnalyticsRepository{db: db, retry: retry}
}

func analyticsWhere(filter models.AnalyticsFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.StartDate != "" {
		args = append(args, filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.EndDate != "" {
		args = append(args, filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.Status != "" && filter.Status != "all" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != "" && filter.Type != "all" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("complaint_type = $%d", len(args)))
	}

	return strings.Join(conditions, " AND "), args
}

// Trends returns daily complaint volume per status, most recent 30 days that
// have data, in chronological order.
func (r *AnalyticsRepository) Trends(ctx context.Context, filter models.AnalyticsFilter) ([]models.TrendPoint, error) {
	where, args := analyticsWhere(filter)
	query := fmt.Sprintf(`SELECT * FROM (
	SELECT to_char(created_at::date, 'YYYY-MM-DD') AS date,
	       COUNT(*) AS count,
	       COUNT(*) FILTER (WHERE status = 'pending') AS pending,
	       COUNT(*) FILTER (WHERE status = 'under-review') AS under_review,
	       COUNT(*) FILTER (WHERE status = 'resolved') AS resolved
	FROM complaints WHERE %s
	GROUP BY created_at::date ORDER BY created_at::date DESC LIMIT 30
) recent ORDER BY date ASC`, where)

	var points []models.TrendPoint
	err := r.retry.Do(ctx, func() error {
		points = nil
		return r.db.SelectContext(ctx, &points, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("complaint trends: %w", err)
	}
	return points, nil
}

// TypeDistribution returns complaint counts and shares per complaint type.
func (r *AnalyticsRepository) TypeDistribution(ctx context.Context, filter models.AnalyticsFilter) ([]models.DistributionSlice, error) {
	return r.distribution(ctx, filter, "complaint_type")
}

// StatusDistribution returns complaint counts and shares per status.
func (r *AnalyticsRepository) StatusDistribution(ctx context.Context, filter models.AnalyticsFilter) ([]models.DistributionSlice, error) {
	return r.distribution(ctx, filter, "status")
}

func (r *AnalyticsRepository) distribution(ctx context.Context, filter models.AnalyticsFilter, column string) ([]models.DistributionSlice, error) {
	where, args := analyticsWhere(filter)
	query := fmt.Sprintf(`SELECT %s AS label, COUNT(*) AS count,
	ROUND(COUNT(*) * 100.0 / SUM(COUNT(*)) OVER (), 2) AS percentage
FROM complaints WHERE %s GROUP BY %s ORDER BY count DESC`, column, where, column)

	var slices []models.DistributionSlice
	err := r.retry.Do(ctx, func() error {
		slices = nil
		return r.db.SelectContext(ctx, &slices, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("%s distribution: %w", column, err)
	}
	return slices, nil
}

// ResolutionTimes summarises days-to-resolution over resolved complaints.
func (r *AnalyticsRepository) ResolutionTimes(ctx context.Context, filter models.AnalyticsFilter) (*models.ResolutionTimes, error) {
	where, args := analyticsWhere(filter)
	query := fmt.Sprintf(`SELECT
	COALESCE(AVG(EXTRACT(EPOCH FROM updated_at - created_at) / 86400), 0) AS avg_days,
	COALESCE(MIN(EXTRACT(EPOCH FROM updated_at - created_at) / 86400), 0) AS min_days,
	COALESCE(MAX(EXTRACT(EPOCH FROM updated_at - created_at) / 86400), 0) AS max_days
FROM complaints WHERE %s AND status = 'resolved'`, where)

	var times models.ResolutionTimes
	err := r.retry.Do(ctx, func() error {
		return r.db.GetContext(ctx, &times, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("resolution times: %w", err)
	}
	return &times, nil
}

// HourlyDistribution returns complaint volume per hour of day.
func (r *AnalyticsRepository) HourlyDistribution(ctx context.Context, filter models.AnalyticsFilter) ([]models.HourBucket, error) {
	where, args := analyticsWhere(filter)
	query := fmt.Sprintf(`SELECT EXTRACT(HOUR FROM created_at)::int AS hour, COUNT(*) AS count
FROM complaints WHERE %s GROUP BY hour ORDER BY hour`, where)

	var buckets []models.HourBucket
	err := r.retry.Do(ctx, func() error {
		buckets = nil
		return r.db.SelectContext(ctx, &buckets, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("hourly distribution: %w", err)
	}
	return buckets, nil
}

// TopExams ranks the exams drawing the most complaints.
func (r *AnalyticsRepository) TopExams(ctx context.Context, filter models.AnalyticsFilter) ([]models.ExamComplaintCount, error) {
	where, args := analyticsWhere(filter)
	query := fmt.Sprintf(`SELECT exam_name, COUNT(*) AS complaint_count,
	AVG(EXTRACT(EPOCH FROM updated_at - created_at) / 86400) FILTER (WHERE status = 'resolved') AS avg_resolution_days
FROM complaints WHERE %s GROUP BY exam_name ORDER BY complaint_count DESC LIMIT 10`, where)

	var exams []models.ExamComplaintCount
	err := r.retry.Do(ctx, func() error {
		exams = nil
		return r.db.SelectContext(ctx, &exams, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("top exams: %w", err)
	}
	return exams, nil
}

// ResponseStats summarises admin responsiveness.
func (r *AnalyticsRepository) ResponseStats(ctx context.Context, filter models.AnalyticsFilter) (*models.ResponseStats, error) {
	where, args := analyticsWhere(filter)
	query := fmt.Sprintf(`SELECT
	COUNT(DISTINCT c.id) FILTER (WHERE r.id IS NOT NULL) AS complaints_with_responses,
	COUNT(r.id) AS total_responses,
	AVG(EXTRACT(EPOCH FROM r.created_at - c.created_at) / 86400) AS avg_first_response_days
FROM complaints c LEFT JOIN responses r ON c.id = r.complaint_id
WHERE %s`, strings.ReplaceAll(where, "created_at", "c.created_at"))

	var stats models.ResponseStats
	err := r.retry.Do(ctx, func() error {
		return r.db.GetContext(ctx, &stats, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("response stats: %w", err)
	}
	return &stats, nil
}

// AdminStats collects the dashboard headline numbers.
func (r *AnalyticsRepository) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	now := time.Now().UTC()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	const query = `SELECT
	(SELECT COUNT(*) FROM users WHERE role = 'student') AS total_students,
	(SELECT COUNT(*) FROM users WHERE role = 'admin') AS active_admins,
	(SELECT COUNT(*) FROM complaints) AS total_complaints,
	(SELECT COUNT(*) FROM complaints WHERE status = 'pending') AS pending_review,
	(SELECT COUNT(*) FROM complaints WHERE status = 'resolved' AND updated_at >= $1) AS resolved_this_month,
	(SELECT COALESCE(ROUND(AVG(EXTRACT(EPOCH FROM updated_at - created_at) / 86400)::numeric, 1), 0)
	 FROM complaints WHERE status = 'resolved') AS avg_resolution_days,
	(SELECT COUNT(*) FROM complaints WHERE created_at::date = $2 OR updated_at::date = $2) AS active_today`

	var row struct {
		TotalStudents     int     `db:"total_students"`
		ActiveAdmins      int     `db:"active_admins"`
		TotalComplaints   int     `db:"total_complaints"`
		PendingReview     int     `db:"pending_review"`
		ResolvedThisMonth int     `db:"resolved_this_month"`
		AvgResolutionDays float64 `db:"avg_resolution_days"`
		ActiveToday       int     `db:"active_today"`
	}
	err := r.retry.Do(ctx, func() error {
		return r.db.GetContext(ctx, &row, query, startOfMonth, now.Format("2006-01-02"))
	})
	if err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}

	return &models.AdminStats{
		TotalStudents:     row.TotalStudents,
		TotalComplaints:   row.TotalComplaints,
		PendingReview:     row.PendingReview,
		ResolvedThisMonth: row.ResolvedThisMonth,
		ActiveAdmins:      row.ActiveAdmins,
		AvgResolutionDays: row.AvgResolutionDays,
		ActiveToday:       row.ActiveToday,
	}, nil
}
