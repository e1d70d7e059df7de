package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/uniportal/ecms-api/internal/models"
	"github.com/uniportal/ecms-api/internal/repository"
	appErrors "github.com/uniportal/ecms-api/pkg/errors"
)

type statsRepository interface {
	Trends(ctx context.Context, filter models.AnalyticsFilter) ([]models.TrendPoint, error)
	TypeDistribution(ctx context.Context, filter models.AnalyticsFilter) ([]models.DistributionSlice, error)
	StatusDistribution(ctx context.Context, filter models.AnalyticsFilter) ([]models.DistributionSlice, error)
	ResolutionTimes(ctx context.Context, filter models.AnalyticsFilter) (*models.ResolutionTimes, error)
	HourlyDistribution(ctx context.Context, filter models.AnalyticsFilter) ([]models.HourBucket, error)
	TopExams(ctx context.Context, filter models.AnalyticsFilter) ([]models.ExamComplaintCount, error)
	ResponseStats(ctx context.Context, filter models.AnalyticsFilter) (*models.ResponseStats, error)
	AdminStats(ctx context.Context) (*models.AdminStats, error)
}

// AnalyticsService assembles the admin dashboards from aggregate queries,
// with an optional Redis cache in front.
type AnalyticsService struct {
	repo   statsRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(repo statsRepository, cache *CacheService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, cache: cache, logger: logger}
}

// Overview returns the full analytics payload for the given filter.
func (s *AnalyticsService) Overview(ctx context.Context, filter models.AnalyticsFilter) (*models.Analytics, error) {
	key := repository.AnalyticsKey("overview", filter)
	var cached models.Analytics
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	trends, err := s.repo.Trends(ctx, filter)
	if err != nil {
		return nil, s.wrap(err, "failed to load complaint trends")
	}
	typeDist, err := s.repo.TypeDistribution(ctx, filter)
	if err != nil {
		return nil, s.wrap(err, "failed to load type distribution")
	}
	statusDist, err := s.repo.StatusDistribution(ctx, filter)
	if err != nil {
		return nil, s.wrap(err, "failed to load status distribution")
	}
	resolution, err := s.repo.ResolutionTimes(ctx, filter)
	if err != nil {
		return nil, s.wrap(err, "failed to load resolution times")
	}
	hourly, err := s.repo.HourlyDistribution(ctx, filter)
	if err != nil {
		return nil, s.wrap(err, "failed to load hourly distribution")
	}
	topExams, err := s.repo.TopExams(ctx, filter)
	if err != nil {
		return nil, s.wrap(err, "failed to load exam rankings")
	}
	responseStats, err := s.repo.ResponseStats(ctx, filter)
	if err != nil {
		return nil, s.wrap(err, "failed to load response stats")
	}

	analytics := &models.Analytics{
		Trends:             trends,
		TypeDistribution:   typeDist,
		StatusDistribution: statusDist,
		ResolutionTimes:    *resolution,
		HourlyDistribution: hourly,
		TopExams:           topExams,
		ResponseStats:      *responseStats,
	}
	s.cache.Set(ctx, key, analytics)
	return analytics, nil
}

// AdminStats returns the dashboard headline numbers.
func (s *AnalyticsService) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	const key = "analytics:admin-stats"
	var cached models.AdminStats
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	stats, err := s.repo.AdminStats(ctx)
	if err != nil {
		return nil, s.wrap(err, "failed to load dashboard stats")
	}
	s.cache.Set(ctx, key, stats)
	return stats, nil
}

func (s *AnalyticsService) wrap(err error, message string) error {
	s.logger.Error(message, zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
