package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-ease-api/internal/models"
	appErrors "github.com/noah-isme/attendance-ease-api/pkg/errors"
)

const (
	dashboardCachePrefix  = "dashboard:"
	dashboardCachePattern = dashboardCachePrefix + "*"
)

type dashboardRepository interface {
	Summary(ctx context.Context, date time.Time) (*models.DashboardSummary, error)
}

// DashboardService composes the headline counters.
type DashboardService struct {
	repo   dashboardRepository
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService constructs the service. cache may be nil.
func NewDashboardService(repo dashboardRepository, cache *CacheService, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, cache: cache, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Summary returns totals plus today's present and absent marks.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	today := s.now().Truncate(24 * time.Hour)
	key := dashboardCachePrefix + today.Format(models.DateLayout)

	var cached models.DashboardSummary
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	summary, err := s.repo.Summary(ctx, today)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load dashboard")
	}
	summary.Date = today.Format(models.DateLayout)
	s.cache.Set(ctx, key, summary, 0)
	return summary, nil
}
