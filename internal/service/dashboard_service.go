package service

import (
	"context"
	"fmt"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/cache"
	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/repository"
)

type DashboardService interface {
	Summary(ctx context.Context) (*dto.DashboardSummary, error)
	RecentMovements(ctx context.Context, limit int) ([]dto.RecentMovement, error)
	TopConsumed(ctx context.Context, days, limit int) ([]dto.ConsumedMaterial, error)
}

type dashboardService struct {
	repo   repository.DashboardRepository
	caches *Caches
	now    func() time.Time
}

func NewDashboardService(repo repository.DashboardRepository, caches *Caches) DashboardService {
	return &dashboardService{repo: repo, caches: caches, now: time.Now}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (s *dashboardService) Summary(ctx context.Context) (*dto.DashboardSummary, error) {
	today := startOfDay(s.now())
	key := "summary:" + today.Format("20060102")
	return cache.Remember(ctx, s.caches.dashboard(), key, func() (*dto.DashboardSummary, error) {
		return s.repo.Counts(ctx, today)
	})
}

func (s *dashboardService) RecentMovements(ctx context.Context, limit int) ([]dto.RecentMovement, error) {
	_, limit = dto.Normalize(1, limit, 10, 50)
	return cache.Remember(ctx, s.caches.dashboard(), fmt.Sprintf("recent:%d", limit), func() ([]dto.RecentMovement, error) {
		return s.repo.RecentMovements(ctx, limit)
	})
}

func (s *dashboardService) TopConsumed(ctx context.Context, days, limit int) ([]dto.ConsumedMaterial, error) {
	if days < 1 {
		days = 30
	}
	if days > 365 {
		days = 365
	}
	_, limit = dto.Normalize(1, limit, 10, 50)
	since := startOfDay(s.now()).AddDate(0, 0, -days+1)
	key := fmt.Sprintf("top:%s:%d:%d", since.Format("20060102"), days, limit)
	return cache.Remember(ctx, s.caches.dashboard(), key, func() ([]dto.ConsumedMaterial, error) {
		return s.repo.TopConsumed(ctx, since, limit)
	})
}
