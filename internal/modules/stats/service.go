package stats

import "context"

// Service exposes the counters read model for dashboards.
type Service interface {
	GetShopStats(ctx context.Context, shopID string) (*ShopStats, error)
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) GetShopStats(ctx context.Context, shopID string) (*ShopStats, error) {
	return s.repo.GetShopStats(ctx, shopID)
}
