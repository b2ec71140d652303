package shop

import (
	"context"

	"github.com/google/uuid"

	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
)

// Service defines shop onboarding business logic.
type Service interface {
	CreateShop(ctx context.Context, req CreateShopRequest) (*Shop, error)
	GetShop(ctx context.Context, id string) (*Shop, error)
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) CreateShop(ctx context.Context, req CreateShopRequest) (*Shop, error) {
	if req.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	shop := &Shop{
		ID:        uuid.New(),
		Name:      req.Name,
		OwnerName: req.OwnerName,
	}
	if err := s.repo.Create(ctx, shop); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, shop.ID.String())
}

func (s *service) GetShop(ctx context.Context, id string) (*Shop, error) {
	return s.repo.GetByID(ctx, id)
}
