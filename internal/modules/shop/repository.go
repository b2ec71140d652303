package shop

import "context"

// Repository defines data access for shops.
type Repository interface {
	Create(ctx context.Context, shop *Shop) error
	GetByID(ctx context.Context, id string) (*Shop, error)
	Exists(ctx context.Context, id string) (bool, error)
}
