package stats

import "context"

// Repository defines data access for shop counters and revenue buckets.
type Repository interface {
	// ApplyIncrement applies one shop/day group in a single transaction:
	// lifetime counters, daily stat, daily revenue bucket and the counted
	// markers of every contributing allocation commit or roll back together.
	// That bundling is what makes a released claim safe to retry.
	ApplyIncrement(ctx context.Context, inc Increment) error

	// GetShopStats assembles the counters view; a shop with no completed
	// jobs yet yields zero counters and empty maps.
	GetShopStats(ctx context.Context, shopID string) (*ShopStats, error)

	// ListShopsWithBuckets returns distinct shop ids holding any revenue
	// bucket, for rollup iteration.
	ListShopsWithBuckets(ctx context.Context) ([]string, error)

	// ListBuckets returns a shop's buckets of one granularity ordered by key.
	ListBuckets(ctx context.Context, shopID string, g Granularity) ([]Bucket, error)

	// CompactBuckets deletes the source buckets and adds their sum into the
	// target bucket, transactionally.
	CompactBuckets(ctx context.Context, shopID string, from Granularity, keys []string, to Granularity, toKey string, amount float64) error
}
