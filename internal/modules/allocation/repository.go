package allocation

import (
	"context"
	"time"
)

// Repository defines data access for allocations. All state transitions are
// conditional updates; blind overwrites are not offered.
type Repository interface {
	// Upsert creates or replaces the allocation keyed by job_number, which
	// makes a retried allocator step safe: at most one allocation ever
	// exists per job.
	Upsert(ctx context.Context, a *Allocation) error

	GetByJobNumber(ctx context.Context, jobNumber string) (*Allocation, error)
	ListByShop(ctx context.Context, shopID string, status string) ([]*Allocation, error)

	// HasActiveWork reports whether a non-completed allocation in the shop
	// references the printer by id or label. Satisfies
	// printer.ActiveWorkChecker.
	HasActiveWork(ctx context.Context, shopID, printerID, label string) (bool, error)

	// ClaimBeginPrinting moves PENDING→PRINTING and stamps
	// printing_started_at; claim.ErrLost when the allocation is not PENDING.
	ClaimBeginPrinting(ctx context.Context, jobNumber string) (*Allocation, error)

	// ClaimComplete moves PRINTING→COMPLETED and stamps completed_at;
	// claim.ErrLost when the allocation is not PRINTING.
	ClaimComplete(ctx context.Context, jobNumber string) (*Allocation, error)

	// ClaimCollected sets the one-way collected flag; claim.ErrLost when it
	// is already set.
	ClaimCollected(ctx context.Context, jobNumber string) (*Allocation, error)

	// ClaimForCounting claims one completed, uncounted, unclaimed allocation
	// for the stats aggregator by stamping claimed_at. Returns (nil, nil)
	// when no candidate remains.
	ClaimForCounting(ctx context.Context, claimedAt time.Time) (*Allocation, error)

	// ReleaseClaim clears claimed_at so a failed aggregator batch is retried.
	ReleaseClaim(ctx context.Context, jobNumber string) error

	// ReleaseStaleClaims clears claims stamped before cutoff whose increment
	// never landed (counted still false). Recovers from aggregator crashes.
	ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int64, error)
}
