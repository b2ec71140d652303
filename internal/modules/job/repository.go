package job

import "context"

// Repository defines data access for jobs.
type Repository interface {
	Create(ctx context.Context, job *Job) error
	GetByNumber(ctx context.Context, jobNumber string) (*Job, error)
	ListByShop(ctx context.Context, shopID string, state string) ([]*Job, error)

	// ListPending returns jobs still awaiting allocation. shopID may be empty
	// to scan all shops.
	ListPending(ctx context.Context, shopID string) ([]*Job, error)

	// ClaimPending flips a job from PENDING to ALLOTED only if it is still
	// PENDING, returning claim.ErrLost when a concurrent allocator won.
	ClaimPending(ctx context.Context, jobNumber string) error

	// MarkAlloted unconditionally records that an allocation exists for the
	// job. Used for idempotent recovery when a prior run created the
	// allocation but crashed before updating the job.
	MarkAlloted(ctx context.Context, jobNumber string) error

	// UpdateStatus mirrors the allocation lifecycle status onto the job.
	UpdateStatus(ctx context.Context, jobNumber string, status Status) error
}
