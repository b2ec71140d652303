package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell/inkwell-backend/internal/modules/allocation"
	"github.com/inkwell/inkwell-backend/internal/platform/logger"
	"github.com/inkwell/inkwell-backend/internal/platform/metrics"
)

// AllocationSource is the slice of the allocation repository the aggregator
// claims work through.
type AllocationSource interface {
	ClaimForCounting(ctx context.Context, claimedAt time.Time) (*allocation.Allocation, error)
	ReleaseClaim(ctx context.Context, jobNumber string) error
	ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int64, error)
}

// Aggregator applies each completed allocation's count and revenue to its
// shop's counters exactly once. Safe under concurrent workers and restarts:
// ownership of an allocation is taken by a claim (a conditional stamp of
// claimed_at), and the increment transaction flips counted=true together
// with the counter writes. A claim released after a failed increment cannot
// double count because nothing of the increment was applied.
type Aggregator struct {
	log       logger.Logger
	allocs    AllocationSource
	stats     Repository
	batchSize int
	claimTTL  time.Duration
	now       func() time.Time
}

func NewAggregator(log logger.Logger, allocs AllocationSource, stats Repository, batchSize int, claimTTL time.Duration) *Aggregator {
	if batchSize <= 0 {
		batchSize = 100
	}
	if claimTTL <= 0 {
		claimTTL = 5 * time.Minute
	}
	return &Aggregator{
		log:       log,
		allocs:    allocs,
		stats:     stats,
		batchSize: batchSize,
		claimTTL:  claimTTL,
		now:       time.Now,
	}
}

func (g *Aggregator) Name() string { return "stats-aggregator" }

// RunCycle drains completed, uncounted allocations up to the batch size.
func (g *Aggregator) RunCycle(ctx context.Context) error {
	now := g.now()

	// Recover claims abandoned by a crashed worker. Their increments never
	// committed (counted would be true otherwise), so re-queueing is safe.
	released, err := g.allocs.ReleaseStaleClaims(ctx, now.Add(-g.claimTTL))
	if err != nil {
		return fmt.Errorf("release stale claims: %w", err)
	}
	if released > 0 {
		g.log.Warn("released stale aggregator claims", logger.Int64("count", released))
	}

	claimed, err := g.drain(ctx, now)
	if err != nil {
		return err
	}
	if len(claimed) == 0 {
		return nil
	}

	for key, group := range groupByShopDay(claimed) {
		if err := g.applyGroup(ctx, key, group); err != nil {
			g.log.Error("stat increment failed, claims released",
				logger.String("shop_id", key.shopID.String()),
				logger.String("day", key.day),
				logger.Error(err))
		}
	}
	return nil
}

func (g *Aggregator) drain(ctx context.Context, now time.Time) ([]*allocation.Allocation, error) {
	var claimed []*allocation.Allocation
	for len(claimed) < g.batchSize {
		a, err := g.allocs.ClaimForCounting(ctx, now)
		if err != nil {
			// Claims already taken stay claimed; the TTL sweep re-queues
			// them if this worker dies before the next cycle retries.
			return claimed, fmt.Errorf("claim allocation: %w", err)
		}
		if a == nil {
			break
		}
		claimed = append(claimed, a)
	}
	return claimed, nil
}

type groupKey struct {
	shopID uuid.UUID
	day    string
}

func groupByShopDay(allocations []*allocation.Allocation) map[groupKey][]*allocation.Allocation {
	groups := map[groupKey][]*allocation.Allocation{}
	for _, a := range allocations {
		key := groupKey{shopID: a.ShopID, day: dayBucket(a)}
		groups[key] = append(groups[key], a)
	}
	return groups
}

// dayBucket is the UTC calendar date the allocation counts toward:
// completed_at, falling back to updated_at, then created_at.
func dayBucket(a *allocation.Allocation) string {
	switch {
	case a.CompletedAt != nil && !a.CompletedAt.IsZero():
		return DayKey(*a.CompletedAt)
	case !a.UpdatedAt.IsZero():
		return DayKey(a.UpdatedAt)
	default:
		return DayKey(a.CreatedAt)
	}
}

func (g *Aggregator) applyGroup(ctx context.Context, key groupKey, group []*allocation.Allocation) error {
	inc := Increment{ShopID: key.shopID, Day: key.day}
	for _, a := range group {
		inc.Jobs++
		inc.Revenue += a.TotalAmount
		inc.JobNumbers = append(inc.JobNumbers, a.JobNumber)
	}

	if err := g.stats.ApplyIncrement(ctx, inc); err != nil {
		for _, a := range group {
			if relErr := g.allocs.ReleaseClaim(ctx, a.JobNumber); relErr != nil {
				g.log.Error("claim release failed; TTL sweep will recover it",
					logger.String("job_number", a.JobNumber),
					logger.Error(relErr))
			}
		}
		metrics.StatsReleased.Add(float64(len(group)))
		return err
	}

	metrics.StatsApplied.Add(float64(inc.Jobs))
	g.log.Info("shop counters incremented",
		logger.String("shop_id", key.shopID.String()),
		logger.String("day", key.day),
		logger.Int64("jobs", inc.Jobs),
		logger.Float64("revenue", inc.Revenue))
	return nil
}
