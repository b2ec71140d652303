package stats

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell/inkwell-backend/internal/modules/allocation"
)

// In-memory fakes mirroring the postgres conditional-update semantics. The
// stats repository fake marks contributing allocations counted inside the
// same locked section as the counter writes, matching the production
// transaction's all-or-nothing behavior.

// ── allocation source ─────────────────────────────────────────────────────────

type memAllocSource struct {
	mu     sync.Mutex
	allocs map[string]*allocation.Allocation
	order  []string
}

func newMemAllocSource() *memAllocSource {
	return &memAllocSource{allocs: make(map[string]*allocation.Allocation)}
}

func (m *memAllocSource) add(a *allocation.Allocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.allocs[a.JobNumber] = &cp
	m.order = append(m.order, a.JobNumber)
}

func (m *memAllocSource) get(jobNumber string) allocation.Allocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.allocs[jobNumber]
}

func (m *memAllocSource) ClaimForCounting(_ context.Context, claimedAt time.Time) (*allocation.Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	candidates := append([]string(nil), m.order...)
	sort.SliceStable(candidates, func(i, k int) bool {
		a, b := m.allocs[candidates[i]], m.allocs[candidates[k]]
		switch {
		case a.CompletedAt == nil:
			return false
		case b.CompletedAt == nil:
			return true
		default:
			return a.CompletedAt.Before(*b.CompletedAt)
		}
	})
	for _, num := range candidates {
		a := m.allocs[num]
		if a.Status != allocation.StatusCompleted || a.Counted || a.ClaimedAt != nil {
			continue
		}
		at := claimedAt
		a.ClaimedAt = &at
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *memAllocSource) ReleaseClaim(_ context.Context, jobNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.allocs[jobNumber]; ok && !a.Counted {
		a.ClaimedAt = nil
	}
	return nil
}

func (m *memAllocSource) ReleaseStaleClaims(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var released int64
	for _, a := range m.allocs {
		if !a.Counted && a.ClaimedAt != nil && a.ClaimedAt.Before(cutoff) {
			a.ClaimedAt = nil
			released++
		}
	}
	return released, nil
}

func (m *memAllocSource) markCounted(jobNumbers []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, num := range jobNumbers {
		if a, ok := m.allocs[num]; ok {
			a.Counted = true
			a.ClaimedAt = nil
		}
	}
}

// ── stats repository ──────────────────────────────────────────────────────────

type bucketKey struct {
	shopID string
	g      Granularity
	key    string
}

type memStatsRepo struct {
	mu           sync.Mutex
	lifetimeJobs map[string]int64
	lifetimeRev  map[string]float64
	dailyStats   map[string]map[string]int64
	buckets      map[bucketKey]float64
	applyCalls   int
	failuresLeft int
	source       *memAllocSource
}

func newMemStatsRepo(source *memAllocSource) *memStatsRepo {
	return &memStatsRepo{
		lifetimeJobs: make(map[string]int64),
		lifetimeRev:  make(map[string]float64),
		dailyStats:   make(map[string]map[string]int64),
		buckets:      make(map[bucketKey]float64),
		source:       source,
	}
}

func (r *memStatsRepo) ApplyIncrement(_ context.Context, inc Increment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyCalls++
	if r.failuresLeft > 0 {
		r.failuresLeft--
		return errDBFailure
	}
	shop := inc.ShopID.String()
	r.lifetimeJobs[shop] += inc.Jobs
	r.lifetimeRev[shop] += inc.Revenue
	if r.dailyStats[shop] == nil {
		r.dailyStats[shop] = make(map[string]int64)
	}
	r.dailyStats[shop][inc.Day] += inc.Jobs
	r.buckets[bucketKey{shop, Daily, inc.Day}] += inc.Revenue
	if r.source != nil {
		r.source.markCounted(inc.JobNumbers)
	}
	return nil
}

func (r *memStatsRepo) GetShopStats(_ context.Context, shopID string) (*ShopStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, err := uuid.Parse(shopID)
	if err != nil {
		return nil, err
	}
	out := &ShopStats{
		ShopID:                id,
		LifetimeJobsCompleted: r.lifetimeJobs[shopID],
		LifetimeRevenue:       r.lifetimeRev[shopID],
		DailyStats:            map[string]int64{},
		Revenue:               map[Granularity]map[string]float64{},
	}
	for day, n := range r.dailyStats[shopID] {
		out.DailyStats[day] = n
	}
	for k, amount := range r.buckets {
		if k.shopID != shopID {
			continue
		}
		if out.Revenue[k.g] == nil {
			out.Revenue[k.g] = map[string]float64{}
		}
		out.Revenue[k.g][k.key] = amount
	}
	return out, nil
}

func (r *memStatsRepo) ListShopsWithBuckets(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var shops []string
	for k := range r.buckets {
		if !seen[k.shopID] {
			seen[k.shopID] = true
			shops = append(shops, k.shopID)
		}
	}
	sort.Strings(shops)
	return shops, nil
}

func (r *memStatsRepo) ListBuckets(_ context.Context, shopID string, g Granularity) ([]Bucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, err := uuid.Parse(shopID)
	if err != nil {
		return nil, err
	}
	var out []Bucket
	for k, amount := range r.buckets {
		if k.shopID == shopID && k.g == g {
			out = append(out, Bucket{ShopID: id, Granularity: g, Key: k.key, Amount: amount})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *memStatsRepo) CompactBuckets(_ context.Context, shopID string, from Granularity, keys []string, to Granularity, toKey string, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		delete(r.buckets, bucketKey{shopID, from, key})
	}
	r.buckets[bucketKey{shopID, to, toKey}] += amount
	return nil
}

func (r *memStatsRepo) putBucket(shopID string, g Granularity, key string, amount float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets[bucketKey{shopID, g, key}] = amount
}

func (r *memStatsRepo) bucketTotal(shopID string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	for k, amount := range r.buckets {
		if k.shopID == shopID {
			sum += amount
		}
	}
	return sum
}

func (r *memStatsRepo) lifetime(shopID string) (int64, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lifetimeJobs[shopID], r.lifetimeRev[shopID]
}

func (r *memStatsRepo) applyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyCalls
}
