package allocation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell/inkwell-backend/internal/modules/job"
	"github.com/inkwell/inkwell-backend/internal/modules/printer"
	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
	"github.com/inkwell/inkwell-backend/internal/platform/claim"
)

// In-memory fakes with the same conditional-update semantics as the postgres
// repositories. Every check-and-set happens under one mutex, which lets the
// concurrency tests race real goroutines against them.

// ── jobs ──────────────────────────────────────────────────────────────────────

type memJobs struct {
	mu     sync.Mutex
	jobs   map[string]*job.Job
	order  []string
	status map[string]job.Status
}

func newMemJobs() *memJobs {
	return &memJobs{
		jobs:   make(map[string]*job.Job),
		status: make(map[string]job.Status),
	}
}

func (m *memJobs) add(j *job.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.jobs[j.JobNumber] = &cp
	m.order = append(m.order, j.JobNumber)
}

func (m *memJobs) get(jobNumber string) job.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.jobs[jobNumber]
}

func (m *memJobs) ListPending(_ context.Context, shopID string) ([]*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*job.Job
	for _, num := range m.order {
		j := m.jobs[num]
		if j.AllocationState != job.AllocationPending {
			continue
		}
		if shopID != "" && j.ShopID.String() != shopID {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memJobs) ClaimPending(_ context.Context, jobNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobNumber]
	if !ok || j.AllocationState != job.AllocationPending {
		return claim.ErrLost
	}
	j.AllocationState = job.AllocationAlloted
	return nil
}

func (m *memJobs) MarkAlloted(_ context.Context, jobNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[jobNumber]; ok {
		j.AllocationState = job.AllocationAlloted
	}
	return nil
}

func (m *memJobs) UpdateStatus(_ context.Context, jobNumber string, status job.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[jobNumber] = status
	if j, ok := m.jobs[jobNumber]; ok {
		j.Status = status
	}
	return nil
}

func (m *memJobs) mirrored(jobNumber string) job.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[jobNumber]
}

// ── printers ──────────────────────────────────────────────────────────────────

type memPrinters struct {
	mu       sync.Mutex
	printers map[string][]*printer.Printer
}

func newMemPrinters() *memPrinters {
	return &memPrinters{printers: make(map[string][]*printer.Printer)}
}

func (m *memPrinters) add(p *printer.Printer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	key := p.ShopID.String()
	m.printers[key] = append(m.printers[key], &cp)
}

func (m *memPrinters) ListByShop(_ context.Context, shopID string) ([]*printer.Printer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*printer.Printer
	for _, p := range m.printers[shopID] {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memPrinters) GetByID(_ context.Context, id string) (*printer.Printer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, list := range m.printers {
		for _, p := range list {
			if p.ID.String() == id {
				cp := *p
				return &cp, nil
			}
		}
	}
	return nil, apperr.NotFound("printer %s", id)
}

func (m *memPrinters) ClaimPendingOffToOff(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, list := range m.printers {
		for _, p := range list {
			if p.ID.String() == id {
				if p.ManualStatus != printer.ManualPendingOff {
					return claim.ErrLost
				}
				p.ManualStatus = printer.ManualOff
				return nil
			}
		}
	}
	return claim.ErrLost
}

func (m *memPrinters) manualStatus(id uuid.UUID) printer.ManualStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, list := range m.printers {
		for _, p := range list {
			if p.ID == id {
				return p.ManualStatus
			}
		}
	}
	return ""
}

// ── allocations ───────────────────────────────────────────────────────────────

type memAllocs struct {
	mu      sync.Mutex
	allocs  map[string]*Allocation
	order   []string
	upserts map[string]int

	failHasActiveWork error
}

func newMemAllocs() *memAllocs {
	return &memAllocs{
		allocs:  make(map[string]*Allocation),
		upserts: make(map[string]int),
	}
}

func (m *memAllocs) put(a *Allocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(a)
}

func (m *memAllocs) insert(a *Allocation) {
	cp := *a
	if _, ok := m.allocs[a.JobNumber]; !ok {
		m.order = append(m.order, a.JobNumber)
	}
	m.allocs[a.JobNumber] = &cp
}

func (m *memAllocs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.allocs)
}

func (m *memAllocs) Upsert(_ context.Context, a *Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts[a.JobNumber]++
	existing, ok := m.allocs[a.JobNumber]
	if !ok {
		cp := *a
		now := time.Now()
		cp.CreatedAt = now
		cp.UpdatedAt = now
		m.insert(&cp)
		return nil
	}
	// Conflict path refreshes printer fields only, like the SQL upsert.
	existing.PrinterID = a.PrinterID
	existing.PrinterLabel = a.PrinterLabel
	existing.PrinterSnapshot = a.PrinterSnapshot
	existing.UpdatedAt = time.Now()
	return nil
}

func (m *memAllocs) GetByJobNumber(_ context.Context, jobNumber string) (*Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.allocs[jobNumber]
	if !ok {
		return nil, apperr.NotFound("allocation for job %s", jobNumber)
	}
	cp := *a
	return &cp, nil
}

func (m *memAllocs) ListByShop(_ context.Context, shopID string, status string) ([]*Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Allocation
	for _, num := range m.order {
		a := m.allocs[num]
		if a.ShopID.String() != shopID {
			continue
		}
		if status != "" && string(a.Status) != status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memAllocs) HasActiveWork(_ context.Context, shopID, printerID, label string) (bool, error) {
	if m.failHasActiveWork != nil {
		return false, m.failHasActiveWork
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.allocs {
		if a.ShopID.String() != shopID || a.Status == StatusCompleted {
			continue
		}
		if a.PrinterID != nil && printerID != "" && a.PrinterID.String() == printerID {
			return true, nil
		}
		if label != "" && a.PrinterLabel == label {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAllocs) ClaimBeginPrinting(_ context.Context, jobNumber string) (*Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.allocs[jobNumber]
	if !ok || a.Status != StatusPending {
		return nil, claim.ErrLost
	}
	now := time.Now()
	a.Status = StatusPrinting
	a.PrintingStartedAt = &now
	a.UpdatedAt = now
	cp := *a
	return &cp, nil
}

func (m *memAllocs) ClaimComplete(_ context.Context, jobNumber string) (*Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.allocs[jobNumber]
	if !ok || a.Status != StatusPrinting {
		return nil, claim.ErrLost
	}
	now := time.Now()
	a.Status = StatusCompleted
	a.CompletedAt = &now
	a.UpdatedAt = now
	cp := *a
	return &cp, nil
}

func (m *memAllocs) ClaimCollected(_ context.Context, jobNumber string) (*Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.allocs[jobNumber]
	if !ok || a.Collected {
		return nil, claim.ErrLost
	}
	a.Collected = true
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (m *memAllocs) ClaimForCounting(_ context.Context, claimedAt time.Time) (*Allocation, error) {
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
		if a.Status != StatusCompleted || a.Counted || a.ClaimedAt != nil {
			continue
		}
		at := claimedAt
		a.ClaimedAt = &at
		a.UpdatedAt = claimedAt
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *memAllocs) ReleaseClaim(_ context.Context, jobNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.allocs[jobNumber]; ok && !a.Counted {
		a.ClaimedAt = nil
	}
	return nil
}

func (m *memAllocs) ReleaseStaleClaims(_ context.Context, cutoff time.Time) (int64, error) {
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

func (m *memAllocs) upsertCount(jobNumber string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts[jobNumber]
}
