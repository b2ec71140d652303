package allocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/inkwell/inkwell-backend/internal/modules/job"
	"github.com/inkwell/inkwell-backend/internal/modules/printer"
	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
	"github.com/inkwell/inkwell-backend/internal/platform/claim"
	"github.com/inkwell/inkwell-backend/internal/platform/logger"
	"github.com/inkwell/inkwell-backend/internal/platform/metrics"
)

// JobSource is the slice of the job repository the allocator needs.
type JobSource interface {
	ListPending(ctx context.Context, shopID string) ([]*job.Job, error)
	ClaimPending(ctx context.Context, jobNumber string) error
	MarkAlloted(ctx context.Context, jobNumber string) error
}

// PrinterSource lists a shop's printers in stable (created_at) order.
type PrinterSource interface {
	ListByShop(ctx context.Context, shopID string) ([]*printer.Printer, error)
}

// Sweeper is a best-effort pass run at the end of every cycle; in production
// it is the printer status reconciler.
type Sweeper interface {
	RunCycle(ctx context.Context) error
}

// printerSnapshot is the effective printer config frozen into the allocation
// at assignment time. An explicit projection, not a field-by-field copy.
type printerSnapshot struct {
	PrinterID        string               `json:"printer_id,omitempty"`
	Label            string               `json:"label,omitempty"`
	CapabilitySource string               `json:"capability_source"`
	Capabilities     []printer.Capability `json:"capabilities,omitempty"`
}

// Allocator is the periodic matcher assigning pending jobs to compatible,
// idle printers. Safe to run from many workers at once: both the job claim
// and the allocation upsert are single conditional writes, so concurrent
// cycles only ever discover "already handled" and move on.
type Allocator struct {
	log      logger.Logger
	jobs     JobSource
	printers PrinterSource
	allocs   Repository
	sweeper  Sweeper

	// shopID scopes the allocator to one shop; empty means all shops.
	shopID string
}

func NewAllocator(log logger.Logger, jobs JobSource, printers PrinterSource, allocs Repository, sweeper Sweeper) *Allocator {
	return &Allocator{log: log, jobs: jobs, printers: printers, allocs: allocs, sweeper: sweeper}
}

func (a *Allocator) Name() string { return "job-allocator" }

// RunCycle processes every pending job once. Per-job errors are logged and
// never abort the batch; the next scheduled cycle is the retry mechanism.
func (a *Allocator) RunCycle(ctx context.Context) error {
	pending, err := a.jobs.ListPending(ctx, a.shopID)
	if err != nil {
		return fmt.Errorf("list pending jobs: %w", err)
	}
	metrics.PendingJobs.Set(float64(len(pending)))

	allocated := 0
	for _, j := range pending {
		ok, err := a.allocateOne(ctx, j)
		if err != nil {
			metrics.AllocatorItemErrors.Inc()
			a.log.Error("job allocation failed",
				logger.String("job_number", j.JobNumber),
				logger.Error(err))
			continue
		}
		if ok {
			allocated++
		}
	}

	if a.sweeper != nil {
		if err := a.sweeper.RunCycle(ctx); err != nil {
			a.log.Warn("reconciler pass failed", logger.Error(err))
		}
	}

	metrics.AllocatorCycles.Inc()
	if len(pending) > 0 {
		a.log.Info("allocator cycle done",
			logger.Int("pending", len(pending)),
			logger.Int("allocated", allocated))
	}
	return nil
}

// allocateOne runs the per-job algorithm. A false return with nil error means
// the job was skipped this cycle (no printer free, or another worker won).
func (a *Allocator) allocateOne(ctx context.Context, j *job.Job) (bool, error) {
	// Recovery: a prior run may have created the allocation and crashed
	// before flipping the job. The upsert key guarantees at most one
	// allocation per job_number, so finding one means the work is done.
	if _, err := a.allocs.GetByJobNumber(ctx, j.JobNumber); err == nil {
		if err := a.jobs.MarkAlloted(ctx, j.JobNumber); err != nil {
			return false, fmt.Errorf("mark alloted: %w", err)
		}
		return false, nil
	} else if !apperr.IsNotFound(err) {
		return false, fmt.Errorf("check existing allocation: %w", err)
	}

	printers, err := a.printers.ListByShop(ctx, j.ShopID.String())
	if err != nil {
		return false, fmt.Errorf("list printers: %w", err)
	}
	if len(printers) == 0 {
		// Shop has no printers yet; retried next cycle.
		return false, nil
	}

	chosen, err := a.pickPrinter(ctx, j, printers)
	if err != nil {
		return false, err
	}
	if chosen == nil {
		// Every compatible printer is busy; retried next cycle.
		return false, nil
	}

	err = a.jobs.ClaimPending(ctx, j.JobNumber)
	if errors.Is(err, claim.ErrLost) {
		// Another worker won this job.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}

	alloc, err := buildAllocation(j, chosen)
	if err != nil {
		return false, err
	}
	if err := a.allocs.Upsert(ctx, alloc); err != nil {
		return false, fmt.Errorf("upsert allocation: %w", err)
	}

	metrics.AllocationsCreated.Inc()
	a.log.Info("job allocated",
		logger.String("job_number", j.JobNumber),
		logger.String("shop_id", j.ShopID.String()),
		logger.String("printer", chosen.Label))
	return true, nil
}

// pickPrinter returns the first compatible, non-busy printer in list order
// (first-fit; printer pools are small enough that balancing is not worth the
// coordination).
func (a *Allocator) pickPrinter(ctx context.Context, j *job.Job, printers []*printer.Printer) (*printer.Printer, error) {
	for _, p := range printers {
		if !printer.Matches(j.Requirements, p) {
			continue
		}
		// A printer with neither id nor label cannot be tracked by the busy
		// check, so it is treated as permanently busy.
		if p.ID == uuid.Nil && p.Label == "" {
			a.log.Debug("skipping unidentifiable printer",
				logger.String("shop_id", j.ShopID.String()))
			continue
		}
		busy, err := a.allocs.HasActiveWork(ctx, j.ShopID.String(), p.ID.String(), p.Label)
		if err != nil {
			return nil, fmt.Errorf("busy check: %w", err)
		}
		if !busy {
			return p, nil
		}
	}
	return nil, nil
}

func buildAllocation(j *job.Job, p *printer.Printer) (*Allocation, error) {
	snapshot, err := json.Marshal(printerSnapshot{
		PrinterID:        p.ID.String(),
		Label:            p.Label,
		CapabilitySource: string(p.CapabilitySource),
		Capabilities:     p.EffectiveCapabilities(),
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot printer: %w", err)
	}

	printerID := p.ID
	return &Allocation{
		ID:              uuid.New(),
		JobNumber:       j.JobNumber,
		ShopID:          j.ShopID,
		PrinterID:       &printerID,
		PrinterLabel:    p.Label,
		PrinterSnapshot: snapshot,
		Status:          StatusPending,
		TotalAmount:     j.TotalAmount,
	}, nil
}
