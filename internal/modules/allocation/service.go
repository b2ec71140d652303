package allocation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/inkwell/inkwell-backend/internal/modules/job"
	"github.com/inkwell/inkwell-backend/internal/modules/printer"
	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
	"github.com/inkwell/inkwell-backend/internal/platform/claim"
	"github.com/inkwell/inkwell-backend/internal/platform/logger"
)

// JobMirror mirrors lifecycle status back onto the job entity for display.
type JobMirror interface {
	UpdateStatus(ctx context.Context, jobNumber string, status job.Status) error
}

// PrinterControl is the slice of the printer repository the lifecycle needs
// for drain-to-off.
type PrinterControl interface {
	GetByID(ctx context.Context, id string) (*printer.Printer, error)
	ClaimPendingOffToOff(ctx context.Context, id string) error
}

// Service defines the allocation lifecycle: explicit status transitions and
// their side effects. Stat increments are not applied here; completion is
// picked up by the claim-based stats aggregator, which keeps the
// exactly-once decision out of the request path.
type Service interface {
	GetAllocation(ctx context.Context, jobNumber string) (*Allocation, error)
	ListShopAllocations(ctx context.Context, shopID string, status string) ([]*Allocation, error)
	UpdateStatus(ctx context.Context, jobNumber string, req UpdateStatusRequest) (*Allocation, error)
	MarkCollected(ctx context.Context, jobNumber string) (*Allocation, error)
}

type service struct {
	log      logger.Logger
	repo     Repository
	jobs     JobMirror
	printers PrinterControl
}

func NewService(log logger.Logger, repo Repository, jobs JobMirror, printers PrinterControl) Service {
	return &service{log: log, repo: repo, jobs: jobs, printers: printers}
}

func (s *service) GetAllocation(ctx context.Context, jobNumber string) (*Allocation, error) {
	return s.repo.GetByJobNumber(ctx, jobNumber)
}

func (s *service) ListShopAllocations(ctx context.Context, shopID string, status string) ([]*Allocation, error) {
	return s.repo.ListByShop(ctx, shopID, strings.ToUpper(status))
}

func (s *service) UpdateStatus(ctx context.Context, jobNumber string, req UpdateStatusRequest) (*Allocation, error) {
	next := Status(strings.ToUpper(req.Status))
	switch next {
	case StatusPrinting:
		return s.beginPrinting(ctx, jobNumber)
	case StatusCompleted:
		return s.complete(ctx, jobNumber)
	default:
		return nil, apperr.Validation("status must be PRINTING or COMPLETED")
	}
}

func (s *service) beginPrinting(ctx context.Context, jobNumber string) (*Allocation, error) {
	a, err := s.repo.ClaimBeginPrinting(ctx, jobNumber)
	if errors.Is(err, claim.ErrLost) {
		return nil, s.transitionConflict(ctx, jobNumber, StatusPrinting)
	}
	if err != nil {
		return nil, err
	}

	if err := s.jobs.UpdateStatus(ctx, jobNumber, job.StatusPrinting); err != nil {
		s.log.Warn("job status mirror failed",
			logger.String("job_number", jobNumber), logger.Error(err))
	}
	return a, nil
}

func (s *service) complete(ctx context.Context, jobNumber string) (*Allocation, error) {
	a, err := s.repo.ClaimComplete(ctx, jobNumber)
	if errors.Is(err, claim.ErrLost) {
		return nil, s.transitionConflict(ctx, jobNumber, StatusCompleted)
	}
	if err != nil {
		return nil, err
	}

	if err := s.jobs.UpdateStatus(ctx, jobNumber, job.StatusCompleted); err != nil {
		s.log.Warn("job status mirror failed",
			logger.String("job_number", jobNumber), logger.Error(err))
	}

	// Drain-to-off: a pending-off printer with no remaining active work
	// flips to off. The flip is a claim, so a new allocation landing on the
	// printer between check and set just makes us lose and leave it pending.
	if err := s.drainPrinter(ctx, a); err != nil {
		s.log.Warn("drain-to-off check failed",
			logger.String("job_number", jobNumber), logger.Error(err))
	}
	return a, nil
}

func (s *service) MarkCollected(ctx context.Context, jobNumber string) (*Allocation, error) {
	a, err := s.repo.ClaimCollected(ctx, jobNumber)
	if errors.Is(err, claim.ErrLost) {
		if _, getErr := s.repo.GetByJobNumber(ctx, jobNumber); getErr != nil {
			return nil, getErr
		}
		return nil, apperr.Conflict("allocation for job %s is already collected", jobNumber)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// transitionConflict turns a lost claim into the right caller-facing error:
// missing allocation, or a state that does not permit the transition.
func (s *service) transitionConflict(ctx context.Context, jobNumber string, next Status) error {
	a, err := s.repo.GetByJobNumber(ctx, jobNumber)
	if err != nil {
		return err
	}
	if CanTransition(a.Status, next) {
		// Predicate held on re-read; a concurrent caller raced us.
		return apperr.Conflict("allocation for job %s was updated concurrently", jobNumber)
	}
	return apperr.InvalidTransition("cannot transition allocation from %s to %s", a.Status, next)
}

func (s *service) drainPrinter(ctx context.Context, a *Allocation) error {
	if a.PrinterID == nil {
		return nil
	}
	p, err := s.printers.GetByID(ctx, a.PrinterID.String())
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return err
	}
	if p.ManualStatus != printer.ManualPendingOff {
		return nil
	}

	busy, err := s.repo.HasActiveWork(ctx, a.ShopID.String(), p.ID.String(), p.Label)
	if err != nil {
		return fmt.Errorf("check active work: %w", err)
	}
	if busy {
		return nil
	}

	err = s.printers.ClaimPendingOffToOff(ctx, p.ID.String())
	if errors.Is(err, claim.ErrLost) {
		return nil
	}
	if err != nil {
		return err
	}
	s.log.Info("printer drained to off",
		logger.String("printer_id", p.ID.String()),
		logger.String("job_number", a.JobNumber))
	return nil
}
