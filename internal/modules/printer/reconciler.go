package printer

import (
	"context"
	"errors"
	"fmt"

	"github.com/inkwell/inkwell-backend/internal/platform/claim"
	"github.com/inkwell/inkwell-backend/internal/platform/logger"
	"github.com/inkwell/inkwell-backend/internal/platform/metrics"
)

// Reconciler resolves deferred shutdowns: each sweep re-evaluates every
// PENDING_OFF printer and flips it to OFF once no active allocation
// references it. Idempotent; runs after every allocator cycle, and a lost
// flip only means another sweep or the lifecycle already handled it.
type Reconciler struct {
	log    logger.Logger
	repo   Repository
	active ActiveWorkChecker
}

func NewReconciler(log logger.Logger, repo Repository, active ActiveWorkChecker) *Reconciler {
	return &Reconciler{log: log, repo: repo, active: active}
}

func (r *Reconciler) Name() string { return "printer-reconciler" }

// RunCycle sweeps all PENDING_OFF printers. Per-printer errors are logged
// and never abort the sweep.
func (r *Reconciler) RunCycle(ctx context.Context) error {
	printers, err := r.repo.ListPendingOff(ctx)
	if err != nil {
		return fmt.Errorf("list pending-off printers: %w", err)
	}

	for _, p := range printers {
		if err := r.reconcileOne(ctx, p); err != nil {
			r.log.Warn("printer drain deferred",
				logger.String("printer_id", p.ID.String()),
				logger.Error(err))
		}
	}
	return nil
}

func (r *Reconciler) reconcileOne(ctx context.Context, p *Printer) error {
	busy, err := r.active.HasActiveWork(ctx, p.ShopID.String(), p.ID.String(), p.Label)
	if err != nil {
		return fmt.Errorf("check active work: %w", err)
	}
	if busy {
		// Still draining; next sweep re-checks.
		return nil
	}

	err = r.repo.ClaimPendingOffToOff(ctx, p.ID.String())
	if errors.Is(err, claim.ErrLost) {
		// Someone else flipped it, or the shopkeeper changed intent.
		return nil
	}
	if err != nil {
		return err
	}

	metrics.PrintersReconciled.Inc()
	r.log.Info("printer drained to off",
		logger.String("printer_id", p.ID.String()),
		logger.String("shop_id", p.ShopID.String()))
	return nil
}
