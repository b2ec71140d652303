package allocation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/inkwell-backend/internal/modules/job"
	"github.com/inkwell/inkwell-backend/internal/modules/printer"
	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
	"github.com/inkwell/inkwell-backend/internal/platform/logger"
)

type serviceFixture struct {
	jobs     *memJobs
	printers *memPrinters
	allocs   *memAllocs
	svc      Service
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		jobs:     newMemJobs(),
		printers: newMemPrinters(),
		allocs:   newMemAllocs(),
	}
	f.svc = NewService(logger.Nop(), f.allocs, f.jobs, f.printers)
	return f
}

// seed creates an allocation bound to a fresh printer and returns both.
func (f *serviceFixture) seed(jobNumber string, status Status) (*Allocation, *printer.Printer) {
	shopID := uuid.New()
	p := testPrinter(shopID, "HP-1")
	f.printers.add(p)

	pid := p.ID
	a := &Allocation{
		ID:           uuid.New(),
		JobNumber:    jobNumber,
		ShopID:       shopID,
		PrinterID:    &pid,
		PrinterLabel: p.Label,
		Status:       status,
		TotalAmount:  8.00,
	}
	f.allocs.put(a)
	return a, p
}

func TestUpdateStatusBeginPrinting(t *testing.T) {
	f := newServiceFixture()
	f.seed("JOB-1", StatusPending)

	a, err := f.svc.UpdateStatus(context.Background(), "JOB-1", UpdateStatusRequest{Status: "printing"})
	require.NoError(t, err)
	assert.Equal(t, StatusPrinting, a.Status)
	assert.NotNil(t, a.PrintingStartedAt)
	assert.Nil(t, a.CompletedAt)
	assert.Equal(t, job.StatusPrinting, f.jobs.mirrored("JOB-1"))
}

func TestUpdateStatusComplete(t *testing.T) {
	f := newServiceFixture()
	f.seed("JOB-1", StatusPrinting)

	a, err := f.svc.UpdateStatus(context.Background(), "JOB-1", UpdateStatusRequest{Status: "COMPLETED"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, a.Status)
	assert.NotNil(t, a.CompletedAt)
	assert.Equal(t, job.StatusCompleted, f.jobs.mirrored("JOB-1"))

	// Counting is left to the aggregator, not the request path.
	stored, err := f.allocs.GetByJobNumber(context.Background(), "JOB-1")
	require.NoError(t, err)
	assert.False(t, stored.Counted)
}

func TestUpdateStatusRejectsIllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   string
	}{
		{"pending to completed", StatusPending, "COMPLETED"},
		{"printing to printing", StatusPrinting, "PRINTING"},
		{"completed to printing", StatusCompleted, "PRINTING"},
		{"completed to completed", StatusCompleted, "COMPLETED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture()
			f.seed("JOB-1", tt.from)

			_, err := f.svc.UpdateStatus(context.Background(), "JOB-1", UpdateStatusRequest{Status: tt.to})
			assert.True(t, errors.Is(err, apperr.ErrInvalidTransition), "got %v", err)

			// The failed call must not have moved the allocation.
			stored, getErr := f.allocs.GetByJobNumber(context.Background(), "JOB-1")
			require.NoError(t, getErr)
			assert.Equal(t, tt.from, stored.Status)
		})
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newServiceFixture()
	f.seed("JOB-1", StatusPending)

	_, err := f.svc.UpdateStatus(context.Background(), "JOB-1", UpdateStatusRequest{Status: "CANCELLED"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.svc.UpdateStatus(context.Background(), "JOB-1", UpdateStatusRequest{Status: "pending"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestUpdateStatusMissingAllocation(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.UpdateStatus(context.Background(), "JOB-404", UpdateStatusRequest{Status: "PRINTING"})
	assert.True(t, apperr.IsNotFound(err))
}

func TestMarkCollected(t *testing.T) {
	f := newServiceFixture()
	f.seed("JOB-1", StatusCompleted)

	a, err := f.svc.MarkCollected(context.Background(), "JOB-1")
	require.NoError(t, err)
	assert.True(t, a.Collected)

	// The flag is one-way; a second attempt is a conflict.
	_, err = f.svc.MarkCollected(context.Background(), "JOB-1")
	assert.True(t, apperr.IsConflict(err), "got %v", err)

	_, err = f.svc.MarkCollected(context.Background(), "JOB-404")
	assert.True(t, apperr.IsNotFound(err))
}

func TestCompleteDrainsPendingOffPrinter(t *testing.T) {
	f := newServiceFixture()
	_, p := f.seed("JOB-1", StatusPrinting)
	setPendingOff(t, f.printers, p.ID)

	_, err := f.svc.UpdateStatus(context.Background(), "JOB-1", UpdateStatusRequest{Status: "COMPLETED"})
	require.NoError(t, err)

	assert.Equal(t, printer.ManualOff, f.printers.manualStatus(p.ID))
}

func TestCompleteLeavesPendingOffWhenPrinterStillBusy(t *testing.T) {
	f := newServiceFixture()
	a, p := f.seed("JOB-1", StatusPrinting)
	setPendingOff(t, f.printers, p.ID)

	// A second active allocation holds the printer.
	pid := p.ID
	f.allocs.put(&Allocation{
		ID:           uuid.New(),
		JobNumber:    "JOB-2",
		ShopID:       a.ShopID,
		PrinterID:    &pid,
		PrinterLabel: p.Label,
		Status:       StatusPending,
	})

	_, err := f.svc.UpdateStatus(context.Background(), "JOB-1", UpdateStatusRequest{Status: "COMPLETED"})
	require.NoError(t, err)

	assert.Equal(t, printer.ManualPendingOff, f.printers.manualStatus(p.ID))
}

func TestCompleteIgnoresDrainForOnPrinter(t *testing.T) {
	f := newServiceFixture()
	_, p := f.seed("JOB-1", StatusPrinting)

	_, err := f.svc.UpdateStatus(context.Background(), "JOB-1", UpdateStatusRequest{Status: "COMPLETED"})
	require.NoError(t, err)

	assert.Equal(t, printer.ManualOn, f.printers.manualStatus(p.ID))
}

// setPendingOff flips the fake printer into the draining state directly.
func setPendingOff(t *testing.T, m *memPrinters, id uuid.UUID) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, list := range m.printers {
		for _, p := range list {
			if p.ID == id {
				p.ManualStatus = printer.ManualPendingOff
				return
			}
		}
	}
	t.Fatalf("printer %s not seeded", id)
}
