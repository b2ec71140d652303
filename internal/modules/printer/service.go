package printer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
)

// ActiveWorkChecker reports whether any non-completed allocation still
// references a printer. Implemented by the allocation repository.
type ActiveWorkChecker interface {
	HasActiveWork(ctx context.Context, shopID, printerID, label string) (bool, error)
}

// Service defines printer management business logic.
type Service interface {
	RegisterPrinter(ctx context.Context, req RegisterPrinterRequest) (*Printer, error)
	GetPrinter(ctx context.Context, id string) (*Printer, error)
	ListShopPrinters(ctx context.Context, shopID string) ([]*Printer, error)

	// SetManualStatus applies shopkeeper intent. An OFF request while the
	// printer holds an active job degrades to PENDING_OFF rather than
	// erroring; the reconciler finishes the drain later.
	SetManualStatus(ctx context.Context, id string, req SetManualStatusRequest) (*Printer, error)

	// IngestAgentState applies printer agent telemetry.
	IngestAgentState(ctx context.Context, id string, req UpdateCapabilitiesRequest) (*Printer, error)
}

type service struct {
	repo   Repository
	active ActiveWorkChecker
}

func NewService(repo Repository, active ActiveWorkChecker) Service {
	return &service{repo: repo, active: active}
}

func (s *service) RegisterPrinter(ctx context.Context, req RegisterPrinterRequest) (*Printer, error) {
	if req.ShopID == "" {
		return nil, apperr.Validation("shop_id is required")
	}
	if req.Label == "" {
		return nil, apperr.Validation("label is required")
	}
	shopID, err := uuid.Parse(req.ShopID)
	if err != nil {
		return nil, apperr.Validation("invalid shop_id: %v", err)
	}

	source := SourceAgent
	if strings.ToUpper(req.CapabilitySource) == string(SourceManual) {
		source = SourceManual
	}

	p := &Printer{
		ID:                 uuid.New(),
		ShopID:             shopID,
		Label:              req.Label,
		OperationalStatus:  Offline, // agent telemetry flips this to ONLINE
		ManualStatus:       ManualOn,
		CapabilitySource:   source,
		ManualCapabilities: req.ManualCapabilities,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, p.ID.String())
}

func (s *service) GetPrinter(ctx context.Context, id string) (*Printer, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListShopPrinters(ctx context.Context, shopID string) ([]*Printer, error) {
	return s.repo.ListByShop(ctx, shopID)
}

func (s *service) SetManualStatus(ctx context.Context, id string, req SetManualStatusRequest) (*Printer, error) {
	desired := ManualStatus(strings.ToUpper(req.Status))
	if desired != ManualOn && desired != ManualOff {
		return nil, apperr.Validation("status must be ON or OFF")
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	effective := desired
	if desired == ManualOff {
		busy, err := s.active.HasActiveWork(ctx, p.ShopID.String(), p.ID.String(), p.Label)
		if err != nil {
			return nil, fmt.Errorf("check active work: %w", err)
		}
		if busy {
			effective = ManualPendingOff
		}
	}

	if err := s.repo.SetManualStatus(ctx, id, effective); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) IngestAgentState(ctx context.Context, id string, req UpdateCapabilitiesRequest) (*Printer, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	status := OperationalStatus("")
	if req.OperationalStatus != "" {
		status = OperationalStatus(strings.ToUpper(req.OperationalStatus))
		if status != Online && status != Offline {
			return nil, apperr.Validation("operational_status must be ONLINE or OFFLINE")
		}
	}

	if err := s.repo.UpdateAgentState(ctx, id, status, req.Capabilities); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}
