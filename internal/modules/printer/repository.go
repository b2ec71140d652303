package printer

import "context"

// Repository defines data access for printers.
type Repository interface {
	Create(ctx context.Context, p *Printer) error
	GetByID(ctx context.Context, id string) (*Printer, error)
	ListByShop(ctx context.Context, shopID string) ([]*Printer, error)
	ListPendingOff(ctx context.Context) ([]*Printer, error)

	// SetManualStatus writes the shopkeeper's intent unconditionally.
	SetManualStatus(ctx context.Context, id string, status ManualStatus) error

	// ClaimPendingOffToOff flips PENDING_OFF to OFF only if the printer is
	// still PENDING_OFF, returning claim.ErrLost otherwise. The caller checks
	// for active work immediately before; the predicate keeps the flip from
	// racing a competing manual change.
	ClaimPendingOffToOff(ctx context.Context, id string) error

	// UpdateAgentState stores agent telemetry: detected capabilities and/or
	// operational status.
	UpdateAgentState(ctx context.Context, id string, status OperationalStatus, caps []Capability) error
}
