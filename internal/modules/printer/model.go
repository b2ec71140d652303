package printer

import (
	"time"

	"github.com/google/uuid"
)

// OperationalStatus is the agent-reported health of a printer.
type OperationalStatus string

const (
	Online  OperationalStatus = "ONLINE"
	Offline OperationalStatus = "OFFLINE"
)

// ManualStatus is the shopkeeper's intent for a printer. PendingOff is a
// deferred off: the printer stops receiving new work and flips to Off once
// its in-flight job completes (drain-to-off).
type ManualStatus string

const (
	ManualOn         ManualStatus = "ON"
	ManualOff        ManualStatus = "OFF"
	ManualPendingOff ManualStatus = "PENDING_OFF"
)

// CapabilitySource selects which capability list is in effect.
type CapabilitySource string

const (
	SourceAgent  CapabilitySource = "AGENT"
	SourceManual CapabilitySource = "MANUAL"
)

// Media types a capability entry can declare.
const (
	MediaColor = "COLOR"
	MediaMono  = "MONO"
)

// Capability is one mode a printer can print in.
type Capability struct {
	MediaType       string   `json:"media_type"`
	DuplexSupported bool     `json:"duplex_supported"`
	PaperSizes      []string `json:"paper_sizes,omitempty"`
}

// Printer belongs to exactly one shop.
type Printer struct {
	ID                 uuid.UUID         `json:"id"`
	ShopID             uuid.UUID         `json:"shop_id"`
	Label              string            `json:"label"`
	OperationalStatus  OperationalStatus `json:"operational_status"`
	ManualStatus       ManualStatus      `json:"manual_status"`
	CapabilitySource   CapabilitySource  `json:"capability_source"`
	AgentCapabilities  []Capability      `json:"agent_capabilities,omitempty"`
	ManualCapabilities []Capability      `json:"manual_capabilities,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// EffectiveCapabilities returns the capability list selected by
// CapabilitySource. May be empty; the matcher fails closed on that.
func (p *Printer) EffectiveCapabilities() []Capability {
	if p.CapabilitySource == SourceManual {
		return p.ManualCapabilities
	}
	return p.AgentCapabilities
}

// RegisterPrinterRequest is the payload for adding a printer to a shop.
type RegisterPrinterRequest struct {
	ShopID             string       `json:"shop_id"`
	Label              string       `json:"label"`
	CapabilitySource   string       `json:"capability_source,omitempty"`
	ManualCapabilities []Capability `json:"manual_capabilities,omitempty"`
}

// SetManualStatusRequest is the payload for a shopkeeper status change.
type SetManualStatusRequest struct {
	Status string `json:"status"`
}

// UpdateCapabilitiesRequest carries agent telemetry: detected capabilities
// and the current operational status.
type UpdateCapabilitiesRequest struct {
	OperationalStatus string       `json:"operational_status,omitempty"`
	Capabilities      []Capability `json:"capabilities,omitempty"`
}
