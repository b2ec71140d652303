package allocation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the print lifecycle state of an allocation.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPrinting  Status = "PRINTING"
	StatusCompleted Status = "COMPLETED"
)

// validTransitions defines the allowed lifecycle transitions.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusPrinting},
	StatusPrinting:  {StatusCompleted},
	StatusCompleted: {},
}

// CanTransition returns true if the transition from current to next is valid.
func CanTransition(current, next Status) bool {
	for _, s := range validTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// Allocation is the durable record binding one job to one printer through its
// print lifecycle. One per job_number; retained after completion for audit
// and statistics.
type Allocation struct {
	ID              uuid.UUID       `json:"id"`
	JobNumber       string          `json:"job_number"`
	ShopID          uuid.UUID       `json:"shop_id"`
	PrinterID       *uuid.UUID      `json:"printer_id,omitempty"`
	PrinterLabel    string          `json:"assigned_printer_label,omitempty"`
	PrinterSnapshot json.RawMessage `json:"printer_snapshot,omitempty"`
	Status          Status          `json:"job_status"`
	Collected       bool            `json:"collected"`

	// Counted and ClaimedAt coordinate exactly-once stat application; they
	// are never part of the collaborator-facing payload.
	Counted   bool       `json:"-"`
	ClaimedAt *time.Time `json:"-"`

	TotalAmount       float64    `json:"total_amount"`
	PrintingStartedAt *time.Time `json:"printing_started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// UpdateStatusRequest is the payload for advancing an allocation's status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}
