package job

import (
	"time"

	"github.com/google/uuid"
)

// AllocationState tracks whether the allocator has claimed a job yet.
type AllocationState string

const (
	AllocationPending AllocationState = "PENDING"
	AllocationAlloted AllocationState = "ALLOTED"
)

// Status mirrors the allocation lifecycle back onto the job for display.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPrinting  Status = "PRINTING"
	StatusCompleted Status = "COMPLETED"
)

// Requirements are the print constraints a matching printer must satisfy.
// PaperSize empty means the customer did not constrain paper size.
type Requirements struct {
	Color     bool   `json:"color"`
	Duplex    bool   `json:"duplex"`
	PaperSize string `json:"paper_size,omitempty"`
}

// Job is a submitted print request awaiting (or holding) an allocation.
type Job struct {
	ID              uuid.UUID       `json:"id"`
	JobNumber       string          `json:"job_number"`
	ShopID          uuid.UUID       `json:"shop_id"`
	Requirements    Requirements    `json:"requirements"`
	TotalAmount     float64         `json:"total_amount"`
	AllocationState AllocationState `json:"allocation_state"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SubmitJobRequest is the intake payload for a new print job.
type SubmitJobRequest struct {
	ShopID      string  `json:"shop_id"`
	Color       bool    `json:"color"`
	Duplex      bool    `json:"duplex"`
	PaperSize   string  `json:"paper_size,omitempty"`
	TotalAmount float64 `json:"total_amount"`
}
