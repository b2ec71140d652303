package shop

import (
	"time"

	"github.com/google/uuid"
)

// Shop is a print shop owning printers and receiving jobs.
type Shop struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerName string    `json:"owner_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateShopRequest is the payload for onboarding a shop.
type CreateShopRequest struct {
	Name      string `json:"name"`
	OwnerName string `json:"owner_name,omitempty"`
}
