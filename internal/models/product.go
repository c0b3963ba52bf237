package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the minimal product master the stock engines need. Consumable
// products are assumed freely available and skip the physical availability
// check during assignment.
type Product struct {
	ID           uuid.UUID `json:"id" db:"id"`
	CompanyID    uuid.UUID `json:"company_id" db:"company_id"`
	Name         string    `json:"name" db:"name"`
	Code         *string   `json:"code" db:"code"`
	DefaultUomID uuid.UUID `json:"default_uom_id" db:"default_uom_id"`
	Consumable   bool      `json:"consumable" db:"consumable"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
