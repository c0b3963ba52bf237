package models

import (
	"time"

	"github.com/google/uuid"
)

// PeriodState is the lifecycle state of a stock period.
type PeriodState string

const (
	PeriodDraft  PeriodState = "draft"
	PeriodClosed PeriodState = "closed"
)

// Period is a closed time boundary. Once closed, its cache rows are the
// authoritative quantities for all dates up to and including Date.
type Period struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	CompanyID uuid.UUID   `json:"company_id" db:"company_id"`
	Name      string      `json:"name" db:"name"`
	Date      time.Time   `json:"date" db:"date"`
	State     PeriodState `json:"state" db:"state"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// PeriodCache is one frozen quantity bucket as of the period boundary,
// keyed by location and product. Written only by the period closing engine
// and deleted when the period is reopened.
type PeriodCache struct {
	ID               uuid.UUID `json:"id" db:"id"`
	PeriodID         uuid.UUID `json:"period_id" db:"period_id"`
	LocationID       uuid.UUID `json:"location_id" db:"location_id"`
	ProductID        uuid.UUID `json:"product_id" db:"product_id"`
	InternalQuantity float64   `json:"internal_quantity" db:"internal_quantity"`
}
