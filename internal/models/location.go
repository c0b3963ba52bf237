package models

import (
	"time"

	"github.com/google/uuid"
)

// LocationType classifies a node of the location tree.
type LocationType string

const (
	LocationSupplier   LocationType = "supplier"
	LocationCustomer   LocationType = "customer"
	LocationStorage    LocationType = "storage"
	LocationWarehouse  LocationType = "warehouse"
	LocationView       LocationType = "view"
	LocationLostFound  LocationType = "lost_found"
	LocationProduction LocationType = "production"
	LocationDrop       LocationType = "drop"
)

// Valid reports whether the type is one of the known location types.
func (t LocationType) Valid() bool {
	switch t {
	case LocationSupplier, LocationCustomer, LocationStorage, LocationWarehouse,
		LocationView, LocationLostFound, LocationProduction, LocationDrop:
		return true
	}
	return false
}

// Location is a node in the per-company location tree. FlatChilds means the
// node's descendants are merged into the node itself for quantity purposes.
type Location struct {
	ID         uuid.UUID    `json:"id" db:"id"`
	CompanyID  uuid.UUID    `json:"company_id" db:"company_id"`
	Name       string       `json:"name" db:"name"`
	Code       *string      `json:"code" db:"code"`
	Type       LocationType `json:"type" db:"type"`
	ParentID   *uuid.UUID   `json:"parent_id" db:"parent_id"`
	FlatChilds bool         `json:"flat_childs" db:"flat_childs"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// CanHoldStock reports whether the location type physically holds stock.
// View and warehouse nodes are aggregation nodes only.
func (l *Location) CanHoldStock() bool {
	return l.Type != LocationView && l.Type != LocationWarehouse
}
