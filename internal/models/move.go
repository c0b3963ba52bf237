package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoveState is the lifecycle state of a stock move.
type MoveState string

const (
	MoveStaging   MoveState = "staging"
	MoveDraft     MoveState = "draft"
	MoveAssigned  MoveState = "assigned"
	MoveDone      MoveState = "done"
	MoveCancelled MoveState = "cancel"
)

var (
	ErrNegativeQuantity  = errors.New("move quantity must not be negative")
	ErrSameLocation      = errors.New("move source and destination must differ")
	ErrEffectiveRequired = errors.New("done move requires an effective date")
	ErrUnitPriceRequired = errors.New("move crossing a priced boundary requires unit price and currency")
)

// moveTransitions is the allowed state graph. Done and cancel are terminal.
var moveTransitions = map[MoveState][]MoveState{
	MoveStaging:  {MoveDraft, MoveCancelled},
	MoveDraft:    {MoveAssigned, MoveDone, MoveCancelled},
	MoveAssigned: {MoveDraft, MoveDone, MoveCancelled},
}

// StockMove is a single directed transfer of a product quantity between two
// locations. Quantity is expressed in UomID units; InternalQuantity is the
// same amount in the product's default unit and is what every aggregation
// sums over.
type StockMove struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	CompanyID        uuid.UUID        `json:"company_id" db:"company_id"`
	ProductID        uuid.UUID        `json:"product_id" db:"product_id"`
	UomID            uuid.UUID        `json:"uom_id" db:"uom_id"`
	Quantity         float64          `json:"quantity" db:"quantity"`
	InternalQuantity float64          `json:"internal_quantity" db:"internal_quantity"`
	FromLocationID   uuid.UUID        `json:"from_location_id" db:"from_location_id"`
	ToLocationID     uuid.UUID        `json:"to_location_id" db:"to_location_id"`
	State            MoveState        `json:"state" db:"state"`
	PlannedDate      *time.Time       `json:"planned_date" db:"planned_date"`
	EffectiveDate    *time.Time       `json:"effective_date" db:"effective_date"`
	ShipmentID       *uuid.UUID       `json:"shipment_id" db:"shipment_id"`
	Origin           *string          `json:"origin" db:"origin"`
	UnitPrice        *decimal.Decimal `json:"unit_price" db:"unit_price"`
	Currency         *string          `json:"currency" db:"currency"`
	CostPrice        *decimal.Decimal `json:"cost_price" db:"cost_price"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// Validate checks the data-integrity invariants the engines assume hold.
func (m *StockMove) Validate() error {
	if m.Quantity < 0 || m.InternalQuantity < 0 {
		return ErrNegativeQuantity
	}
	if m.FromLocationID == m.ToLocationID {
		return ErrSameLocation
	}
	if m.State == MoveDone && m.EffectiveDate == nil {
		return ErrEffectiveRequired
	}
	return nil
}

// CanTransition reports whether the move may change to the given state.
func (m *StockMove) CanTransition(to MoveState) bool {
	for _, s := range moveTransitions[m.State] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition changes the move state after checking the state graph.
func (m *StockMove) Transition(to MoveState) error {
	if !m.CanTransition(to) {
		return fmt.Errorf("cannot transition move %s from %s to %s", m.ID, m.State, to)
	}
	m.State = to
	return nil
}

// Terminal reports whether the move reached a terminal state.
func (m *StockMove) Terminal() bool {
	return m.State == MoveDone || m.State == MoveCancelled
}

// Date is the date the move counts on: the effective date once known,
// otherwise the planned date. Nil for undated staging/draft moves.
func (m *StockMove) Date() *time.Time {
	if m.EffectiveDate != nil {
		return m.EffectiveDate
	}
	return m.PlannedDate
}

// PricedBoundary reports whether moving between the two location types
// requires a unit price: receipts from suppliers into storage and deliveries
// from storage to customers carry the valuation.
func PricedBoundary(from, to LocationType) bool {
	if from == LocationSupplier && to == LocationStorage {
		return true
	}
	if from == LocationStorage && to == LocationCustomer {
		return true
	}
	return false
}

// NeedsUnitPrice validates the priced-boundary rule for the move.
func (m *StockMove) NeedsUnitPrice(from, to LocationType) error {
	if !PricedBoundary(from, to) {
		return nil
	}
	if m.UnitPrice == nil || m.Currency == nil || *m.Currency == "" {
		return ErrUnitPriceRequired
	}
	return nil
}

// Copy returns a new draft-independent copy of the move with a fresh ID,
// used when assignment splits a move across source locations.
func (m *StockMove) Copy() *StockMove {
	c := *m
	c.ID = uuid.New()
	if m.PlannedDate != nil {
		d := *m.PlannedDate
		c.PlannedDate = &d
	}
	if m.EffectiveDate != nil {
		d := *m.EffectiveDate
		c.EffectiveDate = &d
	}
	if m.ShipmentID != nil {
		s := *m.ShipmentID
		c.ShipmentID = &s
	}
	if m.Origin != nil {
		o := *m.Origin
		c.Origin = &o
	}
	if m.UnitPrice != nil {
		p := *m.UnitPrice
		c.UnitPrice = &p
	}
	if m.Currency != nil {
		cur := *m.Currency
		c.Currency = &cur
	}
	if m.CostPrice != nil {
		p := *m.CostPrice
		c.CostPrice = &p
	}
	return &c
}
