package models

import (
	"time"

	"github.com/google/uuid"
)

// Company owns moves, periods and master data. Currency is the ISO code used
// for move unit prices.
type Company struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Currency  string    `json:"currency" db:"currency"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
