package models

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

var ErrIncompatibleUoms = errors.New("units of measure belong to different categories")

// UoM is a unit of measure. Factor converts a quantity expressed in this
// unit into the category's base unit; Rounding is the smallest representable
// step for quantities in this unit.
type UoM struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Symbol     string    `json:"symbol" db:"symbol"`
	CategoryID uuid.UUID `json:"category_id" db:"category_id"`
	Factor     float64   `json:"factor" db:"factor"`
	Rounding   float64   `json:"rounding" db:"rounding"`
	Digits     int       `json:"digits" db:"digits"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Round rounds a quantity to the nearest multiple of the unit's rounding step.
func (u *UoM) Round(quantity float64) float64 {
	return roundStep(quantity, u.Rounding, u.Digits, math.Round)
}

// Floor rounds a quantity down to a multiple of the unit's rounding step.
func (u *UoM) Floor(quantity float64) float64 {
	return roundStep(quantity, u.Rounding, u.Digits, math.Floor)
}

// Ceil rounds a quantity up to a multiple of the unit's rounding step.
func (u *UoM) Ceil(quantity float64) float64 {
	return roundStep(quantity, u.Rounding, u.Digits, math.Ceil)
}

func roundStep(quantity, step float64, digits int, f func(float64) float64) float64 {
	if step <= 0 {
		return quantity
	}
	rounded := f(quantity/step) * step
	// Snap to the unit's precision so the result stays an exact multiple of
	// the step instead of accumulating binary float noise.
	scale := math.Pow(10, float64(digits))
	return math.Round(rounded*scale) / scale
}

// ConvertQuantity converts a quantity between two units of the same category.
// When round is true the result is rounded to the target unit's step.
func ConvertQuantity(quantity float64, from, to *UoM, round bool) (float64, error) {
	if from.ID == to.ID {
		return quantity, nil
	}
	if from.CategoryID != to.CategoryID {
		return 0, ErrIncompatibleUoms
	}
	converted := quantity * from.Factor / to.Factor
	if round {
		converted = to.Round(converted)
	}
	return converted, nil
}
