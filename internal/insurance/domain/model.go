package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// InsuranceRange maps an inclusive declared-value bracket to a flat
// insurance cost. All amounts are minor units (cents).
// NOTE:
// - active ranges must not overlap; enforced at write time
// - lookups tolerate a missing bracket, callers apply their own fallback
type InsuranceRange struct {
	ID snowflake.ID `gorm:"primaryKey"`

	MinValueCents int64 `gorm:"column:min_value_cents;not null"`
	MaxValueCents int64 `gorm:"column:max_value_cents;not null"`
	CostCents     int64 `gorm:"column:cost_cents;not null"`

	IsActive bool `gorm:"column:is_active;not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (InsuranceRange) TableName() string { return "insurance_ranges" }

func (r *InsuranceRange) Validate() error {
	if r.MinValueCents < 0 {
		return ErrInvalidBracket
	}
	if r.MaxValueCents < r.MinValueCents {
		return ErrInvalidBracket
	}
	if r.CostCents < 0 {
		return ErrInvalidCost
	}
	return nil
}

// Contains reports whether value falls inside the bracket, inclusive
// on both ends.
func (r *InsuranceRange) Contains(valueCents int64) bool {
	return valueCents >= r.MinValueCents && valueCents <= r.MaxValueCents
}
