package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	// FindActiveForValue returns the active range containing valueCents,
	// or nil when no bracket matches.
	FindActiveForValue(ctx context.Context, valueCents int64) (*InsuranceRange, error)

	Create(ctx context.Context, rng *InsuranceRange) error
	List(ctx context.Context, activeOnly bool) ([]InsuranceRange, error)
	Deactivate(ctx context.Context, id snowflake.ID) error

	// FindActiveOverlapping returns active ranges intersecting
	// [minCents, maxCents], excluding excludeID when non-zero.
	FindActiveOverlapping(ctx context.Context, minCents, maxCents int64, excludeID snowflake.ID) ([]InsuranceRange, error)
}
