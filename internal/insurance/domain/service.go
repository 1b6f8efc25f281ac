package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// LookupCost returns the flat cost for a declared value, or
	// (0, false) when no active bracket covers it.
	LookupCost(ctx context.Context, valueCents int64) (int64, bool, error)

	CreateRange(ctx context.Context, rng *InsuranceRange) error
	ListRanges(ctx context.Context, activeOnly bool) ([]InsuranceRange, error)
	DeactivateRange(ctx context.Context, id snowflake.ID) error
}
