package domain

import "errors"

var (
	ErrInvalidBracket   = errors.New("invalid_bracket")
	ErrInvalidCost      = errors.New("invalid_cost")
	ErrOverlappingRange = errors.New("overlapping_range")
	ErrRangeNotFound    = errors.New("range_not_found")
)
