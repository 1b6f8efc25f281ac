package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	insurancedomain "github.com/navlun/landedcost/internal/insurance/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) insurancedomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindActiveForValue(ctx context.Context, valueCents int64) (*insurancedomain.InsuranceRange, error) {
	var rng insurancedomain.InsuranceRange
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, min_value_cents, max_value_cents, cost_cents, is_active, created_at, updated_at
		 FROM insurance_ranges
		 WHERE is_active = true AND min_value_cents <= ? AND max_value_cents >= ?
		 ORDER BY min_value_cents ASC
		 LIMIT 1`,
		valueCents,
		valueCents,
	).Scan(&rng).Error
	if err != nil {
		return nil, err
	}
	if rng.ID == 0 {
		return nil, nil
	}
	return &rng, nil
}

func (r *repository) Create(ctx context.Context, rng *insurancedomain.InsuranceRange) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO insurance_ranges (
			id, min_value_cents, max_value_cents, cost_cents, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rng.ID,
		rng.MinValueCents,
		rng.MaxValueCents,
		rng.CostCents,
		rng.IsActive,
		rng.CreatedAt,
		rng.UpdatedAt,
	).Error
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]insurancedomain.InsuranceRange, error) {
	var items []insurancedomain.InsuranceRange
	stmt := r.db.WithContext(ctx).
		Model(&insurancedomain.InsuranceRange{}).
		Order("min_value_cents ASC")

	if activeOnly {
		stmt = stmt.Where("is_active = ?", true)
	}

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Deactivate(ctx context.Context, id snowflake.ID) error {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE insurance_ranges
		 SET is_active = false, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND is_active = true`,
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return insurancedomain.ErrRangeNotFound
	}
	return nil
}

func (r *repository) FindActiveOverlapping(ctx context.Context, minCents, maxCents int64, excludeID snowflake.ID) ([]insurancedomain.InsuranceRange, error) {
	var items []insurancedomain.InsuranceRange
	stmt := r.db.WithContext(ctx).
		Model(&insurancedomain.InsuranceRange{}).
		Where("is_active = ?", true).
		Where("min_value_cents <= ? AND max_value_cents >= ?", maxCents, minCents)

	if excludeID != 0 {
		stmt = stmt.Where("id <> ?", excludeID)
	}

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
