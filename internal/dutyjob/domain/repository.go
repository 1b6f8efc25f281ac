package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, job *DutyCalculationJob) error
	FindByJobID(ctx context.Context, db *gorm.DB, jobID string) (*DutyCalculationJob, error)

	// FetchPending returns up to limit pending jobs ordered by
	// (priority desc, created_at asc).
	FetchPending(ctx context.Context, db *gorm.DB, limit int) ([]DutyCalculationJob, error)

	// MarkProcessing claims a pending job. Returns false when another
	// claimer won, without error.
	MarkProcessing(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)

	// Complete and Fail only apply to jobs in processing state, so a
	// terminal state is written exactly once, by the claimer.
	Complete(ctx context.Context, db *gorm.DB, id snowflake.ID, result datatypes.JSON, processingMS int64, now time.Time) (bool, error)
	Fail(ctx context.Context, db *gorm.DB, id snowflake.ID, message string, processingMS int64, now time.Time) (bool, error)

	// DeleteExpiredCompleted removes completed jobs past their expiry.
	// Pending and processing rows are never touched.
	DeleteExpiredCompleted(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}
