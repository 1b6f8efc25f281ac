package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/navlun/landedcost/internal/dutyjob/domain"
	pkgdb "github.com/navlun/landedcost/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, job *domain.DutyCalculationJob) error {
	err := db.WithContext(ctx).Create(job).Error
	if pkgdb.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicateJobID
	}
	return err
}

func (r *repo) FindByJobID(ctx context.Context, db *gorm.DB, jobID string) (*domain.DutyCalculationJob, error) {
	var job domain.DutyCalculationJob
	err := db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *repo) FetchPending(ctx context.Context, db *gorm.DB, limit int) ([]domain.DutyCalculationJob, error) {
	if limit <= 0 {
		limit = 5
	}
	var jobs []domain.DutyCalculationJob
	err := db.WithContext(ctx).
		Where("status = ?", domain.JobStatusPending).
		Order("priority DESC, created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repo) MarkProcessing(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE duty_calculation_jobs
		 SET status = ?, started_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.JobStatusProcessing, now, now,
		id, domain.JobStatusPending,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Complete(ctx context.Context, db *gorm.DB, id snowflake.ID, resultData datatypes.JSON, processingMS int64, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE duty_calculation_jobs
		 SET status = ?, result_data = ?, processing_time_ms = ?, completed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.JobStatusCompleted, resultData, processingMS, now, now,
		id, domain.JobStatusProcessing,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Fail(ctx context.Context, db *gorm.DB, id snowflake.ID, message string, processingMS int64, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE duty_calculation_jobs
		 SET status = ?, error_message = ?, processing_time_ms = ?, completed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.JobStatusFailed, message, processingMS, now, now,
		id, domain.JobStatusProcessing,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) DeleteExpiredCompleted(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM duty_calculation_jobs
		 WHERE status = ? AND expires_at < ?`,
		domain.JobStatusCompleted, now,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

var _ domain.Repository = (*repo)(nil)
