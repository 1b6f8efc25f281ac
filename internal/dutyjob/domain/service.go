package domain

import "context"

type Service interface {
	// CreateJob validates and persists a new pending job. Returns
	// ErrDuplicateJobID when the caller-supplied identifier already exists.
	CreateJob(ctx context.Context, params CreateJobParams) (*DutyCalculationJob, error)

	// GetJobStatus returns the job or nil when unknown.
	GetJobStatus(ctx context.Context, jobID string) (*DutyCalculationJob, error)
}
