package domain

import "errors"

var (
	ErrInvalidJobID    = errors.New("invalid_job_id")
	ErrDuplicateJobID  = errors.New("duplicate_job_id")
	ErrInvalidCountry  = errors.New("invalid_country_code")
	ErrInvalidValue    = errors.New("invalid_customs_value")
	ErrInvalidProvider = errors.New("invalid_provider_mode")
	ErrEmptyPackage    = errors.New("empty_package_items")
	ErrJobNotFound     = errors.New("job_not_found")
)
