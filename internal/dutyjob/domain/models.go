package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	quotedomain "github.com/navlun/landedcost/internal/quote/domain"
	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// DefaultExpiry bounds how long a completed job row survives before the
// cleanup sweep may remove it.
const DefaultExpiry = time.Hour

// DutyCalculationJob is one unit of asynchronous duty-calculation work.
//
// Invariants: JobID is globally unique; status moves pending -> processing ->
// completed|failed and never leaves a terminal state; ResultData is set iff
// completed; ErrorMessage is set iff failed.
type DutyCalculationJob struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	JobID string       `gorm:"column:job_id;type:text;not null;uniqueIndex"`

	// SessionID routes live completion updates; empty means poll-only.
	SessionID string `gorm:"column:session_id;type:text;index"`

	OriginCountry      string `gorm:"column:origin_country;type:text;not null"`
	DestinationCountry string `gorm:"column:destination_country;type:text;not null"`

	// Minor units (cents).
	CustomsValue int64 `gorm:"column:customs_value;not null"`
	ShippingCost int64 `gorm:"column:shipping_cost;not null"`

	Provider       string         `gorm:"column:provider;type:text;not null"`
	PackageDetails datatypes.JSON `gorm:"column:package_details"`

	Priority int       `gorm:"column:priority;not null;default:1"`
	Status   JobStatus `gorm:"column:status;type:text;not null;index"`

	ResultData       datatypes.JSON `gorm:"column:result_data"`
	ErrorMessage     *string        `gorm:"column:error_message;type:text"`
	ProcessingTimeMS *int64         `gorm:"column:processing_time_ms"`

	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null"`
	StartedAt   *time.Time `gorm:"column:started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	ExpiresAt   time.Time  `gorm:"column:expires_at;not null;index"`
}

func (DutyCalculationJob) TableName() string { return "duty_calculation_jobs" }

// PackageDetails is the typed shape of the job's package payload.
type PackageDetails struct {
	Weight     float64                `json:"weight"`
	Dimensions quotedomain.Dimensions `json:"dimensions"`
	Items      []PackageItem          `json:"items"`
}

type PackageItem struct {
	Description string `json:"description"`
	// Decimal dollars, as providers speak them.
	Value    float64 `json:"value"`
	Quantity int     `json:"quantity"`
	Weight   float64 `json:"weight,omitempty"`
	HSCode   string  `json:"hs_code,omitempty"`
}

// CreateJobParams is the enqueue request from the host process.
type CreateJobParams struct {
	JobID              string                   `json:"job_id"`
	SessionID          string                   `json:"session_id,omitempty"`
	OriginCountry      string                   `json:"origin_country"`
	DestinationCountry string                   `json:"destination_country"`
	CustomsValueCents  int64                    `json:"customs_value_cents"`
	ShippingCostCents  int64                    `json:"shipping_cost_cents"`
	Provider           quotedomain.ProviderMode `json:"provider"`
	Package            PackageDetails           `json:"package_details"`
	Priority           *int                     `json:"priority,omitempty"`
}
