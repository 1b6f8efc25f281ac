package domain

import (
	"context"

	quotedomain "github.com/navlun/landedcost/internal/quote/domain"
)

// ShipmentFacts is the slice of a shipment the composer needs. Amounts are
// minor units (cents).
type ShipmentFacts struct {
	DeclaredValueCents int64
	DestinationCountry string

	// Selected courier service, when the user has picked one.
	ServiceSelected    bool
	ServiceDisplayName string
	BaseShippingCents  int64
}

// UserFacts carries the per-user pricing inputs.
type UserFacts struct {
	// Multiplier applied to the courier's base shipping price. Zero means
	// "unset" and is treated as 1.0.
	PriceMultiplier float64
}

// DutySource records where the duty block of a breakdown came from.
type DutySource string

const (
	DutySourceNone      DutySource = "none"
	DutySourceProvider  DutySource = "provider"
	DutySourceHeuristic DutySource = "heuristic"
)

// InsuranceSource records whether insurance came from the range table or the
// percentage fallback.
type InsuranceSource string

const (
	InsuranceSourceRange    InsuranceSource = "range"
	InsuranceSourceFallback InsuranceSource = "fallback"
)

// Breakdown is the customer-facing price decomposition for one shipment and
// service selection. Computed on demand, never persisted by this layer.
type Breakdown struct {
	// True when no service has been selected yet; every amount is zero and
	// must not be shown as a real price.
	AwaitingSelection bool `json:"awaiting_selection"`

	ShippingCents  int64 `json:"shipping_cents"`
	InsuranceCents int64 `json:"insurance_cents"`

	DutyCents          int64 `json:"duty_cents"`
	FlatTariffCents    int64 `json:"flat_tariff_cents"`
	ProcessingFeeCents int64 `json:"processing_fee_cents"`

	TotalCents int64 `json:"total_cents"`

	DutySource      DutySource      `json:"duty_source"`
	InsuranceSource InsuranceSource `json:"insurance_source,omitempty"`

	Display *BreakdownDisplay `json:"display,omitempty"`
}

// BreakdownDisplay carries derived human-formatted amounts.
type BreakdownDisplay struct {
	Shipping      string `json:"shipping"`
	Insurance     string `json:"insurance"`
	Duty          string `json:"duty"`
	FlatTariff    string `json:"flat_tariff"`
	ProcessingFee string `json:"processing_fee"`
	Total         string `json:"total"`
}

// WithDisplay returns a copy with display strings attached.
func (b Breakdown) WithDisplay() Breakdown {
	b.Display = &BreakdownDisplay{
		Shipping:      quotedomain.FormatUSD(b.ShippingCents),
		Insurance:     quotedomain.FormatUSD(b.InsuranceCents),
		Duty:          quotedomain.FormatUSD(b.DutyCents),
		FlatTariff:    quotedomain.FormatUSD(b.FlatTariffCents),
		ProcessingFee: quotedomain.FormatUSD(b.ProcessingFeeCents),
		Total:         quotedomain.FormatUSD(b.TotalCents),
	}
	return b
}

// Service composes breakdowns. dutyResult may be nil when no duty job has
// completed yet; the composer substitutes its heuristic in that case.
type Service interface {
	ComposeBreakdown(ctx context.Context, dutyResult *quotedomain.DutyResult, shipment ShipmentFacts, user UserFacts) (Breakdown, error)
}
