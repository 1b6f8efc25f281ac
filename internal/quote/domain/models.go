package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider names. These are wire-visible identifiers persisted in job result
// payloads; do not rename once in use.
const (
	ProviderUPS      = "ups_landed_cost"
	ProviderEasyship = "easyship"
	ProviderLLM      = "llm_estimator"
)

// ProviderMode selects which providers a calculation may use.
type ProviderMode string

const (
	ModeUPS      ProviderMode = "ups"
	ModeEasyship ProviderMode = "easyship"
	ModeLLM      ProviderMode = "llm"
	ModeBoth     ProviderMode = "both"
)

func (m ProviderMode) Valid() bool {
	switch m {
	case ModeUPS, ModeEasyship, ModeLLM, ModeBoth:
		return true
	}
	return false
}

// QuoteRequest carries the customs facts of one shipment. Monetary amounts are
// decimal currency (dollars) because that is what every provider speaks; the
// conversion from minor units happens once, at request construction.
type QuoteRequest struct {
	OriginCountry      string
	DestinationCountry string
	CustomsValue       decimal.Decimal
	ShippingCost       decimal.Decimal
	Weight             float64
	Dimensions         Dimensions
	Items              []LineItem
}

type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type LineItem struct {
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
	Quantity    int             `json:"quantity"`
	Weight      float64         `json:"weight,omitempty"`
	HSCode      string          `json:"hs_code,omitempty"`
}

// DutyResult is the normalized output of any provider. Monetary fields are
// integer minor units (cents); Display strings are derived, never authoritative.
type DutyResult struct {
	Provider string `json:"provider"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`

	Duty      int64 `json:"duty"`
	Tax       int64 `json:"tax"`
	VAT       int64 `json:"vat"`
	Brokerage int64 `json:"brokerage"`

	Total      int64 `json:"total"`
	GrandTotal int64 `json:"grand_total"`

	// Populated by the reasoning-model estimator only.
	Confidence float64 `json:"confidence,omitempty"`
	Reasoning  string  `json:"reasoning,omitempty"`
	HSCodeUsed string  `json:"hs_code_used,omitempty"`
	DutyRate   float64 `json:"duty_rate,omitempty"`
	TaxRate    float64 `json:"tax_rate,omitempty"`
	VATRate    float64 `json:"vat_rate,omitempty"`

	Display *AmountDisplay `json:"display,omitempty"`
}

// AmountDisplay carries human-formatted amounts for UI consumption.
type AmountDisplay struct {
	Duty       string `json:"duty"`
	Tax        string `json:"tax"`
	VAT        string `json:"vat"`
	Brokerage  string `json:"brokerage"`
	Total      string `json:"total"`
	GrandTotal string `json:"grand_total"`
}

// WithDisplay returns a copy with derived display strings attached.
func (r DutyResult) WithDisplay() DutyResult {
	r.Display = &AmountDisplay{
		Duty:       FormatUSD(r.Duty),
		Tax:        FormatUSD(r.Tax),
		VAT:        FormatUSD(r.VAT),
		Brokerage:  FormatUSD(r.Brokerage),
		Total:      FormatUSD(r.Total),
		GrandTotal: FormatUSD(r.GrandTotal),
	}
	return r
}

// Unsuccessful builds a failed result for the given provider. Expected failure
// modes (missing credentials, transport errors, provider rejections) surface
// through here, never as returned errors.
func Unsuccessful(provider, message string) DutyResult {
	return DutyResult{Provider: provider, Success: false, Error: message}
}

// Provider is the uniform adapter contract. Quote returns an error only for
// programming mistakes; every expected failure is an unsuccessful DutyResult.
type Provider interface {
	Name() string
	Quote(ctx context.Context, req QuoteRequest) (DutyResult, error)
}

// Calculator runs the provider fallback chain for one request.
type Calculator interface {
	Calculate(ctx context.Context, mode ProviderMode, req QuoteRequest) DutyResult
}
