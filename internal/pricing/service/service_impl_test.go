package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	insurancedomain "github.com/navlun/landedcost/internal/insurance/domain"
	pricingdomain "github.com/navlun/landedcost/internal/pricing/domain"
	quotedomain "github.com/navlun/landedcost/internal/quote/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type insuranceStub struct {
	cost int64
	ok   bool
	err  error
}

func (s *insuranceStub) LookupCost(ctx context.Context, valueCents int64) (int64, bool, error) {
	return s.cost, s.ok, s.err
}

func (s *insuranceStub) CreateRange(ctx context.Context, rng *insurancedomain.InsuranceRange) error {
	return nil
}

func (s *insuranceStub) ListRanges(ctx context.Context, activeOnly bool) ([]insurancedomain.InsuranceRange, error) {
	return nil, nil
}

func (s *insuranceStub) DeactivateRange(ctx context.Context, id snowflake.ID) error {
	return nil
}

func newTestService(ins insurancedomain.Service) *Service {
	svc := NewService(serviceParams{
		Log:       zap.NewNop(),
		Insurance: ins,
	})
	return svc.(*Service)
}

func selectedShipment() pricingdomain.ShipmentFacts {
	return pricingdomain.ShipmentFacts{
		DeclaredValueCents: 5000,
		DestinationCountry: "US",
		ServiceSelected:    true,
		ServiceDisplayName: "UPS Worldwide Saver",
		BaseShippingCents:  1000,
	}
}

func TestComposeBreakdown_ShippingMultiplier(t *testing.T) {
	svc := newTestService(&insuranceStub{})

	shipment := selectedShipment()
	breakdown, err := svc.ComposeBreakdown(context.Background(), nil, shipment, pricingdomain.UserFacts{PriceMultiplier: 1.25})
	assert.NoError(t, err)
	assert.False(t, breakdown.AwaitingSelection)
	assert.Equal(t, int64(1250), breakdown.ShippingCents)
}

func TestComposeBreakdown_MultiplierUnsetDefaultsToOne(t *testing.T) {
	svc := newTestService(&insuranceStub{})

	breakdown, err := svc.ComposeBreakdown(context.Background(), nil, selectedShipment(), pricingdomain.UserFacts{})
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), breakdown.ShippingCents)
}

func TestComposeBreakdown_InsuranceFallback(t *testing.T) {
	// No matching range: max(100000 * 0.02, 500) = 2000.
	svc := newTestService(&insuranceStub{ok: false})

	shipment := selectedShipment()
	shipment.DeclaredValueCents = 100000

	breakdown, err := svc.ComposeBreakdown(context.Background(), nil, shipment, pricingdomain.UserFacts{})
	assert.NoError(t, err)
	assert.Equal(t, int64(2000), breakdown.InsuranceCents)
	assert.Equal(t, pricingdomain.InsuranceSourceFallback, breakdown.InsuranceSource)
}

func TestComposeBreakdown_InsuranceFallbackFloor(t *testing.T) {
	// 10000 * 0.02 = 200 is below the 500 floor.
	svc := newTestService(&insuranceStub{ok: false})

	shipment := selectedShipment()
	shipment.DeclaredValueCents = 10000

	breakdown, err := svc.ComposeBreakdown(context.Background(), nil, shipment, pricingdomain.UserFacts{})
	assert.NoError(t, err)
	assert.Equal(t, int64(500), breakdown.InsuranceCents)
}

func TestComposeBreakdown_InsuranceRangeHit(t *testing.T) {
	svc := newTestService(&insuranceStub{cost: 750, ok: true})

	breakdown, err := svc.ComposeBreakdown(context.Background(), nil, selectedShipment(), pricingdomain.UserFacts{})
	assert.NoError(t, err)
	assert.Equal(t, int64(750), breakdown.InsuranceCents)
	assert.Equal(t, pricingdomain.InsuranceSourceRange, breakdown.InsuranceSource)
}

func TestComposeBreakdown_InsuranceLookupErrorFallsBack(t *testing.T) {
	svc := newTestService(&insuranceStub{err: errors.New("db gone")})

	shipment := selectedShipment()
	shipment.DeclaredValueCents = 100000

	breakdown, err := svc.ComposeBreakdown(context.Background(), nil, shipment, pricingdomain.UserFacts{})
	assert.NoError(t, err)
	assert.Equal(t, int64(2000), breakdown.InsuranceCents)
	assert.Equal(t, pricingdomain.InsuranceSourceFallback, breakdown.InsuranceSource)
}

func TestComposeBreakdown_NonCustomsDestinationZeroDuty(t *testing.T) {
	svc := newTestService(&insuranceStub{})

	shipment := selectedShipment()
	shipment.DestinationCountry = "DE"

	dutyResult := &quotedomain.DutyResult{Provider: quotedomain.ProviderLLM, Success: true, Total: 600}

	breakdown, err := svc.ComposeBreakdown(context.Background(), dutyResult, shipment, pricingdomain.UserFacts{})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), breakdown.DutyCents)
	assert.Equal(t, int64(0), breakdown.FlatTariffCents)
	assert.Equal(t, pricingdomain.DutySourceNone, breakdown.DutySource)
}

func TestComposeBreakdown_CustomsDestinationUsesProviderDuty(t *testing.T) {
	svc := newTestService(&insuranceStub{})

	dutyResult := &quotedomain.DutyResult{Provider: quotedomain.ProviderLLM, Success: true, Total: 600}

	breakdown, err := svc.ComposeBreakdown(context.Background(), dutyResult, selectedShipment(), pricingdomain.UserFacts{})
	assert.NoError(t, err)
	assert.Equal(t, int64(600), breakdown.DutyCents)
	assert.Equal(t, pricingdomain.DutySourceProvider, breakdown.DutySource)
}

func TestComposeBreakdown_MissingDutyResultUsesHeuristic(t *testing.T) {
	svc := newTestService(&insuranceStub{})

	shipment := selectedShipment()
	shipment.DeclaredValueCents = 10000

	// 10000 * 0.06 = 600.
	breakdown, err := svc.ComposeBreakdown(context.Background(), nil, shipment, pricingdomain.UserFacts{})
	assert.NoError(t, err)
	assert.Equal(t, int64(600), breakdown.DutyCents)
	assert.Equal(t, pricingdomain.DutySourceHeuristic, breakdown.DutySource)
}

func TestComposeBreakdown_FailedDutyResultUsesHeuristic(t *testing.T) {
	svc := newTestService(&insuranceStub{})

	shipment := selectedShipment()
	shipment.DeclaredValueCents = 10000

	failed := &quotedomain.DutyResult{Success: false, Error: "all providers failed"}

	breakdown, err := svc.ComposeBreakdown(context.Background(), failed, shipment, pricingdomain.UserFacts{})
	assert.NoError(t, err)
	assert.Equal(t, int64(600), breakdown.DutyCents)
	assert.Equal(t, pricingdomain.DutySourceHeuristic, breakdown.DutySource)
}

func TestComposeBreakdown_ProcessingFeeByServiceTier(t *testing.T) {
	svc := newTestService(&insuranceStub{})

	eco := selectedShipment()
	eco.ServiceDisplayName = "FedEx International Economy"

	breakdown, err := svc.ComposeBreakdown(context.Background(), nil, eco, pricingdomain.UserFacts{})
	assert.NoError(t, err)
	assert.Equal(t, int64(500), breakdown.ProcessingFeeCents)

	standard := selectedShipment()
	standard.ServiceDisplayName = "UPS Worldwide Express"

	breakdown, err = svc.ComposeBreakdown(context.Background(), nil, standard, pricingdomain.UserFacts{})
	assert.NoError(t, err)
	assert.Equal(t, int64(1500), breakdown.ProcessingFeeCents)
}

func TestComposeBreakdown_AwaitingSelection(t *testing.T) {
	svc := newTestService(&insuranceStub{cost: 750, ok: true})

	shipment := selectedShipment()
	shipment.ServiceSelected = false

	breakdown, err := svc.ComposeBreakdown(context.Background(), nil, shipment, pricingdomain.UserFacts{})
	assert.NoError(t, err)
	assert.True(t, breakdown.AwaitingSelection)
	assert.Equal(t, int64(0), breakdown.TotalCents)
}

func TestComposeBreakdown_TotalSumsComponents(t *testing.T) {
	svc := newTestService(&insuranceStub{cost: 750, ok: true})

	dutyResult := &quotedomain.DutyResult{Success: true, Total: 600}

	breakdown, err := svc.ComposeBreakdown(context.Background(), dutyResult, selectedShipment(), pricingdomain.UserFacts{PriceMultiplier: 1.25})
	assert.NoError(t, err)

	want := breakdown.ShippingCents + breakdown.InsuranceCents + breakdown.DutyCents +
		breakdown.FlatTariffCents + breakdown.ProcessingFeeCents
	assert.Equal(t, want, breakdown.TotalCents)
	assert.NotNil(t, breakdown.Display)
	assert.Equal(t, "$6.00", breakdown.Display.Duty)
}

func TestIsEcoService(t *testing.T) {
	policy := newTestService(&insuranceStub{}).policy.Current()

	assert.True(t, IsEcoService("FedEx International Economy", policy))
	assert.True(t, IsEcoService("ECO saver", policy))
	assert.False(t, IsEcoService("UPS Worldwide Express", policy))
	assert.False(t, IsEcoService("", policy))
}
