package service

import (
	"context"
	"strings"

	"github.com/navlun/landedcost/internal/config"
	insurancedomain "github.com/navlun/landedcost/internal/insurance/domain"
	pricingdomain "github.com/navlun/landedcost/internal/pricing/domain"
	quotedomain "github.com/navlun/landedcost/internal/quote/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serviceParams struct {
	fx.In

	Log       *zap.Logger
	Policy    *config.PricingPolicyHolder `optional:"true"`
	Insurance insurancedomain.Service     `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	policy    *config.PricingPolicyHolder
	insurance insurancedomain.Service
}

func NewService(p serviceParams) pricingdomain.Service {
	return &Service{
		log:       p.Log.Named("pricing.service"),
		policy:    p.Policy,
		insurance: p.Insurance,
	}
}

func (s *Service) ComposeBreakdown(ctx context.Context, dutyResult *quotedomain.DutyResult, shipment pricingdomain.ShipmentFacts, user pricingdomain.UserFacts) (pricingdomain.Breakdown, error) {
	if !shipment.ServiceSelected {
		return pricingdomain.Breakdown{
			AwaitingSelection: true,
			DutySource:        pricingdomain.DutySourceNone,
		}, nil
	}

	policy := s.policy.Current()

	breakdown := pricingdomain.Breakdown{
		ShippingCents: applyMultiplier(shipment.BaseShippingCents, user.PriceMultiplier),
		DutySource:    pricingdomain.DutySourceNone,
	}

	breakdown.InsuranceCents, breakdown.InsuranceSource = s.insuranceCost(ctx, shipment.DeclaredValueCents, policy)

	if requiresCustoms(shipment.DestinationCountry, policy) {
		if dutyResult != nil && dutyResult.Success {
			breakdown.DutyCents = dutyResult.Total
			breakdown.DutySource = pricingdomain.DutySourceProvider
		} else {
			breakdown.DutyCents = percentOf(shipment.DeclaredValueCents, policy.HeuristicDutyPercent)
			breakdown.DutySource = pricingdomain.DutySourceHeuristic
		}
		breakdown.FlatTariffCents = policy.FlatTariffCents
	}

	if IsEcoService(shipment.ServiceDisplayName, policy) {
		breakdown.ProcessingFeeCents = policy.EcoProcessingFeeCents
	} else {
		breakdown.ProcessingFeeCents = policy.StandardProcessingFeeCents
	}

	breakdown.TotalCents = breakdown.ShippingCents +
		breakdown.InsuranceCents +
		breakdown.DutyCents +
		breakdown.FlatTariffCents +
		breakdown.ProcessingFeeCents

	return breakdown.WithDisplay(), nil
}

// insuranceCost consults the range table first; any lookup miss or error
// falls back to max(value x percent, floor). The fallback is a business
// safety net, not a provider number.
func (s *Service) insuranceCost(ctx context.Context, declaredValueCents int64, policy config.PricingPolicy) (int64, pricingdomain.InsuranceSource) {
	if s.insurance != nil {
		cost, ok, err := s.insurance.LookupCost(ctx, declaredValueCents)
		if err != nil {
			s.log.Warn("insurance range lookup failed, using fallback", zap.Error(err))
		} else if ok {
			return cost, pricingdomain.InsuranceSourceRange
		}
	}

	cost := percentOf(declaredValueCents, policy.InsurancePercent)
	if cost < policy.InsuranceFloorCents {
		cost = policy.InsuranceFloorCents
	}
	return cost, pricingdomain.InsuranceSourceFallback
}

// IsEcoService classifies a courier service name as economy tier by
// case-insensitive substring match on the configured markers.
func IsEcoService(displayName string, policy config.PricingPolicy) bool {
	name := strings.ToLower(displayName)
	for _, marker := range policy.EcoServiceMarkers {
		if marker != "" && strings.Contains(name, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

func requiresCustoms(destination string, policy config.PricingPolicy) bool {
	for _, country := range policy.CustomsDestinations {
		if strings.EqualFold(destination, country) {
			return true
		}
	}
	return false
}

func applyMultiplier(baseCents int64, multiplier float64) int64 {
	if multiplier <= 0 {
		multiplier = 1
	}
	return decimal.NewFromInt(baseCents).
		Mul(decimal.NewFromFloat(multiplier)).
		Round(0).
		IntPart()
}

func percentOf(valueCents int64, fraction float64) int64 {
	return decimal.NewFromInt(valueCents).
		Mul(decimal.NewFromFloat(fraction)).
		Round(0).
		IntPart()
}

var _ pricingdomain.Service = (*Service)(nil)
