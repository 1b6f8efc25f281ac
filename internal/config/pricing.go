package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingPolicy centralizes every business fallback number used by the
// pricing composer. Values are minor units (cents) unless named Percent.
type PricingPolicy struct {
	// Flat per-shipment DDP processing fee by service tier.
	EcoProcessingFeeCents      int64 `mapstructure:"ecoProcessingFeeCents"`
	StandardProcessingFeeCents int64 `mapstructure:"standardProcessingFeeCents"`

	// Flat tariff surcharge applied on top of provider duty for customs destinations.
	FlatTariffCents int64 `mapstructure:"flatTariffCents"`

	// Heuristic duty used when no authoritative duty result is available yet.
	HeuristicDutyPercent float64 `mapstructure:"heuristicDutyPercent"`

	// Insurance fallback when no range matches or the lookup is unreachable.
	InsurancePercent    float64 `mapstructure:"insurancePercent"`
	InsuranceFloorCents int64   `mapstructure:"insuranceFloorCents"`

	// Destinations whose inbound shipments require customs handling.
	CustomsDestinations []string `mapstructure:"customsDestinations"`

	// Case-insensitive substrings identifying economy-tier service names.
	EcoServiceMarkers []string `mapstructure:"ecoServiceMarkers"`
}

func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		EcoProcessingFeeCents:      500,
		StandardProcessingFeeCents: 1500,
		FlatTariffCents:            0,
		HeuristicDutyPercent:       0.06,
		InsurancePercent:           0.02,
		InsuranceFloorCents:        500,
		CustomsDestinations:        []string{"US"},
		EcoServiceMarkers:          []string{"eco", "economy"},
	}
}

// PricingPolicyHolder supports hot reload of the pricing policy file.
type PricingPolicyHolder struct {
	current atomic.Value // holds PricingPolicy
}

func NewPricingPolicyHolder() (*PricingPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/landedcost")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LANDEDCOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPricingPolicy()
		v.SetDefault("pricing", defaults)
	}

	var policy PricingPolicy
	if err := v.UnmarshalKey("pricing", &policy); err != nil {
		return nil, err
	}
	policy = policy.withDefaults()
	if err := validatePricingPolicy(policy); err != nil {
		return nil, err
	}

	holder := &PricingPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingPolicy
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		updated = updated.withDefaults()
		if err := validatePricingPolicy(updated); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
	})

	return holder, nil
}

func (h *PricingPolicyHolder) Current() PricingPolicy {
	if h == nil {
		return DefaultPricingPolicy()
	}
	if policy, ok := h.current.Load().(PricingPolicy); ok {
		return policy
	}
	return DefaultPricingPolicy()
}

func (p PricingPolicy) withDefaults() PricingPolicy {
	defaults := DefaultPricingPolicy()
	if p.EcoProcessingFeeCents <= 0 {
		p.EcoProcessingFeeCents = defaults.EcoProcessingFeeCents
	}
	if p.StandardProcessingFeeCents <= 0 {
		p.StandardProcessingFeeCents = defaults.StandardProcessingFeeCents
	}
	if p.HeuristicDutyPercent <= 0 {
		p.HeuristicDutyPercent = defaults.HeuristicDutyPercent
	}
	if p.InsurancePercent <= 0 {
		p.InsurancePercent = defaults.InsurancePercent
	}
	if p.InsuranceFloorCents <= 0 {
		p.InsuranceFloorCents = defaults.InsuranceFloorCents
	}
	if len(p.CustomsDestinations) == 0 {
		p.CustomsDestinations = defaults.CustomsDestinations
	}
	if len(p.EcoServiceMarkers) == 0 {
		p.EcoServiceMarkers = defaults.EcoServiceMarkers
	}
	return p
}

func validatePricingPolicy(p PricingPolicy) error {
	if p.HeuristicDutyPercent >= 1 {
		return errors.New("heuristicDutyPercent must be a fraction below 1")
	}
	if p.InsurancePercent >= 1 {
		return errors.New("insurancePercent must be a fraction below 1")
	}
	return nil
}
