package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/navlun/landedcost/internal/clock"
	obsmetrics "github.com/navlun/landedcost/internal/observability/metrics"
	quotedomain "github.com/navlun/landedcost/internal/quote/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// DefaultFallbackOrder tries the reasoning-model estimator first because it
// degrades gracefully on incomplete HS data, then the carrier-certified
// landed-cost API, then the flat tax/duty API. Configurable policy, not a
// hard requirement.
var DefaultFallbackOrder = []string{
	quotedomain.ProviderLLM,
	quotedomain.ProviderUPS,
	quotedomain.ProviderEasyship,
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Providers []quotedomain.Provider      `group:"quote.providers"`
	Metrics   *obsmetrics.ProviderMetrics `optional:"true"`
}

// Orchestrator runs the provider fallback chain. It has no side effects
// beyond outbound provider calls; persisting the result is the caller's job.
type Orchestrator struct {
	log       *zap.Logger
	clock     clock.Clock
	providers map[string]quotedomain.Provider
	order     []string
	metrics   *obsmetrics.ProviderMetrics
}

func New(p Params) *Orchestrator {
	byName := make(map[string]quotedomain.Provider, len(p.Providers))
	for _, provider := range p.Providers {
		byName[provider.Name()] = provider
	}
	return &Orchestrator{
		log:       p.Log.Named("orchestrator"),
		clock:     p.Clock,
		providers: byName,
		order:     DefaultFallbackOrder,
		metrics:   p.Metrics,
	}
}

// WithOrder overrides the fallback order for ModeBoth. Unknown names are
// skipped at call time, not here.
func (o *Orchestrator) WithOrder(order []string) *Orchestrator {
	if len(order) > 0 {
		o.order = order
	}
	return o
}

// Calculate tries providers in the order the mode dictates and returns the
// first successful result. When every attempt fails it reports failure; no
// default numeric duty is injected at this layer.
func (o *Orchestrator) Calculate(ctx context.Context, mode quotedomain.ProviderMode, req quotedomain.QuoteRequest) quotedomain.DutyResult {
	names := o.chainFor(mode)
	if len(names) == 0 {
		return quotedomain.Unsuccessful("", fmt.Sprintf("no providers for mode %q", mode))
	}

	failures := make([]string, 0, len(names))
	for _, name := range names {
		provider, ok := o.providers[name]
		if !ok {
			failures = append(failures, name+": not configured")
			continue
		}

		result := o.attempt(ctx, provider, req)
		if result.Success {
			return result
		}
		failures = append(failures, name+": "+result.Error)
	}

	return quotedomain.Unsuccessful("", "all providers failed: "+strings.Join(failures, "; "))
}

// attempt shields the chain from a misbehaving adapter: a panic inside one
// provider becomes an unsuccessful result so the next provider still runs.
func (o *Orchestrator) attempt(ctx context.Context, provider quotedomain.Provider, req quotedomain.QuoteRequest) (result quotedomain.DutyResult) {
	start := o.clock.Now()

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("provider panicked",
				zap.String("provider", provider.Name()),
				zap.Any("panic", r),
			)
			o.metrics.IncQuote(provider.Name(), obsmetrics.OutcomePanic)
			result = quotedomain.Unsuccessful(provider.Name(), fmt.Sprintf("panic: %v", r))
		}
	}()

	result, err := provider.Quote(ctx, req)
	elapsed := o.clock.Now().Sub(start)
	o.metrics.ObserveQuoteDuration(provider.Name(), elapsed)

	if err != nil {
		// Programming error inside the adapter; treated like any other
		// failed attempt so the chain continues.
		o.log.Error("provider errored",
			zap.String("provider", provider.Name()),
			zap.String("origin", req.OriginCountry),
			zap.String("destination", req.DestinationCountry),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		o.metrics.IncQuote(provider.Name(), obsmetrics.OutcomeFailure)
		return quotedomain.Unsuccessful(provider.Name(), err.Error())
	}

	if result.Success {
		o.metrics.IncQuote(provider.Name(), obsmetrics.OutcomeSuccess)
	} else {
		o.metrics.IncQuote(provider.Name(), obsmetrics.OutcomeFailure)
		o.log.Warn("provider unsuccessful",
			zap.String("provider", provider.Name()),
			zap.String("origin", req.OriginCountry),
			zap.String("destination", req.DestinationCountry),
			zap.Duration("elapsed", elapsed),
			zap.String("reason", result.Error),
		)
	}
	return result
}

func (o *Orchestrator) chainFor(mode quotedomain.ProviderMode) []string {
	switch mode {
	case quotedomain.ModeUPS:
		return []string{quotedomain.ProviderUPS}
	case quotedomain.ModeEasyship:
		return []string{quotedomain.ProviderEasyship}
	case quotedomain.ModeLLM:
		return []string{quotedomain.ProviderLLM}
	case quotedomain.ModeBoth:
		return o.order
	default:
		return nil
	}
}

var _ quotedomain.Calculator = (*Orchestrator)(nil)
