package quote

import (
	"github.com/navlun/landedcost/internal/clock"
	"github.com/navlun/landedcost/internal/config"
	"github.com/navlun/landedcost/internal/quote/adapters/easyship"
	"github.com/navlun/landedcost/internal/quote/adapters/llmestimator"
	"github.com/navlun/landedcost/internal/quote/adapters/upslandedcost"
	quotedomain "github.com/navlun/landedcost/internal/quote/domain"
	"github.com/navlun/landedcost/internal/quote/orchestrator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("quote",
	fx.Provide(
		fx.Annotate(provideUPS, fx.ResultTags(`group:"quote.providers"`)),
		fx.Annotate(provideEasyship, fx.ResultTags(`group:"quote.providers"`)),
		fx.Annotate(provideLLM, fx.ResultTags(`group:"quote.providers"`)),
	),
	fx.Provide(provideOrchestrator),
	fx.Provide(func(o *orchestrator.Orchestrator) quotedomain.Calculator { return o }),
)

func provideOrchestrator(cfg config.Config, p orchestrator.Params) *orchestrator.Orchestrator {
	return orchestrator.New(p).WithOrder(cfg.ProviderOrder)
}

func provideUPS(cfg config.Config, log *zap.Logger, clk clock.Clock) quotedomain.Provider {
	return upslandedcost.New(cfg.UPS, log, clk)
}

func provideEasyship(cfg config.Config, log *zap.Logger) quotedomain.Provider {
	return easyship.New(cfg.Easyship, log)
}

func provideLLM(cfg config.Config, log *zap.Logger) quotedomain.Provider {
	return llmestimator.New(cfg.LLM, log)
}
