package processor

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("processor",
	fx.Provide(New),
	fx.Invoke(RunProcessor),
)

func RunProcessor(lc fx.Lifecycle, proc *Processor) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			proc.Start(context.Background())
			return nil
		},
		OnStop: func(context.Context) error {
			proc.Stop()
			return nil
		},
	})
}
