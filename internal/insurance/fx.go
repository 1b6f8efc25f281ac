package insurance

import (
	"github.com/navlun/landedcost/internal/insurance/repository"
	"github.com/navlun/landedcost/internal/insurance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("insurance",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
