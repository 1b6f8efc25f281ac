package dutyjob

import (
	"github.com/navlun/landedcost/internal/dutyjob/liveevents"
	"github.com/navlun/landedcost/internal/dutyjob/repository"
	"github.com/navlun/landedcost/internal/dutyjob/service"
	"github.com/navlun/landedcost/internal/dutyjob/statuscache"
	"go.uber.org/fx"
)

var Module = fx.Module("dutyjob",
	fx.Provide(repository.Provide),
	fx.Provide(statuscache.Provide),
	fx.Provide(service.New),
	fx.Provide(liveevents.NewHub),
)
