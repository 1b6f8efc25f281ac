package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/navlun/landedcost/internal/cache"
	"github.com/navlun/landedcost/internal/clock"
	"github.com/navlun/landedcost/internal/config"
	"github.com/navlun/landedcost/internal/dutyjob"
	"github.com/navlun/landedcost/internal/insurance"
	"github.com/navlun/landedcost/internal/migration"
	"github.com/navlun/landedcost/internal/observability/metrics"
	"github.com/navlun/landedcost/internal/pricing"
	"github.com/navlun/landedcost/internal/processor"
	"github.com/navlun/landedcost/internal/quote"
	"github.com/navlun/landedcost/internal/server"
	"github.com/navlun/landedcost/pkg/db"
	"github.com/navlun/landedcost/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		cache.Module,
		clock.Module,
		metrics.Module,

		// Functional domains
		quote.Module,
		dutyjob.Module,
		insurance.Module,
		pricing.Module,
		processor.Module,

		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
