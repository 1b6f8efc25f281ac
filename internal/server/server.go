package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/navlun/landedcost/internal/config"
	dutyjobdomain "github.com/navlun/landedcost/internal/dutyjob/domain"
	"github.com/navlun/landedcost/internal/dutyjob/liveevents"
	insurancedomain "github.com/navlun/landedcost/internal/insurance/domain"
	pricingdomain "github.com/navlun/landedcost/internal/pricing/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	return r
}

type registerGinParams struct {
	fx.In

	Registry *prometheus.Registry `optional:"true"`
}

func registerGin(p registerGinParams) *gin.Engine {
	return NewEngine(p.Registry)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger
	genID  *snowflake.Node

	jobSvc       dutyjobdomain.Service
	insuranceSvc insurancedomain.Service
	pricingSvc   pricingdomain.Service
	liveJobs     *liveevents.Hub
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	Log   *zap.Logger
	GenID *snowflake.Node

	JobSvc       dutyjobdomain.Service
	InsuranceSvc insurancedomain.Service
	PricingSvc   pricingdomain.Service
	LiveJobs     *liveevents.Hub `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http"),
		genID:        p.GenID,
		jobSvc:       p.JobSvc,
		insuranceSvc: p.InsuranceSvc,
		pricingSvc:   p.PricingSvc,
		liveJobs:     p.LiveJobs,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	duty := v1.Group("/duty")
	{
		duty.POST("/jobs", s.CreateDutyJob)
		duty.GET("/jobs/:job_id", s.GetDutyJob)
		duty.GET("/sessions/:session_id/events", s.StreamJobUpdates)
	}

	v1.POST("/pricing/breakdown", s.ComposeBreakdown)

	insurance := v1.Group("/insurance/ranges")
	{
		insurance.POST("", s.CreateInsuranceRange)
		insurance.GET("", s.ListInsuranceRanges)
		insurance.DELETE("/:id", s.DeactivateInsuranceRange)
	}
}
