package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/navlun/landedcost/internal/clock"
	"github.com/navlun/landedcost/internal/dutyjob/domain"
	"github.com/navlun/landedcost/internal/dutyjob/statuscache"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Cache *statuscache.Cache `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	cache *statuscache.Cache
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("dutyjob.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		cache: p.Cache,
	}
}

func (s *Service) CreateJob(ctx context.Context, params domain.CreateJobParams) (*domain.DutyCalculationJob, error) {
	jobID := strings.TrimSpace(params.JobID)
	if jobID == "" {
		return nil, domain.ErrInvalidJobID
	}

	origin := strings.ToUpper(strings.TrimSpace(params.OriginCountry))
	destination := strings.ToUpper(strings.TrimSpace(params.DestinationCountry))
	if len(origin) != 2 || len(destination) != 2 {
		return nil, domain.ErrInvalidCountry
	}
	if params.CustomsValueCents <= 0 || params.ShippingCostCents < 0 {
		return nil, domain.ErrInvalidValue
	}
	if !params.Provider.Valid() {
		return nil, domain.ErrInvalidProvider
	}
	if len(params.Package.Items) == 0 {
		return nil, domain.ErrEmptyPackage
	}

	packageDetails, err := json.Marshal(params.Package)
	if err != nil {
		return nil, err
	}

	priority := 1
	if params.Priority != nil && *params.Priority > 0 {
		priority = *params.Priority
	}

	now := s.clock.Now()
	job := &domain.DutyCalculationJob{
		ID:                 s.genID.Generate(),
		JobID:              jobID,
		SessionID:          strings.TrimSpace(params.SessionID),
		OriginCountry:      origin,
		DestinationCountry: destination,
		CustomsValue:       params.CustomsValueCents,
		ShippingCost:       params.ShippingCostCents,
		Provider:           string(params.Provider),
		PackageDetails:     datatypes.JSON(packageDetails),
		Priority:           priority,
		Status:             domain.JobStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
		ExpiresAt:          now.Add(domain.DefaultExpiry),
	}

	if err := s.repo.Insert(ctx, s.db, job); err != nil {
		return nil, err
	}

	s.cache.Put(ctx, job)
	s.log.Info("job enqueued",
		zap.String("job_id", jobID),
		zap.String("origin", origin),
		zap.String("destination", destination),
		zap.String("provider", string(params.Provider)),
		zap.Int("priority", priority),
	)
	return job, nil
}

func (s *Service) GetJobStatus(ctx context.Context, jobID string) (*domain.DutyCalculationJob, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, domain.ErrInvalidJobID
	}

	if cached := s.cache.Get(ctx, jobID); cached != nil {
		return cached, nil
	}

	job, err := s.repo.FindByJobID(ctx, s.db, jobID)
	if err != nil {
		return nil, err
	}
	if job != nil {
		s.cache.Put(ctx, job)
	}
	return job, nil
}
