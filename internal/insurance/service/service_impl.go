package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/navlun/landedcost/internal/clock"
	insurancedomain "github.com/navlun/landedcost/internal/insurance/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serviceParams struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  insurancedomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  insurancedomain.Repository
}

func NewService(p serviceParams) insurancedomain.Service {
	return &Service{
		log:   p.Log.Named("insurance.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) LookupCost(ctx context.Context, valueCents int64) (int64, bool, error) {
	rng, err := s.repo.FindActiveForValue(ctx, valueCents)
	if err != nil {
		return 0, false, err
	}
	if rng == nil {
		return 0, false, nil
	}
	return rng.CostCents, true, nil
}

func (s *Service) CreateRange(ctx context.Context, rng *insurancedomain.InsuranceRange) error {
	if err := rng.Validate(); err != nil {
		return err
	}

	overlapping, err := s.repo.FindActiveOverlapping(ctx, rng.MinValueCents, rng.MaxValueCents, 0)
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return insurancedomain.ErrOverlappingRange
	}

	now := s.clock.Now()
	rng.ID = s.genID.Generate()
	rng.IsActive = true
	rng.CreatedAt = now
	rng.UpdatedAt = now

	if err := s.repo.Create(ctx, rng); err != nil {
		return err
	}

	s.log.Info("insurance range created",
		zap.Int64("min_value_cents", rng.MinValueCents),
		zap.Int64("max_value_cents", rng.MaxValueCents),
		zap.Int64("cost_cents", rng.CostCents),
	)
	return nil
}

func (s *Service) ListRanges(ctx context.Context, activeOnly bool) ([]insurancedomain.InsuranceRange, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *Service) DeactivateRange(ctx context.Context, id snowflake.ID) error {
	return s.repo.Deactivate(ctx, id)
}

var _ insurancedomain.Service = (*Service)(nil)
