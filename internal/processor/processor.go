package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/navlun/landedcost/internal/clock"
	jobdomain "github.com/navlun/landedcost/internal/dutyjob/domain"
	"github.com/navlun/landedcost/internal/dutyjob/liveevents"
	"github.com/navlun/landedcost/internal/dutyjob/statuscache"
	obsmetrics "github.com/navlun/landedcost/internal/observability/metrics"
	quotedomain "github.com/navlun/landedcost/internal/quote/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_processor_config")

// Notifier receives best-effort terminal updates for jobs that carry a
// session identifier. The liveevents hub is the default implementation.
type Notifier interface {
	Notify(sessionID string, update liveevents.JobUpdate)
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       jobdomain.Repository
	Calculator quotedomain.Calculator
	Notifier   *liveevents.Hub              `optional:"true"`
	Metrics    *obsmetrics.ProcessorMetrics `optional:"true"`
	Cache      *statuscache.Cache           `optional:"true"`
	Config     Config                       `optional:"true"`
}

// Processor owns the recurring batch tick and the cleanup sweep. One instance
// per process; the in-process tick guard does not coordinate multiple
// instances, so horizontal scaling needs a distributed lock or id partitioning.
type Processor struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	repo       jobdomain.Repository
	calculator quotedomain.Calculator
	notifier   Notifier
	metrics    *obsmetrics.ProcessorMetrics
	cache      *statuscache.Cache

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    sync.WaitGroup

	ticking atomic.Bool
}

func New(p Params) (*Processor, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Repo == nil || p.Calculator == nil {
		return nil, ErrInvalidConfig
	}
	proc := &Processor{
		db:         p.DB,
		log:        p.Log.Named("processor"),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		repo:       p.Repo,
		calculator: p.Calculator,
		metrics:    p.Metrics,
		cache:      p.Cache,
	}
	if p.Notifier != nil {
		proc.notifier = p.Notifier
	}
	return proc, nil
}

// Start begins the tick and sweep loops. Idempotent: calling it while already
// running is a logged no-op. The first tick fires immediately so jobs are not
// stuck for a full interval after startup.
func (p *Processor) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		p.log.Info("processor already running, start ignored")
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	stop := p.stop
	p.mu.Unlock()

	p.log.Info("processor started",
		zap.Duration("tick_interval", p.cfg.TickInterval),
		zap.Duration("sweep_interval", p.cfg.SweepInterval),
		zap.Int("batch_size", p.cfg.BatchSize),
	)

	p.done.Add(2)
	go p.runTicks(ctx, stop)
	go p.runSweeps(ctx, stop)
}

// Stop halts both loops and waits for them to exit. In-flight jobs finish.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	p.mu.Unlock()

	p.done.Wait()
	p.log.Info("processor stopped")
}

func (p *Processor) runTicks(ctx context.Context, stop chan struct{}) {
	defer p.done.Done()

	ticker := time.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Processor) runSweeps(ctx context.Context, stop chan struct{}) {
	defer p.done.Done()

	ticker := time.NewTicker(p.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Sweep(ctx); err != nil {
				p.log.Warn("cleanup sweep failed", zap.Error(err))
			}
		}
	}
}

// tick guards against overlap: if the previous tick is still running the new
// one is skipped, not queued.
func (p *Processor) tick(ctx context.Context) {
	if !p.ticking.CompareAndSwap(false, true) {
		p.metrics.IncTickSkipped()
		p.log.Debug("tick skipped, previous still running")
		return
	}
	defer p.ticking.Store(false)

	if err := p.ProcessBatch(ctx); err != nil {
		p.log.Warn("batch processing failed", zap.Error(err))
	}
}

// ProcessBatch claims up to BatchSize pending jobs (priority desc, FIFO within
// priority) and runs them concurrently. One job's failure never affects its
// siblings; per-job errors land on the job row, not here.
func (p *Processor) ProcessBatch(ctx context.Context) error {
	jobs, err := p.repo.FetchPending(ctx, p.db, p.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("fetch pending: %w", err)
	}
	p.metrics.ObserveBatchSize(len(jobs))
	if len(jobs) == 0 {
		return nil
	}

	runID := uuid.NewString()
	log := p.log.With(zap.String("run_id", runID))
	log.Info("processing batch", zap.Int("jobs", len(jobs)))

	group, groupCtx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		claimedAt := p.clock.Now()
		claimed, err := p.repo.MarkProcessing(ctx, p.db, job.ID, claimedAt)
		if err != nil {
			log.Warn("claim failed", zap.String("job_id", job.JobID), zap.Error(err))
			continue
		}
		if !claimed {
			// Another claimer won; the state machine guarantees only the
			// claimer writes the terminal state.
			continue
		}

		job := job
		job.Status = jobdomain.JobStatusProcessing
		job.StartedAt = &claimedAt
		job.UpdatedAt = claimedAt
		p.cache.Put(ctx, &job)
		group.Go(func() error {
			p.runJob(groupCtx, log, job)
			return nil
		})
	}
	return group.Wait()
}

// runJob executes one claimed job to its terminal state. Panics are contained
// so a misbehaving provider chain cannot take down the loop.
func (p *Processor) runJob(ctx context.Context, log *zap.Logger, job jobdomain.DutyCalculationJob) {
	started := p.clock.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", zap.String("job_id", job.JobID), zap.Any("panic", r))
			p.finishFailed(ctx, log, job, fmt.Sprintf("panic: %v", r), started)
		}
	}()

	req, err := buildQuoteRequest(job)
	if err != nil {
		p.finishFailed(ctx, log, job, fmt.Sprintf("invalid package details: %v", err), started)
		return
	}

	result := p.calculator.Calculate(ctx, quotedomain.ProviderMode(job.Provider), req)
	if !result.Success {
		p.finishFailed(ctx, log, job, result.Error, started)
		return
	}

	payload, err := json.Marshal(result.WithDisplay())
	if err != nil {
		p.finishFailed(ctx, log, job, fmt.Sprintf("result encoding: %v", err), started)
		return
	}

	now := p.clock.Now()
	elapsed := now.Sub(started)
	written, err := p.repo.Complete(ctx, p.db, job.ID, datatypes.JSON(payload), elapsed.Milliseconds(), now)
	if err != nil {
		log.Error("terminal write failed", zap.String("job_id", job.JobID), zap.Error(err))
		return
	}
	if !written {
		log.Warn("job no longer processing, completion dropped", zap.String("job_id", job.JobID))
		return
	}

	elapsedMS := elapsed.Milliseconds()
	job.Status = jobdomain.JobStatusCompleted
	job.ResultData = datatypes.JSON(payload)
	job.ProcessingTimeMS = &elapsedMS
	job.CompletedAt = &now
	job.UpdatedAt = now
	p.cache.Put(ctx, &job)

	p.metrics.IncProcessed(string(jobdomain.JobStatusCompleted))
	p.metrics.ObserveJobDuration(elapsed)
	log.Info("job completed",
		zap.String("job_id", job.JobID),
		zap.String("provider", result.Provider),
		zap.Int64("total", result.Total),
		zap.Duration("elapsed", elapsed),
	)

	p.notify(job, liveevents.JobUpdate{
		JobID:  job.JobID,
		Status: string(jobdomain.JobStatusCompleted),
		Result: json.RawMessage(payload),
	})
}

func (p *Processor) finishFailed(ctx context.Context, log *zap.Logger, job jobdomain.DutyCalculationJob, message string, started time.Time) {
	if message == "" {
		message = "duty calculation failed"
	}
	now := p.clock.Now()
	elapsed := now.Sub(started)

	written, err := p.repo.Fail(ctx, p.db, job.ID, message, elapsed.Milliseconds(), now)
	if err != nil {
		log.Error("terminal write failed", zap.String("job_id", job.JobID), zap.Error(err))
		return
	}
	if !written {
		log.Warn("job no longer processing, failure dropped", zap.String("job_id", job.JobID))
		return
	}

	elapsedMS := elapsed.Milliseconds()
	job.Status = jobdomain.JobStatusFailed
	job.ErrorMessage = &message
	job.ProcessingTimeMS = &elapsedMS
	job.CompletedAt = &now
	job.UpdatedAt = now
	p.cache.Put(ctx, &job)

	p.metrics.IncProcessed(string(jobdomain.JobStatusFailed))
	p.metrics.ObserveJobDuration(elapsed)
	log.Warn("job failed",
		zap.String("job_id", job.JobID),
		zap.String("origin", job.OriginCountry),
		zap.String("destination", job.DestinationCountry),
		zap.String("reason", message),
		zap.Duration("elapsed", elapsed),
	)

	p.notify(job, liveevents.JobUpdate{
		JobID:  job.JobID,
		Status: string(jobdomain.JobStatusFailed),
		Error:  message,
	})
}

// notify pushes the terminal update to the live subscriber hub. Best effort:
// a failure to notify must never fail the job.
func (p *Processor) notify(job jobdomain.DutyCalculationJob, update liveevents.JobUpdate) {
	if p.notifier == nil || job.SessionID == "" {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("notify panicked", zap.String("job_id", job.JobID), zap.Any("panic", r))
		}
	}()
	p.notifier.Notify(job.SessionID, update)
}

// Sweep deletes completed jobs past their expiry. Pending and processing rows
// are never deleted, so in-flight work survives the sweep.
func (p *Processor) Sweep(ctx context.Context) (int64, error) {
	deleted, err := p.repo.DeleteExpiredCompleted(ctx, p.db, p.clock.Now())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		p.metrics.AddSweepDeleted(deleted)
		p.log.Info("cleanup sweep removed expired jobs", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

func buildQuoteRequest(job jobdomain.DutyCalculationJob) (quotedomain.QuoteRequest, error) {
	var details jobdomain.PackageDetails
	if len(job.PackageDetails) > 0 {
		if err := json.Unmarshal(job.PackageDetails, &details); err != nil {
			return quotedomain.QuoteRequest{}, err
		}
	}

	items := make([]quotedomain.LineItem, 0, len(details.Items))
	for _, item := range details.Items {
		items = append(items, quotedomain.LineItem{
			Description: item.Description,
			Value:       decimal.NewFromFloat(item.Value),
			Quantity:    item.Quantity,
			Weight:      item.Weight,
			HSCode:      item.HSCode,
		})
	}

	return quotedomain.QuoteRequest{
		OriginCountry:      job.OriginCountry,
		DestinationCountry: job.DestinationCountry,
		CustomsValue:       quotedomain.FromMinorUnits(job.CustomsValue),
		ShippingCost:       quotedomain.FromMinorUnits(job.ShippingCost),
		Weight:             details.Weight,
		Dimensions:         details.Dimensions,
		Items:              items,
	}, nil
}
