package statuscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/navlun/landedcost/internal/dutyjob/domain"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyPrefix = "dutyjob:status:"

// snapshotTTL matches the job row lifetime; a snapshot outliving its row
// would serve phantom jobs.
const snapshotTTL = domain.DefaultExpiry

// Commands is the slice of the redis API the cache needs. *redis.Client
// satisfies it.
type Commands interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Cache mirrors job rows into redis so status pollers can be served without
// a DB read. Every operation is best effort: a redis outage degrades to
// DB-only, it never fails the caller.
type Cache struct {
	client Commands
	log    *zap.Logger
}

type Params struct {
	fx.In

	Log   *zap.Logger
	Redis *redis.Client `optional:"true"`
}

// Provide builds the cache from the optional shared redis client. A missing
// client yields a disabled cache rather than a missing dependency.
func Provide(p Params) *Cache {
	if p.Redis == nil {
		return New(nil, p.Log)
	}
	return New(p.Redis, p.Log)
}

func New(client Commands, log *zap.Logger) *Cache {
	return &Cache{
		client: client,
		log:    log.Named("dutyjob.statuscache"),
	}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Put stores the current job row snapshot under the job's public identifier.
func (c *Cache) Put(ctx context.Context, job *domain.DutyCalculationJob) {
	if !c.enabled() || job == nil || job.JobID == "" {
		return
	}

	payload, err := json.Marshal(job)
	if err != nil {
		c.log.Debug("snapshot encode failed", zap.String("job_id", job.JobID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, keyPrefix+job.JobID, payload, snapshotTTL).Err(); err != nil {
		c.log.Debug("snapshot write failed", zap.String("job_id", job.JobID), zap.Error(err))
	}
}

// Get returns the cached job row, or nil on miss, outage, or corrupt payload.
func (c *Cache) Get(ctx context.Context, jobID string) *domain.DutyCalculationJob {
	if !c.enabled() || jobID == "" {
		return nil
	}

	payload, err := c.client.Get(ctx, keyPrefix+jobID).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug("snapshot read failed", zap.String("job_id", jobID), zap.Error(err))
		}
		return nil
	}

	var job domain.DutyCalculationJob
	if err := json.Unmarshal(payload, &job); err != nil {
		c.log.Debug("snapshot decode failed", zap.String("job_id", jobID), zap.Error(err))
		return nil
	}
	if job.JobID != jobID {
		return nil
	}
	return &job
}
