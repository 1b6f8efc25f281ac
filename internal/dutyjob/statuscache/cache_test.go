package statuscache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/navlun/landedcost/internal/dutyjob/domain"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCommands is an in-memory stand-in for the redis commands the cache
// issues.
type fakeCommands struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
	getErr error
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{values: map[string]string{}}
}

func (f *fakeCommands) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func sampleJob(jobID string, status domain.JobStatus) *domain.DutyCalculationJob {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &domain.DutyCalculationJob{
		ID:                 1,
		JobID:              jobID,
		OriginCountry:      "TR",
		DestinationCountry: "US",
		CustomsValue:       5000,
		ShippingCost:       1500,
		Provider:           "both",
		Priority:           1,
		Status:             status,
		CreatedAt:          now,
		UpdatedAt:          now,
		ExpiresAt:          now.Add(domain.DefaultExpiry),
	}
}

func TestPutThenGet(t *testing.T) {
	cache := New(newFakeCommands(), zap.NewNop())

	cache.Put(context.Background(), sampleJob("job-1", domain.JobStatusCompleted))

	got := cache.Get(context.Background(), "job-1")
	require.NotNil(t, got)
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, int64(5000), got.CustomsValue)
}

func TestGet_UnknownJobIsNil(t *testing.T) {
	cache := New(newFakeCommands(), zap.NewNop())

	assert.Nil(t, cache.Get(context.Background(), "missing"))
}

func TestGet_CorruptPayloadIsNil(t *testing.T) {
	backend := newFakeCommands()
	backend.values[keyPrefix+"job-1"] = "{not json"

	cache := New(backend, zap.NewNop())
	assert.Nil(t, cache.Get(context.Background(), "job-1"))
}

func TestDisabledCache_Noop(t *testing.T) {
	cache := New(nil, zap.NewNop())

	cache.Put(context.Background(), sampleJob("job-1", domain.JobStatusPending))
	assert.Nil(t, cache.Get(context.Background(), "job-1"))
}

func TestNilCache_Safe(t *testing.T) {
	var cache *Cache

	cache.Put(context.Background(), sampleJob("job-1", domain.JobStatusPending))
	assert.Nil(t, cache.Get(context.Background(), "job-1"))
}

func TestPut_WriteErrorIsSwallowed(t *testing.T) {
	backend := newFakeCommands()
	backend.setErr = errors.New("connection refused")

	cache := New(backend, zap.NewNop())
	cache.Put(context.Background(), sampleJob("job-1", domain.JobStatusPending))

	assert.Empty(t, backend.values)
}

func TestGet_ReadErrorIsNil(t *testing.T) {
	backend := newFakeCommands()
	cache := New(backend, zap.NewNop())
	cache.Put(context.Background(), sampleJob("job-1", domain.JobStatusPending))

	backend.getErr = errors.New("connection refused")
	assert.Nil(t, cache.Get(context.Background(), "job-1"))
}
