package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/navlun/landedcost/internal/clock"
	"github.com/navlun/landedcost/internal/dutyjob/domain"
	"github.com/navlun/landedcost/internal/dutyjob/repository"
	"github.com/navlun/landedcost/internal/dutyjob/statuscache"
	quotedomain "github.com/navlun/landedcost/internal/quote/domain"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.DutyCalculationJob{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, fake
}

func validParams() domain.CreateJobParams {
	return domain.CreateJobParams{
		JobID:              "job-1",
		SessionID:          "session-1",
		OriginCountry:      "tr",
		DestinationCountry: "us",
		CustomsValueCents:  5000,
		ShippingCostCents:  1500,
		Provider:           quotedomain.ModeBoth,
		Package: domain.PackageDetails{
			Weight: 1.0,
			Items:  []domain.PackageItem{{Description: "scarf", Value: 50, Quantity: 1}},
		},
	}
}

func TestCreateJob_Defaults(t *testing.T) {
	svc, fake := newTestService(t)

	job, err := svc.CreateJob(context.Background(), validParams())
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, 1, job.Priority)
	assert.Equal(t, "TR", job.OriginCountry)
	assert.Equal(t, "US", job.DestinationCountry)
	assert.Equal(t, fake.Now().Add(domain.DefaultExpiry), job.ExpiresAt)
	assert.NotZero(t, job.ID)
}

func TestCreateJob_ExplicitPriority(t *testing.T) {
	svc, _ := newTestService(t)

	priority := 3
	params := validParams()
	params.Priority = &priority

	job, err := svc.CreateJob(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 3, job.Priority)
}

func TestCreateJob_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*domain.CreateJobParams)
		wantErr error
	}{
		{"empty job id", func(p *domain.CreateJobParams) { p.JobID = "  " }, domain.ErrInvalidJobID},
		{"bad origin", func(p *domain.CreateJobParams) { p.OriginCountry = "TUR" }, domain.ErrInvalidCountry},
		{"bad destination", func(p *domain.CreateJobParams) { p.DestinationCountry = "" }, domain.ErrInvalidCountry},
		{"zero value", func(p *domain.CreateJobParams) { p.CustomsValueCents = 0 }, domain.ErrInvalidValue},
		{"negative shipping", func(p *domain.CreateJobParams) { p.ShippingCostCents = -1 }, domain.ErrInvalidValue},
		{"bad provider", func(p *domain.CreateJobParams) { p.Provider = "fedex" }, domain.ErrInvalidProvider},
		{"no items", func(p *domain.CreateJobParams) { p.Package.Items = nil }, domain.ErrEmptyPackage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validParams()
			tc.mutate(&params)
			_, err := svc.CreateJob(ctx, params)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateJob_DuplicateRejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateJob(context.Background(), validParams())
	require.NoError(t, err)

	_, err = svc.CreateJob(context.Background(), validParams())
	assert.ErrorIs(t, err, domain.ErrDuplicateJobID)
}

func TestGetJobStatus(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.CreateJob(context.Background(), validParams())
	require.NoError(t, err)

	job, err := svc.GetJobStatus(context.Background(), "job-1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, created.ID, job.ID)

	unknown, err := svc.GetJobStatus(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, unknown)

	_, err = svc.GetJobStatus(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidJobID)
}

// redisStub is an in-memory stand-in for the commands the status cache
// issues.
type redisStub struct {
	mu     sync.Mutex
	values map[string]string
}

func newRedisStub() *redisStub {
	return &redisStub{values: map[string]string{}}
}

func (r *redisStub) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (r *redisStub) Get(ctx context.Context, key string) *redis.StringCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	value, ok := r.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func newTestServiceWithCache(t *testing.T) (domain.Service, *statuscache.Cache, *redisStub) {
	t.Helper()

	svc, _ := newTestService(t)
	backend := newRedisStub()
	cache := statuscache.New(backend, zap.NewNop())
	svc.(*Service).cache = cache
	return svc, cache, backend
}

func TestCreateJob_WritesCacheSnapshot(t *testing.T) {
	svc, cache, _ := newTestServiceWithCache(t)

	_, err := svc.CreateJob(context.Background(), validParams())
	require.NoError(t, err)

	snapshot := cache.Get(context.Background(), "job-1")
	require.NotNil(t, snapshot)
	assert.Equal(t, domain.JobStatusPending, snapshot.Status)
}

func TestGetJobStatus_PrefersCachedSnapshot(t *testing.T) {
	svc, cache, _ := newTestServiceWithCache(t)

	created, err := svc.CreateJob(context.Background(), validParams())
	require.NoError(t, err)

	// Simulate the processor refreshing the snapshot after a terminal write.
	refreshed := *created
	refreshed.Status = domain.JobStatusCompleted
	cache.Put(context.Background(), &refreshed)

	job, err := svc.GetJobStatus(context.Background(), "job-1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
}

func TestGetJobStatus_FallsBackToDBAndBackfills(t *testing.T) {
	svc, cache, backend := newTestServiceWithCache(t)

	created, err := svc.CreateJob(context.Background(), validParams())
	require.NoError(t, err)

	// Drop the snapshot so the next poll has to hit the DB.
	backend.mu.Lock()
	backend.values = map[string]string{}
	backend.mu.Unlock()

	job, err := svc.GetJobStatus(context.Background(), "job-1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, created.ID, job.ID)

	snapshot := cache.Get(context.Background(), "job-1")
	require.NotNil(t, snapshot)
	assert.Equal(t, domain.JobStatusPending, snapshot.Status)
}
