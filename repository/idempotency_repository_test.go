package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements the four commands the idempotency store issues.
type fakeRedis struct {
	redis.Cmdable
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key], f.ttls[key] = value.(string), ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key], f.ttls[key] = value.(string), ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisIdempotencyRepository_Lifecycle(t *testing.T) {
	rdb := newFakeRedis()
	repo := NewRedisIdempotencyRepository(rdb)
	ctx := context.Background()

	ok, err := repo.Reserve(ctx, "a@b.c:k1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, IdempotencyPending, rdb.data["idem:payments:a@b.c:k1"])
	assert.Equal(t, time.Hour, rdb.ttls["idem:payments:a@b.c:k1"])

	ok, err = repo.Reserve(ctx, "a@b.c:k1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Save(ctx, "a@b.c:k1", `{"insertResult":{"insertedId":"p1"}}`, time.Hour))
	val, found, err := repo.Get(ctx, "a@b.c:k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, val, "p1")

	require.NoError(t, repo.Release(ctx, "a@b.c:k1"))
	_, found, err = repo.Get(ctx, "a@b.c:k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisIdempotencyRepository_ReserveError(t *testing.T) {
	rdb := newFakeRedis()
	rdb.err = errors.New("connection refused")

	_, err := NewRedisIdempotencyRepository(rdb).Reserve(context.Background(), "k", time.Minute)
	assert.Error(t, err)
}
