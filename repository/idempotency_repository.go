package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyPending marks a key whose request is still in flight.
const IdempotencyPending = "__pending__"

type IdempotencyRepository interface {
	// Reserve claims the key; false means another request already holds it.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Save(ctx context.Context, key, value string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type RedisIdempotencyRepository struct {
	client redis.Cmdable
	prefix string
}

func NewRedisIdempotencyRepository(client redis.Cmdable) *RedisIdempotencyRepository {
	return &RedisIdempotencyRepository{client: client, prefix: "idem:payments:"}
}

func (r *RedisIdempotencyRepository) key(k string) string {
	return r.prefix + k
}

func (r *RedisIdempotencyRepository) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, r.key(key), IdempotencyPending, ttl).Result()
}

func (r *RedisIdempotencyRepository) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisIdempotencyRepository) Save(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *RedisIdempotencyRepository) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
