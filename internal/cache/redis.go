package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend implements Backend on a Redis connection. The same struct
// wraps either a client or a pipeline, so Pipelined can reuse every method.
type RedisBackend struct {
	c redis.Cmdable
}

// NewRedisBackend wraps an established go-redis client.
func NewRedisBackend(client redis.Cmdable) *RedisBackend {
	return &RedisBackend{c: client}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.c.Set(ctx, key, value, ttl).Err()
}

func (b *RedisBackend) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.c.Del(ctx, keys...).Err()
}

func (b *RedisBackend) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return b.c.SAdd(ctx, key, args...).Err()
}

func (b *RedisBackend) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return b.c.SRem(ctx, key, args...).Err()
}

func (b *RedisBackend) SMembers(ctx context.Context, key string) ([]string, error) {
	return b.c.SMembers(ctx, key).Result()
}

func (b *RedisBackend) Incr(ctx context.Context, key string) (int64, error) {
	return b.c.Incr(ctx, key).Result()
}

func (b *RedisBackend) Pipelined(ctx context.Context, fn func(Backend) error) error {
	_, err := b.c.Pipelined(ctx, func(p redis.Pipeliner) error {
		return fn(&RedisBackend{c: p})
	})
	return err
}
