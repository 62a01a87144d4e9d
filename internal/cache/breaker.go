package cache

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	apperrors "computor-backend/pkg/errors"
)

// BreakerBackend wraps a Backend with a circuit breaker. While the breaker
// is open every call short-circuits without touching the backend, which is
// the platform's bypass mode: reads miss, writes no-op. Half-open probes
// restore normal operation once the backend recovers.
type BreakerBackend struct {
	inner Backend
	cb    *gobreaker.CircuitBreaker
}

// BreakerConfig tunes the bypass behavior.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// DefaultBreakerConfig trips after five consecutive failures and probes
// again after ten seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{ConsecutiveFailures: 5, OpenTimeout: 10 * time.Second}
}

// NewBreakerBackend wraps inner with bypass-mode protection.
func NewBreakerBackend(inner Backend, cfg BreakerConfig) *BreakerBackend {
	settings := gobreaker.Settings{
		Name:    "cache-backend",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
	}
	return &BreakerBackend{inner: inner, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerBackend) execute(fn func() (interface{}, error)) (interface{}, error) {
	res, err := b.cb.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, apperrors.NewCacheUnavailable("cache backend bypassed", err)
	}
	return res, err
}

func (b *BreakerBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	type result struct {
		data  []byte
		found bool
	}
	res, err := b.execute(func() (interface{}, error) {
		data, found, err := b.inner.Get(ctx, key)
		return result{data, found}, err
	})
	if err != nil {
		return nil, false, err
	}
	r := res.(result)
	return r.data, r.found, nil
}

func (b *BreakerBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.inner.Set(ctx, key, value, ttl)
	})
	return err
}

func (b *BreakerBackend) Del(ctx context.Context, keys ...string) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.inner.Del(ctx, keys...)
	})
	return err
}

func (b *BreakerBackend) SAdd(ctx context.Context, key string, members ...string) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.inner.SAdd(ctx, key, members...)
	})
	return err
}

func (b *BreakerBackend) SRem(ctx context.Context, key string, members ...string) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.inner.SRem(ctx, key, members...)
	})
	return err
}

func (b *BreakerBackend) SMembers(ctx context.Context, key string) ([]string, error) {
	res, err := b.execute(func() (interface{}, error) {
		return b.inner.SMembers(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.([]string), nil
}

func (b *BreakerBackend) Incr(ctx context.Context, key string) (int64, error) {
	res, err := b.execute(func() (interface{}, error) {
		return b.inner.Incr(ctx, key)
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

func (b *BreakerBackend) Pipelined(ctx context.Context, fn func(Backend) error) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.inner.Pipelined(ctx, fn)
	})
	return err
}
