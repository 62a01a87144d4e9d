package cache

import (
	"context"
	"time"
)

// NoOpBackend is a Backend that stores nothing. Wiring it is equivalent to
// running with the cache disabled: every read misses, every write succeeds.
type NoOpBackend struct{}

// NewNoOpBackend creates a new no-op backend
func NewNoOpBackend() *NoOpBackend {
	return &NoOpBackend{}
}

func (b *NoOpBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (b *NoOpBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (b *NoOpBackend) Del(ctx context.Context, keys ...string) error { return nil }

func (b *NoOpBackend) SAdd(ctx context.Context, key string, members ...string) error { return nil }

func (b *NoOpBackend) SRem(ctx context.Context, key string, members ...string) error { return nil }

func (b *NoOpBackend) SMembers(ctx context.Context, key string) ([]string, error) {
	return nil, nil
}

func (b *NoOpBackend) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }

func (b *NoOpBackend) Pipelined(ctx context.Context, fn func(Backend) error) error {
	return fn(b)
}
