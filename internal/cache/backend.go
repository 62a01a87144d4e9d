// Package cache implements the tag-indexed write-through cache shared by
// all API processes. Values are stored with a TTL and an arbitrary set of
// tags; invalidating a tag removes every value bearing it. The tag index is
// bidirectional (tag -> keys, key -> tags) and self-healing: a reader that
// follows the index to a missing key treats it as already invalidated.
//
// Every operation is best-effort. A backend failure downgrades reads to
// misses and writes to no-ops; correctness is preserved with the cache
// completely disabled.
package cache

import (
	"context"
	"time"
)

// Backend abstracts the key/value service behind the cache: plain values
// with TTL, set primitives for the tag index, and counters for tag
// versions. Implementations must guarantee per-key atomicity; no cross-key
// ordering is assumed.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	Incr(ctx context.Context, key string) (int64, error)

	// Pipelined batches the writes issued inside fn into one request where
	// the backend supports it. Reads inside fn are not supported; partial
	// success is acceptable because the tag index is self-healing.
	Pipelined(ctx context.Context, fn func(b Backend) error) error
}
