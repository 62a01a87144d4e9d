package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "computor-backend/pkg/errors"
	"computor-backend/pkg/observability"
)

// DefaultUserViewTTL bounds how long a projection may be observed stale
// when no invalidation tag reaches it.
const DefaultUserViewTTL = 300 * time.Second

// Cache is the tag-indexed write-through cache. Reads that fail on the
// backend report a miss; writes that fail are dropped. Callers never see a
// cache-originated error except Serialization at set time.
type Cache struct {
	backend    Backend
	prefix     string
	defaultTTL time.Duration
	logger     *zap.Logger
	metrics    *observability.Collector
}

// Option configures a Cache.
type Option func(*Cache)

// WithDefaultTTL overrides the TTL used when callers pass zero.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.defaultTTL = ttl }
}

// WithMetrics attaches the Prometheus collector.
func WithMetrics(m *observability.Collector) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates a Cache over the given backend and key prefix.
func New(backend Backend, prefix string, logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		backend:    backend,
		prefix:     prefix,
		defaultTTL: DefaultUserViewTTL,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prefix returns the key namespace.
func (c *Cache) Prefix() string { return c.prefix }

// EntityKey builds the value key for an entity.
func (c *Cache) EntityKey(entityType, id string) string {
	return c.entityKey(entityType, id)
}

// ListKey builds the value key for a filtered list query.
func (c *Cache) ListKey(entityType string, params map[string]any) string {
	return c.listKey(entityType, HashParams(params))
}

// GetByKey reads the value under key into dst, returning true on a hit.
// Backend errors and undecodable payloads count as misses.
func (c *Cache) GetByKey(ctx context.Context, key string, dst any) bool {
	data, found, err := c.backend.Get(ctx, key)
	if err != nil {
		c.bypass("get", err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// Treat an undecodable payload as a miss; the writer will replace it.
		c.logger.Warn("cache payload undecodable, treating as miss",
			zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// SetByKey stores a value without tag maintenance. The only surfaced error
// is Serialization: a non-representable value is rejected at set time.
func (c *Cache) SetByKey(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := c.encode(value)
	if err != nil {
		return err
	}
	if err := c.backend.Set(ctx, key, data, c.ttlOrDefault(ttl)); err != nil {
		c.bypass("set", err)
	}
	return nil
}

// DeleteByKey removes the value under key. Tag index entries pointing at
// the key are left behind; readers treat a missing key as invalidated and
// InvalidateTags cleans the index up.
func (c *Cache) DeleteByKey(ctx context.Context, key string) {
	if err := c.backend.Del(ctx, key); err != nil {
		c.bypass("del", err)
	}
}

// SetWithTags stores a value and registers it under every tag. The value
// write, the tag-set inserts, and the key side-set write go out as one
// pipelined batch; partial success is tolerated by the self-healing index.
func (c *Cache) SetWithTags(ctx context.Context, key string, value any, tags []string, ttl time.Duration) error {
	data, err := c.encode(value)
	if err != nil {
		return err
	}

	err = c.backend.Pipelined(ctx, func(b Backend) error {
		if err := b.Set(ctx, key, data, c.ttlOrDefault(ttl)); err != nil {
			return err
		}
		for _, tag := range tags {
			if err := b.SAdd(ctx, c.tagKey(tag), key); err != nil {
				return err
			}
		}
		if len(tags) > 0 {
			if err := b.SAdd(ctx, c.keyTagsKey(key), tags...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.bypass("set_with_tags", err)
	}
	return nil
}

// InvalidateTags removes every value bearing any of the given tags and
// scrubs the bidirectional index. Idempotent; requires no global lock. A
// concurrent SetWithTags on the same tag races benignly: the new key is
// either swept with this pass or survives as a post-invalidation write.
func (c *Cache) InvalidateTags(ctx context.Context, tags ...string) {
	removed := 0
	for _, tag := range tags {
		keys, err := c.backend.SMembers(ctx, c.tagKey(tag))
		if err != nil {
			c.bypass("invalidate", err)
			continue
		}
		if c.metrics != nil {
			c.metrics.TagFanout.Observe(float64(len(keys)))
		}
		for _, key := range keys {
			// Remove the key from every tag set it belongs to, not just
			// the one being invalidated, so no dangling references remain.
			keyTags, err := c.backend.SMembers(ctx, c.keyTagsKey(key))
			if err != nil {
				c.bypass("invalidate", err)
				continue
			}
			for _, kt := range keyTags {
				if err := c.backend.SRem(ctx, c.tagKey(kt), key); err != nil {
					c.bypass("invalidate", err)
				}
			}
			if err := c.backend.Del(ctx, c.keyTagsKey(key), key); err != nil {
				c.bypass("invalidate", err)
				continue
			}
			removed++
		}
		if err := c.backend.Del(ctx, c.tagKey(tag)); err != nil {
			c.bypass("invalidate", err)
		}
		// Advance the generational counter too, so versioned keys composed
		// with this tag stop resolving to the swept generation.
		if _, err := c.backend.Incr(ctx, c.versionKey(tag)); err != nil {
			c.bypass("invalidate", err)
		}
	}
	if c.metrics != nil && removed > 0 {
		c.metrics.InvalidatedKeys.Add(float64(removed))
	}
}

// BumpTag advances the generational counter of a tag and returns the new
// version. Every versioned key composed with the tag changes afterwards.
func (c *Cache) BumpTag(ctx context.Context, tag string) int64 {
	v, err := c.backend.Incr(ctx, c.versionKey(tag))
	if err != nil {
		c.bypass("bump_tag", err)
		return 0
	}
	return v
}

// TagVersion reads the generational counter of a tag; absent counters are
// version zero.
func (c *Cache) TagVersion(ctx context.Context, tag string) int64 {
	data, found, err := c.backend.Get(ctx, c.versionKey(tag))
	if err != nil {
		c.bypass("tag_version", err)
		return 0
	}
	if !found {
		return 0
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// ComposeVersionedKey derives a self-invalidating key from a base and the
// current versions of the given tags. After BumpTag(t) no future
// composition with t yields the same key, so stale entries age out by TTL
// without an InvalidateTags sweep. Used where the tag-key fanout is too
// wide for set-based invalidation to be economical.
func (c *Cache) ComposeVersionedKey(ctx context.Context, base string, tags ...string) string {
	parts := make([]string, 0, len(tags)+1)
	parts = append(parts, base)
	for _, tag := range tags {
		parts = append(parts, fmt.Sprintf("%s@%d", tag, c.TagVersion(ctx, tag)))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return c.prefix + ":v:" + hex.EncodeToString(sum[:])[:16]
}

func (c *Cache) encode(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, apperrors.NewSerialization("value not cacheable", err)
	}
	return data, nil
}

func (c *Cache) ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return c.defaultTTL
	}
	return ttl
}

// bypass records a backend failure. Errors stop here: callers observe a
// miss or a dropped write, never the error itself.
func (c *Cache) bypass(op string, err error) {
	if c.metrics != nil {
		c.metrics.CacheBypass.Inc()
	}
	c.logger.Debug("cache backend error, bypassing", zap.String("op", op), zap.Error(err))
}

func (c *Cache) hit(kind string) {
	if c.metrics != nil {
		c.metrics.CacheHits.WithLabelValues(kind).Inc()
	}
}

func (c *Cache) miss(kind string) {
	if c.metrics != nil {
		c.metrics.CacheMisses.WithLabelValues(kind).Inc()
	}
}
