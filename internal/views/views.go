// Package views derives per-user aggregated projections from live
// database state and caches them under user-scoped keys. A cache hit
// never touches the database; a miss acquires a connection lazily,
// composes the query, and stores the DTO with tags derived from the query
// parameters and the returned row identities.
package views

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"computor-backend/internal/cache"
	"computor-backend/internal/storage/postgres"
	"computor-backend/pkg/observability"
)

// TTLs bound the stale window of each projection class.
type TTLs struct {
	Student  time.Duration
	Tutor    time.Duration
	Lecturer time.Duration
	Grading  time.Duration
}

// DefaultTTLs returns the stock projection TTLs. Tutor runs fresher
// because grading turnaround is latency sensitive; grading dashboards run
// long because every grade write invalidates them explicitly.
func DefaultTTLs() TTLs {
	return TTLs{
		Student:  300 * time.Second,
		Tutor:    180 * time.Second,
		Lecturer: 300 * time.Second,
		Grading:  1800 * time.Second,
	}
}

type base struct {
	cache   *cache.Cache
	conn    postgres.ConnProvider
	metrics *observability.Collector
	logger  *zap.Logger
	flight  *singleflight.Group
}

func newBase(c *cache.Cache, conn postgres.ConnProvider, metrics *observability.Collector, logger *zap.Logger) base {
	return base{
		cache:   c,
		conn:    conn,
		metrics: metrics,
		logger:  logger,
		flight:  &singleflight.Group{},
	}
}

func (b *base) count(view, source string) {
	if b.metrics != nil {
		b.metrics.ViewQueries.WithLabelValues(view, source).Inc()
	}
}

func (b *base) observe(view string, start time.Time) {
	if b.metrics != nil {
		b.metrics.ViewDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
	}
}

// load is the canonical read flow of a user-scoped view method: cache
// lookup, singleflight-deduplicated recompute on miss, tagged store.
// compute receives the lazily acquired connection and returns the DTO
// together with the tag options; load fills in the view id.
func load[T any](
	ctx context.Context,
	b *base,
	view string,
	userID uuid.UUID,
	params map[string]any,
	compute func(ctx context.Context, q postgres.Querier) (T, cache.UserViewOptions, error),
) (T, error) {
	var viewID string
	if len(params) > 0 {
		viewID = cache.HashParams(params)
	}

	var cached T
	if b.cache.GetUserView(ctx, userID, view, viewID, &cached) {
		b.count(view, "cache")
		return cached, nil
	}

	key := userID.String() + ":" + view + ":" + viewID
	v, err, _ := b.flight.Do(key, func() (any, error) {
		start := time.Now()
		q, err := b.conn(ctx)
		if err != nil {
			return nil, err
		}
		dto, opts, err := compute(ctx, q)
		if err != nil {
			return nil, err
		}
		opts.ViewID = viewID
		_ = b.cache.SetUserView(ctx, userID, view, dto, opts)
		b.count(view, "store")
		b.observe(view, start)
		return dto, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

const gradingGrantTTL = 5 * time.Minute

// ensureGradingRole authorizes the reader before any per-course shared
// value is served; the shared entries carry no reader identity, so the
// check cannot be left to the recompute path. Grants are cached per
// reader and course to keep repeat reads off the database; membership
// writes sweep them through the user_id and course_id tags.
func (b *base) ensureGradingRole(ctx context.Context, courseID, readerUserID uuid.UUID) error {
	key := b.cache.EntityKey("grading_grant", courseID.String()+":"+readerUserID.String())

	var granted bool
	if b.cache.GetByKey(ctx, key, &granted) && granted {
		return nil
	}

	q, err := b.conn(ctx)
	if err != nil {
		return err
	}
	if err := requireGradingRole(ctx, q, courseID, readerUserID); err != nil {
		return err
	}
	_ = b.cache.SetWithTags(ctx, key, true, []string{
		"course_id:" + courseID.String(),
		"user_id:" + readerUserID.String(),
	}, gradingGrantTTL)
	return nil
}

// relatedIDs extracts the id-valued query parameters that pin
// invalidation of the stored projection.
func relatedIDs(params map[string]any) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		if len(k) > 3 && k[len(k)-3:] == "_id" {
			if id, ok := v.(uuid.UUID); ok {
				out[k] = id.String()
			}
		}
	}
	return out
}
