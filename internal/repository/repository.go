// Package repository provides the cached CRUD facade over the relational
// store. Every entity mutation flows through a Repository so the tag set
// it invalidates is a superset of every projection that could have
// included the mutated row. Direct SQL mutation bypassing a repository
// breaks that contract.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"computor-backend/internal/cache"
	"computor-backend/internal/storage/postgres"
)

// EntityConfig describes the caching capabilities of one entity kind:
// its stable type name, TTL, and the tag sets attached to cached reads.
//
// EntityTags must return a superset of every tag under which any cached
// value referencing the entity could have been stored. ListTags is the
// analogue for filtered list queries.
type EntityConfig[E any] interface {
	EntityType() string
	TTL() time.Duration
	EntityTags(e *E) []string
	ListTags(filters map[string]any) []string
}

// EntityStore is the SQL access for one entity kind. Implementations scan
// rows into domain structs; relationships are not loaded.
type EntityStore[E any] interface {
	SelectByID(ctx context.Context, q postgres.Querier, id uuid.UUID) (*E, error)
	SelectBy(ctx context.Context, q postgres.Querier, filters map[string]any) ([]*E, error)
	Insert(ctx context.Context, q postgres.Querier, e *E) error
	Update(ctx context.Context, q postgres.Querier, e *E) error
	DeleteRow(ctx context.Context, q postgres.Querier, id uuid.UUID) error
	ID(e *E) uuid.UUID
}

// Cascader widens the invalidation set of a write with cross-entity tags.
// It runs inside the write transaction so the resolution (e.g. artifact ->
// group -> members) sees the committed-to-be state. A resolution failure
// aborts the write: committing with a narrowed tag set would leave
// projections stale until their TTL.
type Cascader[E any] interface {
	CascadeTags(ctx context.Context, q postgres.Querier, e *E) ([]string, error)
}

// CascadeFunc adapts a function to the Cascader interface.
type CascadeFunc[E any] func(ctx context.Context, q postgres.Querier, e *E) ([]string, error)

func (f CascadeFunc[E]) CascadeTags(ctx context.Context, q postgres.Querier, e *E) ([]string, error) {
	return f(ctx, q, e)
}

// Store is the transactional surface the repository needs from the
// relational store.
type Store interface {
	Pool() postgres.Querier
	WithTx(ctx context.Context, auditUserID *uuid.UUID, fn func(tx pgx.Tx) error) error
}

// Repository is the generic cached CRUD facade. Reads go cache first;
// writes go store first, then invalidate tags and refresh the cache.
type Repository[E any] struct {
	cfg     EntityConfig[E]
	store   EntityStore[E]
	db      Store
	cache   *cache.Cache
	cascade Cascader[E]
	logger  *zap.Logger
}

// New assembles a Repository. cascade may be nil.
func New[E any](
	cfg EntityConfig[E],
	store EntityStore[E],
	db Store,
	c *cache.Cache,
	cascade Cascader[E],
	logger *zap.Logger,
) *Repository[E] {
	return &Repository[E]{
		cfg:     cfg,
		store:   store,
		db:      db,
		cache:   c,
		cascade: cascade,
		logger:  logger,
	}
}

// Config exposes the entity capability record.
func (r *Repository[E]) Config() EntityConfig[E] { return r.cfg }

// GetByID reads one entity, cache first.
func (r *Repository[E]) GetByID(ctx context.Context, id uuid.UUID) (*E, error) {
	key := r.cache.EntityKey(r.cfg.EntityType(), id.String())

	var cached E
	if r.cache.GetByKey(ctx, key, &cached) {
		return &cached, nil
	}

	e, err := r.store.SelectByID(ctx, r.db.Pool(), id)
	if err != nil {
		return nil, err
	}
	_ = r.cache.SetWithTags(ctx, key, e, r.cfg.EntityTags(e), r.cfg.TTL())
	return e, nil
}

// FindBy reads a filtered list, cached under a hash of the filters.
func (r *Repository[E]) FindBy(ctx context.Context, filters map[string]any) ([]*E, error) {
	key := r.cache.ListKey(r.cfg.EntityType(), filters)

	var cached []*E
	if r.cache.GetByKey(ctx, key, &cached) {
		return cached, nil
	}

	list, err := r.store.SelectBy(ctx, r.db.Pool(), filters)
	if err != nil {
		return nil, err
	}
	_ = r.cache.SetWithTags(ctx, key, list, r.cfg.ListTags(filters), r.cfg.TTL())
	return list, nil
}

// Create inserts the entity, refreshes it from the store, invalidates its
// tag set so list caches covering it are purged, and caches the fresh row.
// Invalidation runs first so the sweep cannot remove the entry it just
// warmed.
func (r *Repository[E]) Create(ctx context.Context, actor *uuid.UUID, e *E) (*E, error) {
	var created *E
	var tags []string

	err := r.db.WithTx(ctx, actor, func(tx pgx.Tx) error {
		if err := r.store.Insert(ctx, tx, e); err != nil {
			return err
		}
		fresh, err := r.store.SelectByID(ctx, tx, r.store.ID(e))
		if err != nil {
			return err
		}
		created = fresh
		tags, err = r.tagsFor(ctx, tx, fresh)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.cache.InvalidateTags(ctx, tags...)
	key := r.cache.EntityKey(r.cfg.EntityType(), r.store.ID(created).String())
	_ = r.cache.SetWithTags(ctx, key, created, r.cfg.EntityTags(created), r.cfg.TTL())
	return created, nil
}

// Update applies mutate to the current row and writes it back. The
// invalidation set is the union of the tags of the old and new states, so
// caches keyed by any earlier attribute value are covered.
func (r *Repository[E]) Update(ctx context.Context, actor *uuid.UUID, id uuid.UUID, mutate func(*E) error) (*E, error) {
	var updated *E
	var tags []string

	err := r.db.WithTx(ctx, actor, func(tx pgx.Tx) error {
		old, err := r.store.SelectByID(ctx, tx, id)
		if err != nil {
			return err
		}
		oldTags, err := r.tagsFor(ctx, tx, old)
		if err != nil {
			return err
		}

		if err := mutate(old); err != nil {
			return err
		}
		if err := r.store.Update(ctx, tx, old); err != nil {
			return err
		}
		fresh, err := r.store.SelectByID(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = fresh
		freshTags, err := r.tagsFor(ctx, tx, fresh)
		if err != nil {
			return err
		}
		tags = unionTags(oldTags, freshTags)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.cache.InvalidateTags(ctx, tags...)
	key := r.cache.EntityKey(r.cfg.EntityType(), id.String())
	_ = r.cache.SetWithTags(ctx, key, updated, r.cfg.EntityTags(updated), r.cfg.TTL())
	return updated, nil
}

// Delete removes the entity row, drops its cache entry, and invalidates
// its tag set.
func (r *Repository[E]) Delete(ctx context.Context, actor *uuid.UUID, e *E) error {
	id := r.store.ID(e)
	var tags []string

	err := r.db.WithTx(ctx, actor, func(tx pgx.Tx) error {
		var tagErr error
		if tags, tagErr = r.tagsFor(ctx, tx, e); tagErr != nil {
			return tagErr
		}
		return r.store.DeleteRow(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	r.cache.DeleteByKey(ctx, r.cache.EntityKey(r.cfg.EntityType(), id.String()))
	r.cache.InvalidateTags(ctx, tags...)
	return nil
}

func (r *Repository[E]) tagsFor(ctx context.Context, q postgres.Querier, e *E) ([]string, error) {
	tags := r.cfg.EntityTags(e)
	if r.cascade != nil {
		cascaded, err := r.cascade.CascadeTags(ctx, q, e)
		if err != nil {
			return nil, err
		}
		tags = unionTags(tags, cascaded)
	}
	return tags, nil
}

func unionTags(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, t := range a {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, t := range b {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
