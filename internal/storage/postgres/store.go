// Package postgres owns the relational store: the pgx connection pool,
// per-request transactions with audit session variables, and the embedded
// schema migrations.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	apperrors "computor-backend/pkg/errors"
)

// Querier is the subset of pgx used by repositories and views. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so query code is transaction
// agnostic.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ConnProvider hands out a Querier on demand. View repositories hold one
// and only invoke it on a cache miss, so a hit path costs zero DB traffic.
type ConnProvider func(ctx context.Context) (Querier, error)

// Store wraps the pgx pool.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	logger  *zap.Logger
}

// Config holds connection settings for the store.
type Config struct {
	URL          string
	MaxConns     int32
	QueryTimeout time.Duration
}

// Connect establishes the pool and verifies connectivity.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, apperrors.NewValidation("invalid database url: " + err.Error())
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("connect to database", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewStoreUnavailable("ping database", err)
	}

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Store{pool: pool, timeout: timeout, logger: logger}, nil
}

// Pool exposes the pool for non-transactional statements.
func (s *Store) Pool() Querier { return s.pool }

// Provider returns a ConnProvider backed by the pool.
func (s *Store) Provider() ConnProvider {
	return func(ctx context.Context) (Querier, error) {
		// The pool checks out connections per statement; nothing to
		// acquire eagerly. Returning it satisfies the lazy contract
		// because the provider itself is only called on a miss.
		return s.pool, nil
	}
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return apperrors.NewStoreUnavailable("ping database", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// WithTx runs fn inside one transaction. When auditUserID is set,
// `SET LOCAL app.user_id` scopes the acting user to the transaction for
// the store's audit triggers. Rollback occurs on any error.
func (s *Store) WithTx(ctx context.Context, auditUserID *uuid.UUID, fn func(tx pgx.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return MapError(err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if auditUserID != nil {
		// set_config with is_local=true is SET LOCAL, scoped to this tx.
		if _, err := tx.Exec(ctx, "SELECT set_config('app.user_id', $1, true)", auditUserID.String()); err != nil {
			return MapError(err)
		}
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return MapError(err)
	}
	return nil
}

// MapError converts driver errors into the application taxonomy.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("entity not found")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewStoreUnavailable("database timeout", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return apperrors.NewConflict("uniqueness violation", err)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return apperrors.NewConflict("concurrent modification", err)
		case "57014", "55P03": // query_canceled, lock_not_available
			return apperrors.NewStoreUnavailable("database busy", err)
		case "23503", "23514", "23502": // fk, check, not-null violations
			return apperrors.NewValidation(pgErr.Message)
		}
	}
	return apperrors.NewInternal("database error", err)
}
