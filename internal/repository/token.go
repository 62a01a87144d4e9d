package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"computor-backend/internal/cache"
	"computor-backend/internal/domain"
	"computor-backend/internal/storage/postgres"
)

const apiTokenTTL = 15 * time.Minute

type apiTokenConfig struct{}

func (apiTokenConfig) EntityType() string { return "api_token" }
func (apiTokenConfig) TTL() time.Duration { return apiTokenTTL }

func (apiTokenConfig) EntityTags(t *domain.ApiToken) []string {
	return []string{
		"api_token",
		entityTag("api_token", t.ID),
		attrTag("user_id", t.UserID),
	}
}

func (apiTokenConfig) ListTags(filters map[string]any) []string {
	return listTags("api_token", filters)
}

type apiTokenStore struct{}

var apiTokenFilterColumns = map[string]string{
	"user_id":      "user_id",
	"token_prefix": "token_prefix",
}

func (apiTokenStore) ID(t *domain.ApiToken) uuid.UUID { return t.ID }

func (apiTokenStore) SelectByID(ctx context.Context, q postgres.Querier, id uuid.UUID) (*domain.ApiToken, error) {
	row := q.QueryRow(ctx, `
		SELECT id, user_id, token_hash, token_prefix, description,
		       expires_at, last_used_at, revoked_at, created_at
		FROM api_token WHERE id = $1`, id)
	return scanApiToken(row)
}

func (apiTokenStore) SelectBy(ctx context.Context, q postgres.Querier, filters map[string]any) ([]*domain.ApiToken, error) {
	where, args, err := buildWhere(filters, apiTokenFilterColumns)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, user_id, token_hash, token_prefix, description,
		       expires_at, last_used_at, revoked_at, created_at
		FROM api_token`+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var out []*domain.ApiToken
	for rows.Next() {
		t, err := scanApiToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, postgres.MapError(rows.Err())
}

func (apiTokenStore) Insert(ctx context.Context, q postgres.Querier, t *domain.ApiToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO api_token (id, user_id, token_hash, token_prefix, description, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.UserID, t.TokenHash, t.TokenPrefix, t.Description, t.ExpiresAt)
	return postgres.MapError(err)
}

// Update touches usage and revocation markers; the credential itself
// never changes.
func (apiTokenStore) Update(ctx context.Context, q postgres.Querier, t *domain.ApiToken) error {
	_, err := q.Exec(ctx, `
		UPDATE api_token SET description = $2, last_used_at = $3, revoked_at = $4
		WHERE id = $1`, t.ID, t.Description, t.LastUsedAt, t.RevokedAt)
	return postgres.MapError(err)
}

func (apiTokenStore) DeleteRow(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `DELETE FROM api_token WHERE id = $1`, id)
	return postgres.MapError(err)
}

func scanApiToken(row interface{ Scan(...any) error }) (*domain.ApiToken, error) {
	var t domain.ApiToken
	if err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.TokenPrefix, &t.Description,
		&t.ExpiresAt, &t.LastUsedAt, &t.RevokedAt, &t.CreatedAt); err != nil {
		return nil, postgres.MapError(err)
	}
	return &t, nil
}

// ApiTokenRepository adds credential lookup and revocation on top of the
// generic repository.
type ApiTokenRepository struct {
	*Repository[domain.ApiToken]
	db *postgres.Store
}

// NewApiTokenRepository builds the cached API-token repository.
func NewApiTokenRepository(db *postgres.Store, c *cache.Cache, logger *zap.Logger) *ApiTokenRepository {
	return &ApiTokenRepository{
		Repository: New[domain.ApiToken](apiTokenConfig{}, apiTokenStore{}, db, c, nil, logger),
		db:         db,
	}
}

// FindByHash looks a token up by its stored hash. Authentication runs on
// every request, so this read skips the cache and hits the indexed column
// directly.
func (r *ApiTokenRepository) FindByHash(ctx context.Context, hash string) (*domain.ApiToken, error) {
	row := r.db.Pool().QueryRow(ctx, `
		SELECT id, user_id, token_hash, token_prefix, description,
		       expires_at, last_used_at, revoked_at, created_at
		FROM api_token WHERE token_hash = $1`, hash)
	return scanApiToken(row)
}

// Revoke marks the token revoked and drops the user's cached token lists.
func (r *ApiTokenRepository) Revoke(ctx context.Context, actor *uuid.UUID, id uuid.UUID) (*domain.ApiToken, error) {
	now := time.Now()
	return r.Update(ctx, actor, id, func(t *domain.ApiToken) error {
		if t.RevokedAt == nil {
			t.RevokedAt = &now
		}
		return nil
	})
}

// TouchLastUsed records token usage without flushing the token's tag set.
func (r *ApiTokenRepository) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Pool().Exec(ctx, `
		UPDATE api_token SET last_used_at = now() WHERE id = $1`, id)
	return postgres.MapError(err)
}
