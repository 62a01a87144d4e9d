package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"computor-backend/internal/cache"
	"computor-backend/internal/domain"
	"computor-backend/internal/storage/postgres"
	apperrors "computor-backend/pkg/errors"
)

// ExampleVersion rows are immutable, so their caches can live long; the
// interesting part is the creation-time cascade below.
const exampleVersionTTL = time.Hour

type exampleVersionConfig struct{}

func (exampleVersionConfig) EntityType() string { return "example_version" }
func (exampleVersionConfig) TTL() time.Duration { return exampleVersionTTL }

func (exampleVersionConfig) EntityTags(v *domain.ExampleVersion) []string {
	return []string{
		"example_version",
		entityTag("example_version", v.ID),
		attrTag("example_id", v.ExampleID),
	}
}

func (exampleVersionConfig) ListTags(filters map[string]any) []string {
	return listTags("example_version", filters)
}

type exampleVersionStore struct{}

var exampleVersionFilterColumns = map[string]string{
	"example_id":  "example_id",
	"version_tag": "version_tag",
}

func (exampleVersionStore) ID(v *domain.ExampleVersion) uuid.UUID { return v.ID }

func (exampleVersionStore) SelectByID(ctx context.Context, q postgres.Querier, id uuid.UUID) (*domain.ExampleVersion, error) {
	row := q.QueryRow(ctx, `
		SELECT id, example_id, version_number, version_tag, storage_key, created_at
		FROM example_version WHERE id = $1`, id)
	return scanExampleVersion(row)
}

func (exampleVersionStore) SelectBy(ctx context.Context, q postgres.Querier, filters map[string]any) ([]*domain.ExampleVersion, error) {
	where, args, err := buildWhere(filters, exampleVersionFilterColumns)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, example_id, version_number, version_tag, storage_key, created_at
		FROM example_version`+where+` ORDER BY version_number DESC`, args...)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var out []*domain.ExampleVersion
	for rows.Next() {
		v, err := scanExampleVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, postgres.MapError(rows.Err())
}

func (exampleVersionStore) Insert(ctx context.Context, q postgres.Querier, v *domain.ExampleVersion) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO example_version (id, example_id, version_number, version_tag, storage_key)
		VALUES ($1, $2, $3, $4, $5)`,
		v.ID, v.ExampleID, v.VersionNumber, v.VersionTag, v.StorageKey)
	return postgres.MapError(err)
}

// Update is a contract violation for an immutable entity; no SQL runs.
func (exampleVersionStore) Update(ctx context.Context, q postgres.Querier, v *domain.ExampleVersion) error {
	return apperrors.NewValidation("example versions are immutable")
}

func (exampleVersionStore) DeleteRow(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `DELETE FROM example_version WHERE id = $1`, id)
	return postgres.MapError(err)
}

func scanExampleVersion(row interface{ Scan(...any) error }) (*domain.ExampleVersion, error) {
	var v domain.ExampleVersion
	if err := row.Scan(&v.ID, &v.ExampleID, &v.VersionNumber, &v.VersionTag, &v.StorageKey, &v.CreatedAt); err != nil {
		return nil, postgres.MapError(err)
	}
	return &v, nil
}

// exampleVersionCascade finds every deployment whose example_identifier
// matches the parent example's labeled-tree identifier and invalidates
// each deployment's content tag. This is the one cascade that crosses
// from an immutable-entity write to mutable downstream projections: a new
// version changes what "latest" means for every course deploying the
// example.
func exampleVersionCascade(ctx context.Context, q postgres.Querier, v *domain.ExampleVersion) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT d.course_content_id
		FROM course_content_deployment d
		JOIN example e ON e.id = $1
		WHERE d.example_identifier = e.identifier`, v.ExampleID)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var contentID uuid.UUID
		if err := rows.Scan(&contentID); err != nil {
			return nil, postgres.MapError(err)
		}
		tags = append(tags, entityTag("course_content", contentID))
	}
	return tags, postgres.MapError(rows.Err())
}

// NewExampleVersionRepository builds the cached example-version repository
// with the dependent-deployment cascade.
func NewExampleVersionRepository(db *postgres.Store, c *cache.Cache, logger *zap.Logger) *Repository[domain.ExampleVersion] {
	return New[domain.ExampleVersion](exampleVersionConfig{}, exampleVersionStore{}, db, c,
		CascadeFunc[domain.ExampleVersion](exampleVersionCascade), logger)
}
