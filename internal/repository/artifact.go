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

const submissionArtifactTTL = 10 * time.Minute

type submissionArtifactConfig struct{}

func (submissionArtifactConfig) EntityType() string { return "submission_artifact" }
func (submissionArtifactConfig) TTL() time.Duration { return submissionArtifactTTL }

func (submissionArtifactConfig) EntityTags(a *domain.SubmissionArtifact) []string {
	return []string{
		"submission_artifact",
		entityTag("submission_artifact", a.ID),
		entityTag("submission_group", a.SubmissionGroupID),
		attrTag("submission_group_id", a.SubmissionGroupID),
	}
}

func (submissionArtifactConfig) ListTags(filters map[string]any) []string {
	return listTags("submission_artifact", filters)
}

type submissionArtifactStore struct{}

var submissionArtifactFilterColumns = map[string]string{
	"submission_group_id": "submission_group_id",
	"uploader_id":         "uploader_id",
	"submit":              "submit",
}

func (submissionArtifactStore) ID(a *domain.SubmissionArtifact) uuid.UUID { return a.ID }

func (submissionArtifactStore) SelectByID(ctx context.Context, q postgres.Querier, id uuid.UUID) (*domain.SubmissionArtifact, error) {
	row := q.QueryRow(ctx, `
		SELECT id, submission_group_id, uploader_id, submit, content_hash, uploaded_at
		FROM submission_artifact WHERE id = $1`, id)
	return scanSubmissionArtifact(row)
}

func (submissionArtifactStore) SelectBy(ctx context.Context, q postgres.Querier, filters map[string]any) ([]*domain.SubmissionArtifact, error) {
	where, args, err := buildWhere(filters, submissionArtifactFilterColumns)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, submission_group_id, uploader_id, submit, content_hash, uploaded_at
		FROM submission_artifact`+where+` ORDER BY uploaded_at DESC`, args...)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var out []*domain.SubmissionArtifact
	for rows.Next() {
		a, err := scanSubmissionArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, postgres.MapError(rows.Err())
}

func (submissionArtifactStore) Insert(ctx context.Context, q postgres.Querier, a *domain.SubmissionArtifact) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO submission_artifact (id, submission_group_id, uploader_id, submit, content_hash)
		VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.SubmissionGroupID, a.UploaderID, a.Submit, a.ContentHash)
	return postgres.MapError(err)
}

// Update is a contract violation for an immutable entity; no SQL runs.
func (submissionArtifactStore) Update(ctx context.Context, q postgres.Querier, a *domain.SubmissionArtifact) error {
	return apperrors.NewValidation("submission artifacts are immutable")
}

func (submissionArtifactStore) DeleteRow(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `DELETE FROM submission_artifact WHERE id = $1`, id)
	return postgres.MapError(err)
}

func scanSubmissionArtifact(row interface{ Scan(...any) error }) (*domain.SubmissionArtifact, error) {
	var a domain.SubmissionArtifact
	if err := row.Scan(&a.ID, &a.SubmissionGroupID, &a.UploaderID, &a.Submit,
		&a.ContentHash, &a.UploadedAt); err != nil {
		return nil, postgres.MapError(err)
	}
	return &a, nil
}

// submissionArtifactCascade resolves the artifact's group scope and fans
// the write out to the course, the content row, every group member's
// grading dashboard, and the per-course view buckets. A new upload
// changes the "latest result" projection of every member of the group.
type submissionArtifactCascade struct {
	scopes *scopeResolver
}

func (c submissionArtifactCascade) CascadeTags(ctx context.Context, q postgres.Querier, a *domain.SubmissionArtifact) ([]string, error) {
	scope, err := c.scopes.byGroup(ctx, q, a.SubmissionGroupID)
	if err != nil {
		return nil, err
	}
	return scopeTags(scope), nil
}

// NewSubmissionArtifactRepository builds the cached artifact repository
// with the group-member cascade.
func NewSubmissionArtifactRepository(db *postgres.Store, c *cache.Cache, logger *zap.Logger) *Repository[domain.SubmissionArtifact] {
	return New[domain.SubmissionArtifact](submissionArtifactConfig{}, submissionArtifactStore{}, db, c,
		submissionArtifactCascade{scopes: &scopeResolver{cache: c}}, logger)
}
