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

const deploymentTTL = 5 * time.Minute

type deploymentConfig struct{}

func (deploymentConfig) EntityType() string { return "course_content_deployment" }
func (deploymentConfig) TTL() time.Duration { return deploymentTTL }

// Deployment status is embedded in content listings, so writes invalidate
// the content tag the views pinned on.
func (deploymentConfig) EntityTags(d *domain.CourseContentDeployment) []string {
	return []string{
		"course_content_deployment",
		entityTag("course_content_deployment", d.ID),
		entityTag("course_content", d.CourseContentID),
	}
}

func (deploymentConfig) ListTags(filters map[string]any) []string {
	return listTags("course_content_deployment", filters)
}

type deploymentStore struct{}

var deploymentFilterColumns = map[string]string{
	"course_content_id":  "course_content_id",
	"example_version_id": "example_version_id",
	"status":             "status",
}

func (deploymentStore) ID(d *domain.CourseContentDeployment) uuid.UUID { return d.ID }

func (deploymentStore) SelectByID(ctx context.Context, q postgres.Querier, id uuid.UUID) (*domain.CourseContentDeployment, error) {
	row := q.QueryRow(ctx, `
		SELECT id, course_content_id, example_version_id, example_identifier::text,
		       status, version_tag, deployed_at, updated_at
		FROM course_content_deployment WHERE id = $1`, id)
	return scanDeployment(row)
}

func (deploymentStore) SelectBy(ctx context.Context, q postgres.Querier, filters map[string]any) ([]*domain.CourseContentDeployment, error) {
	where, args, err := buildWhere(filters, deploymentFilterColumns)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, course_content_id, example_version_id, example_identifier::text,
		       status, version_tag, deployed_at, updated_at
		FROM course_content_deployment`+where+` ORDER BY updated_at DESC`, args...)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var out []*domain.CourseContentDeployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, postgres.MapError(rows.Err())
}

func (deploymentStore) Insert(ctx context.Context, q postgres.Querier, d *domain.CourseContentDeployment) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = domain.DeploymentUnassigned
	}
	var identifier *string
	if d.ExampleIdentifier != nil {
		s := d.ExampleIdentifier.String()
		identifier = &s
	}
	_, err := q.Exec(ctx, `
		INSERT INTO course_content_deployment
			(id, course_content_id, example_version_id, example_identifier, status, version_tag, deployed_at)
		VALUES ($1, $2, $3, $4::ltree, $5, $6, $7)`,
		d.ID, d.CourseContentID, d.ExampleVersionID, identifier, string(d.Status), d.VersionTag, d.DeployedAt)
	return postgres.MapError(err)
}

func (deploymentStore) Update(ctx context.Context, q postgres.Querier, d *domain.CourseContentDeployment) error {
	var identifier *string
	if d.ExampleIdentifier != nil {
		s := d.ExampleIdentifier.String()
		identifier = &s
	}
	_, err := q.Exec(ctx, `
		UPDATE course_content_deployment
		SET example_version_id = $2, example_identifier = $3::ltree, status = $4,
		    version_tag = $5, deployed_at = $6, updated_at = now()
		WHERE id = $1`,
		d.ID, d.ExampleVersionID, identifier, string(d.Status), d.VersionTag, d.DeployedAt)
	return postgres.MapError(err)
}

func (deploymentStore) DeleteRow(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `DELETE FROM course_content_deployment WHERE id = $1`, id)
	return postgres.MapError(err)
}

func scanDeployment(row interface{ Scan(...any) error }) (*domain.CourseContentDeployment, error) {
	var d domain.CourseContentDeployment
	var identifier *string
	var status string
	if err := row.Scan(&d.ID, &d.CourseContentID, &d.ExampleVersionID, &identifier,
		&status, &d.VersionTag, &d.DeployedAt, &d.UpdatedAt); err != nil {
		return nil, postgres.MapError(err)
	}
	if identifier != nil {
		p := domain.Path(*identifier)
		d.ExampleIdentifier = &p
	}
	d.Status = domain.DeploymentStatus(status)
	return &d, nil
}

// NewDeploymentRepository builds the cached deployment repository.
func NewDeploymentRepository(db *postgres.Store, c *cache.Cache, logger *zap.Logger) *Repository[domain.CourseContentDeployment] {
	return New[domain.CourseContentDeployment](deploymentConfig{}, deploymentStore{}, db, c, nil, logger)
}
