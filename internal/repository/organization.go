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

// Organizations and course families change rarely; their caches live long.
const organizationTTL = time.Hour

type organizationConfig struct{}

func (organizationConfig) EntityType() string { return "organization" }
func (organizationConfig) TTL() time.Duration { return organizationTTL }

func (organizationConfig) EntityTags(o *domain.Organization) []string {
	return []string{"organization", entityTag("organization", o.ID)}
}

func (organizationConfig) ListTags(filters map[string]any) []string {
	return listTags("organization", filters)
}

type organizationStore struct{}

var organizationFilterColumns = map[string]string{
	"path": "path::text",
}

func (organizationStore) ID(o *domain.Organization) uuid.UUID { return o.ID }

func (organizationStore) SelectByID(ctx context.Context, q postgres.Querier, id uuid.UUID) (*domain.Organization, error) {
	row := q.QueryRow(ctx, `
		SELECT id, path::text, title, created_at, updated_at, archived_at
		FROM organization WHERE id = $1`, id)
	return scanOrganization(row)
}

func (organizationStore) SelectBy(ctx context.Context, q postgres.Querier, filters map[string]any) ([]*domain.Organization, error) {
	where, args, err := buildWhere(filters, organizationFilterColumns)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, path::text, title, created_at, updated_at, archived_at
		FROM organization`+where+` ORDER BY path`, args...)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var out []*domain.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, postgres.MapError(rows.Err())
}

func (organizationStore) Insert(ctx context.Context, q postgres.Querier, o *domain.Organization) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO organization (id, path, title)
		VALUES ($1, $2::ltree, $3)`,
		o.ID, o.Path.String(), o.Title)
	return postgres.MapError(err)
}

func (organizationStore) Update(ctx context.Context, q postgres.Querier, o *domain.Organization) error {
	_, err := q.Exec(ctx, `
		UPDATE organization
		SET path = $2::ltree, title = $3, archived_at = $4, updated_at = now()
		WHERE id = $1`,
		o.ID, o.Path.String(), o.Title, o.ArchivedAt)
	return postgres.MapError(err)
}

func (organizationStore) DeleteRow(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `DELETE FROM organization WHERE id = $1`, id)
	return postgres.MapError(err)
}

func scanOrganization(row interface{ Scan(...any) error }) (*domain.Organization, error) {
	var o domain.Organization
	var path string
	if err := row.Scan(&o.ID, &path, &o.Title, &o.CreatedAt, &o.UpdatedAt, &o.ArchivedAt); err != nil {
		return nil, postgres.MapError(err)
	}
	o.Path = domain.Path(path)
	return &o, nil
}

// NewOrganizationRepository builds the cached organization repository.
func NewOrganizationRepository(db *postgres.Store, c *cache.Cache, logger *zap.Logger) *Repository[domain.Organization] {
	return New[domain.Organization](organizationConfig{}, organizationStore{}, db, c, nil, logger)
}

// --- Course family ---

type courseFamilyConfig struct{}

func (courseFamilyConfig) EntityType() string { return "course_family" }
func (courseFamilyConfig) TTL() time.Duration { return organizationTTL }

func (courseFamilyConfig) EntityTags(f *domain.CourseFamily) []string {
	return []string{
		"course_family",
		entityTag("course_family", f.ID),
		attrTag("organization_id", f.OrganizationID),
	}
}

func (courseFamilyConfig) ListTags(filters map[string]any) []string {
	return listTags("course_family", filters)
}

type courseFamilyStore struct{}

var courseFamilyFilterColumns = map[string]string{
	"organization_id": "organization_id",
	"path":            "path::text",
}

func (courseFamilyStore) ID(f *domain.CourseFamily) uuid.UUID { return f.ID }

func (courseFamilyStore) SelectByID(ctx context.Context, q postgres.Querier, id uuid.UUID) (*domain.CourseFamily, error) {
	row := q.QueryRow(ctx, `
		SELECT id, organization_id, path::text, title, created_at, updated_at
		FROM course_family WHERE id = $1`, id)
	return scanCourseFamily(row)
}

func (courseFamilyStore) SelectBy(ctx context.Context, q postgres.Querier, filters map[string]any) ([]*domain.CourseFamily, error) {
	where, args, err := buildWhere(filters, courseFamilyFilterColumns)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, organization_id, path::text, title, created_at, updated_at
		FROM course_family`+where+` ORDER BY path`, args...)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var out []*domain.CourseFamily
	for rows.Next() {
		f, err := scanCourseFamily(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, postgres.MapError(rows.Err())
}

func (courseFamilyStore) Insert(ctx context.Context, q postgres.Querier, f *domain.CourseFamily) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO course_family (id, organization_id, path, title)
		VALUES ($1, $2, $3::ltree, $4)`,
		f.ID, f.OrganizationID, f.Path.String(), f.Title)
	return postgres.MapError(err)
}

func (courseFamilyStore) Update(ctx context.Context, q postgres.Querier, f *domain.CourseFamily) error {
	_, err := q.Exec(ctx, `
		UPDATE course_family
		SET path = $2::ltree, title = $3, updated_at = now()
		WHERE id = $1`,
		f.ID, f.Path.String(), f.Title)
	return postgres.MapError(err)
}

func (courseFamilyStore) DeleteRow(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `DELETE FROM course_family WHERE id = $1`, id)
	return postgres.MapError(err)
}

func scanCourseFamily(row interface{ Scan(...any) error }) (*domain.CourseFamily, error) {
	var f domain.CourseFamily
	var path string
	if err := row.Scan(&f.ID, &f.OrganizationID, &path, &f.Title, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, postgres.MapError(err)
	}
	f.Path = domain.Path(path)
	return &f, nil
}

// NewCourseFamilyRepository builds the cached course-family repository.
func NewCourseFamilyRepository(db *postgres.Store, c *cache.Cache, logger *zap.Logger) *Repository[domain.CourseFamily] {
	return New[domain.CourseFamily](courseFamilyConfig{}, courseFamilyStore{}, db, c, nil, logger)
}
