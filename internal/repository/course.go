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

const courseTTL = 30 * time.Minute

type courseConfig struct{}

func (courseConfig) EntityType() string { return "course" }
func (courseConfig) TTL() time.Duration { return courseTTL }

// EntityTags covers the entity itself, the course_id attribute tag that
// list caches and projections pin on, the owning family/organization, and
// every per-course view bucket: archiving a course must flush them all.
func (courseConfig) EntityTags(c *domain.Course) []string {
	tags := []string{
		"course",
		entityTag("course", c.ID),
		attrTag("course_id", c.ID),
		attrTag("course_family_id", c.CourseFamilyID),
		attrTag("organization_id", c.OrganizationID),
	}
	return append(tags, CourseViewTags(c.ID)...)
}

func (courseConfig) ListTags(filters map[string]any) []string {
	return listTags("course", filters)
}

type courseStore struct{}

var courseFilterColumns = map[string]string{
	"course_family_id": "course_family_id",
	"organization_id":  "organization_id",
	"archived":         "(archived_at IS NOT NULL)",
}

func (courseStore) ID(c *domain.Course) uuid.UUID { return c.ID }

func (courseStore) SelectByID(ctx context.Context, q postgres.Querier, id uuid.UUID) (*domain.Course, error) {
	row := q.QueryRow(ctx, `
		SELECT id, course_family_id, organization_id, path::text, title,
		       created_at, updated_at, archived_at
		FROM course WHERE id = $1`, id)
	return scanCourse(row)
}

func (courseStore) SelectBy(ctx context.Context, q postgres.Querier, filters map[string]any) ([]*domain.Course, error) {
	where, args, err := buildWhere(filters, courseFilterColumns)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, course_family_id, organization_id, path::text, title,
		       created_at, updated_at, archived_at
		FROM course`+where+` ORDER BY path`, args...)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var out []*domain.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, postgres.MapError(rows.Err())
}

func (courseStore) Insert(ctx context.Context, q postgres.Querier, c *domain.Course) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO course (id, course_family_id, organization_id, path, title)
		VALUES ($1, $2, $3, $4::ltree, $5)`,
		c.ID, c.CourseFamilyID, c.OrganizationID, c.Path.String(), c.Title)
	return postgres.MapError(err)
}

func (courseStore) Update(ctx context.Context, q postgres.Querier, c *domain.Course) error {
	_, err := q.Exec(ctx, `
		UPDATE course
		SET path = $2::ltree, title = $3, archived_at = $4, updated_at = now()
		WHERE id = $1`,
		c.ID, c.Path.String(), c.Title, c.ArchivedAt)
	return postgres.MapError(err)
}

func (courseStore) DeleteRow(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `DELETE FROM course WHERE id = $1`, id)
	return postgres.MapError(err)
}

func scanCourse(row interface{ Scan(...any) error }) (*domain.Course, error) {
	var c domain.Course
	var path string
	if err := row.Scan(&c.ID, &c.CourseFamilyID, &c.OrganizationID, &path, &c.Title,
		&c.CreatedAt, &c.UpdatedAt, &c.ArchivedAt); err != nil {
		return nil, postgres.MapError(err)
	}
	c.Path = domain.Path(path)
	return &c, nil
}

// NewCourseRepository builds the cached course repository.
func NewCourseRepository(db *postgres.Store, c *cache.Cache, logger *zap.Logger) *Repository[domain.Course] {
	return New[domain.Course](courseConfig{}, courseStore{}, db, c, nil, logger)
}
