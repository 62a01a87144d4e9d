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

const courseContentTTL = 15 * time.Minute

type courseContentConfig struct{}

func (courseContentConfig) EntityType() string { return "course_content" }
func (courseContentConfig) TTL() time.Duration { return courseContentTTL }

// Student and tutor listings embed content rows (including deployment
// status), so every content write flushes the per-course view buckets.
func (courseContentConfig) EntityTags(cc *domain.CourseContent) []string {
	tags := []string{
		"course_content",
		entityTag("course_content", cc.ID),
		attrTag("course_id", cc.CourseID),
	}
	return append(tags, CourseViewTags(cc.CourseID)...)
}

func (courseContentConfig) ListTags(filters map[string]any) []string {
	return listTags("course_content", filters)
}

type courseContentStore struct{}

var courseContentFilterColumns = map[string]string{
	"course_id":              "course_id",
	"course_content_type_id": "course_content_type_id",
	"archived":               "(archived_at IS NOT NULL)",
}

func (courseContentStore) ID(cc *domain.CourseContent) uuid.UUID { return cc.ID }

func (courseContentStore) SelectByID(ctx context.Context, q postgres.Querier, id uuid.UUID) (*domain.CourseContent, error) {
	row := q.QueryRow(ctx, `
		SELECT id, course_id, course_content_type_id, path::text, title, position,
		       max_submissions, created_at, updated_at, archived_at
		FROM course_content WHERE id = $1`, id)
	return scanCourseContent(row)
}

func (courseContentStore) SelectBy(ctx context.Context, q postgres.Querier, filters map[string]any) ([]*domain.CourseContent, error) {
	where, args, err := buildWhere(filters, courseContentFilterColumns)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, course_id, course_content_type_id, path::text, title, position,
		       max_submissions, created_at, updated_at, archived_at
		FROM course_content`+where+` ORDER BY path, position`, args...)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var out []*domain.CourseContent
	for rows.Next() {
		cc, err := scanCourseContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, postgres.MapError(rows.Err())
}

func (courseContentStore) Insert(ctx context.Context, q postgres.Querier, cc *domain.CourseContent) error {
	if cc.ID == uuid.Nil {
		cc.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO course_content (id, course_id, course_content_type_id, path, title, position, max_submissions)
		VALUES ($1, $2, $3, $4::ltree, $5, $6, $7)`,
		cc.ID, cc.CourseID, cc.CourseContentTypeID, cc.Path.String(), cc.Title, cc.Position, cc.MaxSubmissions)
	return postgres.MapError(err)
}

func (courseContentStore) Update(ctx context.Context, q postgres.Querier, cc *domain.CourseContent) error {
	_, err := q.Exec(ctx, `
		UPDATE course_content
		SET path = $2::ltree, title = $3, position = $4, max_submissions = $5,
		    archived_at = $6, updated_at = now()
		WHERE id = $1`,
		cc.ID, cc.Path.String(), cc.Title, cc.Position, cc.MaxSubmissions, cc.ArchivedAt)
	return postgres.MapError(err)
}

func (courseContentStore) DeleteRow(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `DELETE FROM course_content WHERE id = $1`, id)
	return postgres.MapError(err)
}

func scanCourseContent(row interface{ Scan(...any) error }) (*domain.CourseContent, error) {
	var cc domain.CourseContent
	var path string
	if err := row.Scan(&cc.ID, &cc.CourseID, &cc.CourseContentTypeID, &path, &cc.Title,
		&cc.Position, &cc.MaxSubmissions, &cc.CreatedAt, &cc.UpdatedAt, &cc.ArchivedAt); err != nil {
		return nil, postgres.MapError(err)
	}
	cc.Path = domain.Path(path)
	return &cc, nil
}

// NewCourseContentRepository builds the cached course-content repository.
func NewCourseContentRepository(db *postgres.Store, c *cache.Cache, logger *zap.Logger) *Repository[domain.CourseContent] {
	return New[domain.CourseContent](courseContentConfig{}, courseContentStore{}, db, c, nil, logger)
}
