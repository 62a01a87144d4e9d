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

const courseMemberTTL = 30 * time.Minute

type courseMemberConfig struct{}

func (courseMemberConfig) EntityType() string { return "course_member" }
func (courseMemberConfig) TTL() time.Duration { return courseMemberTTL }

// Membership changes who is allowed to see what, so every write flushes
// the per-course view buckets alongside the member's own grading
// dashboard. The bare user tag belongs to the user-view family; the
// cascade invalidates it without tagging entity rows into that family.
func (courseMemberConfig) EntityTags(m *domain.CourseMember) []string {
	tags := []string{
		"course_member",
		entityTag("course_member", m.ID),
		attrTag("course_id", m.CourseID),
		attrTag("user_id", m.UserID),
		MemberGradingTag(m.ID),
	}
	return append(tags, CourseViewTags(m.CourseID)...)
}

func (courseMemberConfig) ListTags(filters map[string]any) []string {
	return listTags("course_member", filters)
}

type courseMemberStore struct{}

var courseMemberFilterColumns = map[string]string{
	"course_id":      "course_id",
	"user_id":        "user_id",
	"course_role_id": "course_role_id",
}

func (courseMemberStore) ID(m *domain.CourseMember) uuid.UUID { return m.ID }

func (courseMemberStore) SelectByID(ctx context.Context, q postgres.Querier, id uuid.UUID) (*domain.CourseMember, error) {
	row := q.QueryRow(ctx, `
		SELECT id, course_id, user_id, course_role_id, created_at, updated_at
		FROM course_member WHERE id = $1`, id)
	return scanCourseMember(row)
}

func (courseMemberStore) SelectBy(ctx context.Context, q postgres.Querier, filters map[string]any) ([]*domain.CourseMember, error) {
	where, args, err := buildWhere(filters, courseMemberFilterColumns)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, course_id, user_id, course_role_id, created_at, updated_at
		FROM course_member`+where+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var out []*domain.CourseMember
	for rows.Next() {
		m, err := scanCourseMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, postgres.MapError(rows.Err())
}

func (courseMemberStore) Insert(ctx context.Context, q postgres.Querier, m *domain.CourseMember) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO course_member (id, course_id, user_id, course_role_id)
		VALUES ($1, $2, $3, $4)`,
		m.ID, m.CourseID, m.UserID, m.CourseRoleID)
	return postgres.MapError(err)
}

// Update changes the role only; course_id and user_id identify the
// membership and never change.
func (courseMemberStore) Update(ctx context.Context, q postgres.Querier, m *domain.CourseMember) error {
	_, err := q.Exec(ctx, `
		UPDATE course_member SET course_role_id = $2, updated_at = now()
		WHERE id = $1`, m.ID, m.CourseRoleID)
	return postgres.MapError(err)
}

func (courseMemberStore) DeleteRow(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `DELETE FROM course_member WHERE id = $1`, id)
	return postgres.MapError(err)
}

func scanCourseMember(row interface{ Scan(...any) error }) (*domain.CourseMember, error) {
	var m domain.CourseMember
	if err := row.Scan(&m.ID, &m.CourseID, &m.UserID, &m.CourseRoleID,
		&m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, postgres.MapError(err)
	}
	return &m, nil
}

// courseMemberCascade flushes the member user's cached projections on
// every membership write.
func courseMemberCascade(ctx context.Context, q postgres.Querier, m *domain.CourseMember) ([]string, error) {
	return []string{"user:" + m.UserID.String()}, nil
}

// PermissionInvalidator lets the authorization layer drop its derived
// permission state when a membership changes. The cache-side view flush
// happens regardless; this hook covers state the cache does not own.
type PermissionInvalidator interface {
	InvalidateUserCourseMemberships(ctx context.Context, userID uuid.UUID)
}

// CourseMemberRepository wraps the generic repository so every write also
// notifies the permission layer for the affected user.
type CourseMemberRepository struct {
	*Repository[domain.CourseMember]
	perms PermissionInvalidator
}

// NewCourseMemberRepository builds the cached course-member repository.
// perms may be nil when no authorization layer is attached.
func NewCourseMemberRepository(db *postgres.Store, c *cache.Cache, perms PermissionInvalidator, logger *zap.Logger) *CourseMemberRepository {
	return &CourseMemberRepository{
		Repository: New[domain.CourseMember](courseMemberConfig{}, courseMemberStore{}, db, c,
			CascadeFunc[domain.CourseMember](courseMemberCascade), logger),
		perms:      perms,
	}
}

func (r *CourseMemberRepository) Create(ctx context.Context, actor *uuid.UUID, m *domain.CourseMember) (*domain.CourseMember, error) {
	created, err := r.Repository.Create(ctx, actor, m)
	if err != nil {
		return nil, err
	}
	r.notify(ctx, created.UserID)
	return created, nil
}

func (r *CourseMemberRepository) Update(ctx context.Context, actor *uuid.UUID, id uuid.UUID, mutate func(*domain.CourseMember) error) (*domain.CourseMember, error) {
	updated, err := r.Repository.Update(ctx, actor, id, mutate)
	if err != nil {
		return nil, err
	}
	r.notify(ctx, updated.UserID)
	return updated, nil
}

func (r *CourseMemberRepository) Delete(ctx context.Context, actor *uuid.UUID, m *domain.CourseMember) error {
	if err := r.Repository.Delete(ctx, actor, m); err != nil {
		return err
	}
	r.notify(ctx, m.UserID)
	return nil
}

func (r *CourseMemberRepository) notify(ctx context.Context, userID uuid.UUID) {
	if r.perms != nil {
		r.perms.InvalidateUserCourseMemberships(ctx, userID)
	}
}
