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

const submissionGroupTTL = 10 * time.Minute

type submissionGroupConfig struct{}

func (submissionGroupConfig) EntityType() string { return "submission_group" }
func (submissionGroupConfig) TTL() time.Duration { return submissionGroupTTL }

func (submissionGroupConfig) EntityTags(g *domain.SubmissionGroup) []string {
	return []string{
		"submission_group",
		entityTag("submission_group", g.ID),
		attrTag("course_id", g.CourseID),
		entityTag("course_content", g.CourseContentID),
	}
}

func (submissionGroupConfig) ListTags(filters map[string]any) []string {
	return listTags("submission_group", filters)
}

type submissionGroupStore struct{}

var submissionGroupFilterColumns = map[string]string{
	"course_id":         "course_id",
	"course_content_id": "course_content_id",
}

func (submissionGroupStore) ID(g *domain.SubmissionGroup) uuid.UUID { return g.ID }

func (submissionGroupStore) SelectByID(ctx context.Context, q postgres.Querier, id uuid.UUID) (*domain.SubmissionGroup, error) {
	rows, err := q.Query(ctx, `
		SELECT sg.id, sg.course_id, sg.course_content_id, sg.max_group_size,
		       sg.created_at, sg.updated_at, sgm.course_member_id
		FROM submission_group sg
		LEFT JOIN submission_group_member sgm ON sgm.submission_group_id = sg.id
		WHERE sg.id = $1`, id)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	groups, err := collectGroups(rows)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, apperrors.NewNotFound("submission group not found")
	}
	return groups[0], nil
}

func (submissionGroupStore) SelectBy(ctx context.Context, q postgres.Querier, filters map[string]any) ([]*domain.SubmissionGroup, error) {
	where, args, err := buildWhere(filters, submissionGroupFilterColumns)
	if err != nil {
		return nil, err
	}
	// buildWhere renders against the bare column names; qualify them.
	rows, err := q.Query(ctx, `
		SELECT sg.id, sg.course_id, sg.course_content_id, sg.max_group_size,
		       sg.created_at, sg.updated_at, sgm.course_member_id
		FROM (SELECT * FROM submission_group`+where+`) sg
		LEFT JOIN submission_group_member sgm ON sgm.submission_group_id = sg.id
		ORDER BY sg.created_at`, args...)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	return collectGroups(rows)
}

func (submissionGroupStore) Insert(ctx context.Context, q postgres.Querier, g *domain.SubmissionGroup) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.MaxGroupSize == 0 {
		g.MaxGroupSize = 1
	}
	_, err := q.Exec(ctx, `
		INSERT INTO submission_group (id, course_id, course_content_id, max_group_size)
		VALUES ($1, $2, $3, $4)`,
		g.ID, g.CourseID, g.CourseContentID, g.MaxGroupSize)
	if err != nil {
		return postgres.MapError(err)
	}
	for _, memberID := range g.MemberIDs {
		_, err := q.Exec(ctx, `
			INSERT INTO submission_group_member (id, submission_group_id, course_member_id)
			VALUES ($1, $2, $3)`,
			uuid.New(), g.ID, memberID)
		if err != nil {
			return postgres.MapError(err)
		}
	}
	return nil
}

// Update rewrites size and membership; course_id and course_content_id
// never change after creation.
func (submissionGroupStore) Update(ctx context.Context, q postgres.Querier, g *domain.SubmissionGroup) error {
	_, err := q.Exec(ctx, `
		UPDATE submission_group SET max_group_size = $2, updated_at = now()
		WHERE id = $1`, g.ID, g.MaxGroupSize)
	if err != nil {
		return postgres.MapError(err)
	}
	if _, err := q.Exec(ctx, `DELETE FROM submission_group_member WHERE submission_group_id = $1`, g.ID); err != nil {
		return postgres.MapError(err)
	}
	for _, memberID := range g.MemberIDs {
		_, err := q.Exec(ctx, `
			INSERT INTO submission_group_member (id, submission_group_id, course_member_id)
			VALUES ($1, $2, $3)`,
			uuid.New(), g.ID, memberID)
		if err != nil {
			return postgres.MapError(err)
		}
	}
	return nil
}

func (submissionGroupStore) DeleteRow(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `DELETE FROM submission_group WHERE id = $1`, id)
	return postgres.MapError(err)
}

func collectGroups(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]*domain.SubmissionGroup, error) {
	byID := make(map[uuid.UUID]*domain.SubmissionGroup)
	var order []*domain.SubmissionGroup
	for rows.Next() {
		var g domain.SubmissionGroup
		var memberID *uuid.UUID
		if err := rows.Scan(&g.ID, &g.CourseID, &g.CourseContentID, &g.MaxGroupSize,
			&g.CreatedAt, &g.UpdatedAt, &memberID); err != nil {
			return nil, postgres.MapError(err)
		}
		existing, ok := byID[g.ID]
		if !ok {
			existing = &g
			byID[g.ID] = existing
			order = append(order, existing)
		}
		if memberID != nil {
			existing.MemberIDs = append(existing.MemberIDs, *memberID)
		}
	}
	return order, postgres.MapError(rows.Err())
}

// submissionGroupCascade fans membership changes out to every member's
// grading dashboard and the per-course views.
type submissionGroupCascade struct {
	scopes *scopeResolver
}

func (c submissionGroupCascade) CascadeTags(ctx context.Context, q postgres.Querier, g *domain.SubmissionGroup) ([]string, error) {
	// The resolved scope caches the member set; a membership rewrite makes
	// it stale, so drop it before later cascades resolve this group again.
	c.scopes.invalidate(ctx, g.ID)

	tags := CourseViewTags(g.CourseID)
	for _, memberID := range g.MemberIDs {
		tags = append(tags, MemberGradingTag(memberID))
	}
	return tags, nil
}

// NewSubmissionGroupRepository builds the cached submission-group repository.
func NewSubmissionGroupRepository(db *postgres.Store, c *cache.Cache, logger *zap.Logger) *Repository[domain.SubmissionGroup] {
	return New[domain.SubmissionGroup](submissionGroupConfig{}, submissionGroupStore{}, db, c,
		submissionGroupCascade{scopes: &scopeResolver{cache: c}}, logger)
}
