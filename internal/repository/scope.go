package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"computor-backend/internal/cache"
	"computor-backend/internal/storage/postgres"
	apperrors "computor-backend/pkg/errors"
)

// groupScope is the (course, content, members) identity of a submission
// group. An artifact never moves between groups and groups never move
// between courses; only the member set can change, and the group
// repository drops the cached scope when it does.
type groupScope struct {
	GroupID         uuid.UUID   `json:"group_id"`
	CourseID        uuid.UUID   `json:"course_id"`
	CourseContentID uuid.UUID   `json:"course_content_id"`
	MemberIDs       []uuid.UUID `json:"member_ids"`
}

const groupScopeTTL = time.Hour

// scopeResolver loads group scopes at write time, once per mutation, so
// cascades know the member set to fan out to.
type scopeResolver struct {
	cache *cache.Cache
}

func (r *scopeResolver) byGroup(ctx context.Context, q postgres.Querier, groupID uuid.UUID) (*groupScope, error) {
	key := r.cache.EntityKey("group_scope", groupID.String())
	var cached groupScope
	if r.cache.GetByKey(ctx, key, &cached) {
		return &cached, nil
	}

	rows, err := q.Query(ctx, `
		SELECT sg.course_id, sg.course_content_id, sgm.course_member_id
		FROM submission_group sg
		LEFT JOIN submission_group_member sgm ON sgm.submission_group_id = sg.id
		WHERE sg.id = $1`, groupID)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	scope := groupScope{GroupID: groupID}
	found := false
	for rows.Next() {
		var memberID *uuid.UUID
		if err := rows.Scan(&scope.CourseID, &scope.CourseContentID, &memberID); err != nil {
			return nil, postgres.MapError(err)
		}
		found = true
		if memberID != nil {
			scope.MemberIDs = append(scope.MemberIDs, *memberID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err)
	}
	if !found {
		return nil, apperrors.NewNotFound("submission group not found")
	}

	_ = r.cache.SetByKey(ctx, key, &scope, groupScopeTTL)
	return &scope, nil
}

// invalidate drops the cached scope of a group whose membership changed.
func (r *scopeResolver) invalidate(ctx context.Context, groupID uuid.UUID) {
	r.cache.DeleteByKey(ctx, r.cache.EntityKey("group_scope", groupID.String()))
}

func (r *scopeResolver) byArtifact(ctx context.Context, q postgres.Querier, artifactID uuid.UUID) (*groupScope, error) {
	var groupID uuid.UUID
	err := q.QueryRow(ctx, `
		SELECT submission_group_id FROM submission_artifact WHERE id = $1`, artifactID).Scan(&groupID)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	return r.byGroup(ctx, q, groupID)
}

// scopeTags is the cross-entity invalidation fan-out of any write inside
// a submission group: the owning course, the content row, each member's
// grading dashboard, and every per-course view bucket.
func scopeTags(s *groupScope) []string {
	tags := []string{
		entityTag("course", s.CourseID),
		attrTag("course_id", s.CourseID),
		entityTag("course_content", s.CourseContentID),
	}
	for _, memberID := range s.MemberIDs {
		tags = append(tags, MemberGradingTag(memberID))
	}
	return append(tags, CourseViewTags(s.CourseID)...)
}
