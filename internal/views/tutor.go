package views

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"computor-backend/internal/cache"
	"computor-backend/internal/domain"
	"computor-backend/internal/repository"
	"computor-backend/internal/storage/postgres"
	apperrors "computor-backend/pkg/errors"
	"computor-backend/pkg/observability"
)

const tutorViewType = "tutor_course_contents"

// TutorView mirrors the student projection over an arbitrary course
// member, for graders. Reads are keyed by the reader, so unread counts
// reflect what the tutor has not seen, and permission is checked against
// the reader's own membership on recompute.
type TutorView struct {
	base
	ttl time.Duration
}

// NewTutorView builds the tutor view repository.
func NewTutorView(c *cache.Cache, conn postgres.ConnProvider, metrics *observability.Collector, logger *zap.Logger, ttl time.Duration) *TutorView {
	if ttl <= 0 {
		ttl = DefaultTTLs().Tutor
	}
	return &TutorView{base: newBase(c, conn, metrics, logger), ttl: ttl}
}

// CourseContents returns the member's per-content projection as seen by
// the reader. The reader must hold a grading role in the course.
func (v *TutorView) CourseContents(ctx context.Context, readerUserID, courseID, memberID uuid.UUID) ([]CourseContentView, error) {
	params := map[string]any{"course_id": courseID, "course_member_id": memberID}

	return load(ctx, &v.base, tutorViewType, readerUserID, params,
		func(ctx context.Context, q postgres.Querier) ([]CourseContentView, cache.UserViewOptions, error) {
			if err := requireGradingRole(ctx, q, courseID, readerUserID); err != nil {
				return nil, cache.UserViewOptions{}, err
			}
			contents, err := queryContents(ctx, q, contentQuery(groupsByMember, false), courseID, readerUserID, memberID)
			if err != nil {
				return nil, cache.UserViewOptions{}, err
			}
			backfillUnitStatuses(contents)

			opts := cache.UserViewOptions{
				TTL:        v.ttl,
				RelatedIDs: relatedIDs(params),
				BucketTags: append(contentTags(contents),
					repository.TagTutorView+":"+courseID.String(),
					repository.MemberGradingTag(memberID)),
			}
			return contents, opts, nil
		})
}

// CourseContent returns one content of the member's projection.
func (v *TutorView) CourseContent(ctx context.Context, readerUserID, courseID, memberID, contentID uuid.UUID) (*CourseContentView, error) {
	params := map[string]any{
		"course_id":         courseID,
		"course_member_id":  memberID,
		"course_content_id": contentID,
	}

	return load(ctx, &v.base, tutorViewType, readerUserID, params,
		func(ctx context.Context, q postgres.Querier) (*CourseContentView, cache.UserViewOptions, error) {
			if err := requireGradingRole(ctx, q, courseID, readerUserID); err != nil {
				return nil, cache.UserViewOptions{}, err
			}
			contents, err := queryContents(ctx, q, contentQuery(groupsByMember, true), courseID, readerUserID, memberID, contentID)
			if err != nil {
				return nil, cache.UserViewOptions{}, err
			}
			if len(contents) == 0 {
				return nil, cache.UserViewOptions{}, apperrors.NewNotFound("course content not found")
			}
			content := contents[0]

			opts := cache.UserViewOptions{
				TTL:        v.ttl,
				RelatedIDs: relatedIDs(params),
				BucketTags: []string{
					"course_content:" + contentID.String(),
					repository.TagTutorView + ":" + courseID.String(),
					repository.MemberGradingTag(memberID),
				},
			}
			return &content, opts, nil
		})
}

// requireGradingRole verifies the reader holds a tutor, lecturer, or
// maintainer membership in the course. The denial does not reveal whether
// the course exists.
func requireGradingRole(ctx context.Context, q postgres.Querier, courseID, readerUserID uuid.UUID) error {
	var role string
	err := q.QueryRow(ctx, `
		SELECT course_role_id FROM course_member
		WHERE course_id = $1 AND user_id = $2`, courseID, readerUserID).Scan(&role)
	if err != nil {
		return apperrors.NewPermissionDenied("not permitted")
	}
	switch role {
	case domain.RoleTutor, domain.RoleLecturer, domain.RoleMaintainer:
		return nil
	}
	return apperrors.NewPermissionDenied("not permitted")
}
