package views

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"computor-backend/internal/cache"
	"computor-backend/internal/repository"
	"computor-backend/internal/storage/postgres"
	apperrors "computor-backend/pkg/errors"
	"computor-backend/pkg/observability"
)

const studentViewType = "student_course_contents"

// StudentView projects course contents for the enrolled student: content
// metadata with deployment status, the student's submission group, latest
// result, submission count, grading status, and unread message count.
type StudentView struct {
	base
	ttl time.Duration
}

// NewStudentView builds the student view repository.
func NewStudentView(c *cache.Cache, conn postgres.ConnProvider, metrics *observability.Collector, logger *zap.Logger, ttl time.Duration) *StudentView {
	if ttl <= 0 {
		ttl = DefaultTTLs().Student
	}
	return &StudentView{base: newBase(c, conn, metrics, logger), ttl: ttl}
}

// CourseContents returns the per-content projection of every active
// content in the course for the given user.
func (v *StudentView) CourseContents(ctx context.Context, userID, courseID uuid.UUID) ([]CourseContentView, error) {
	params := map[string]any{"course_id": courseID}

	return load(ctx, &v.base, studentViewType, userID, params,
		func(ctx context.Context, q postgres.Querier) ([]CourseContentView, cache.UserViewOptions, error) {
			contents, err := queryContents(ctx, q, contentQuery(groupsByUser, false), courseID, userID, userID)
			if err != nil {
				return nil, cache.UserViewOptions{}, err
			}
			backfillUnitStatuses(contents)

			opts := cache.UserViewOptions{
				TTL:        v.ttl,
				RelatedIDs: relatedIDs(params),
				BucketTags: append(contentTags(contents),
					repository.TagStudentView+":"+courseID.String()),
			}
			return contents, opts, nil
		})
}

// CourseContent returns the projection of one content. Units that arrive
// without their descendants get the status back-filled from one
// course-scoped follow-up query.
func (v *StudentView) CourseContent(ctx context.Context, userID, courseID, contentID uuid.UUID) (*CourseContentView, error) {
	params := map[string]any{"course_id": courseID, "course_content_id": contentID}

	return load(ctx, &v.base, studentViewType, userID, params,
		func(ctx context.Context, q postgres.Querier) (*CourseContentView, cache.UserViewOptions, error) {
			contents, err := queryContents(ctx, q, contentQuery(groupsByUser, true), courseID, userID, userID, contentID)
			if err != nil {
				return nil, cache.UserViewOptions{}, err
			}
			if len(contents) == 0 {
				return nil, cache.UserViewOptions{}, apperrors.NewNotFound("course content not found")
			}
			content := contents[0]

			if !content.Submittable {
				// The single-row query cannot see the unit's descendants;
				// fetch the course's contents once and reduce locally.
				all, err := queryContents(ctx, q, contentQuery(groupsByUser, false), courseID, userID, userID)
				if err != nil {
					return nil, cache.UserViewOptions{}, err
				}
				merged := append(all, content)
				backfillUnitStatuses(merged)
				content = merged[len(merged)-1]
			}

			opts := cache.UserViewOptions{
				TTL:        v.ttl,
				RelatedIDs: relatedIDs(params),
				BucketTags: []string{
					"course_content:" + contentID.String(),
					repository.TagStudentView + ":" + courseID.String(),
				},
			}
			return &content, opts, nil
		})
}
