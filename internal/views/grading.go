package views

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"computor-backend/internal/aggregate"
	"computor-backend/internal/cache"
	"computor-backend/internal/domain"
	"computor-backend/internal/repository"
	"computor-backend/internal/storage/postgres"
	apperrors "computor-backend/pkg/errors"
	"computor-backend/pkg/observability"
)

const (
	gradingViewType     = "cm_gradings"
	gradingListViewType = "cm_gradings_course"
)

// GradingView computes hierarchical tree-path rollups over a member's
// submittable course contents: one dashboard per member, or the whole
// course batched in one SQL call.
type GradingView struct {
	base
	ttl time.Duration
}

// NewGradingView builds the grading dashboard repository.
func NewGradingView(c *cache.Cache, conn postgres.ConnProvider, metrics *observability.Collector, logger *zap.Logger, ttl time.Duration) *GradingView {
	if ttl <= 0 {
		ttl = DefaultTTLs().Grading
	}
	return &GradingView{base: newBase(c, conn, metrics, logger), ttl: ttl}
}

const memberResultsSQL = `
	WITH my_groups AS (
		SELECT sg.id, sg.course_content_id
		FROM submission_group sg
		JOIN submission_group_member sgm ON sgm.submission_group_id = sg.id
		WHERE sgm.course_member_id = $1
	), latest_grade AS (
		SELECT a.submission_group_id, g.grade, g.status,
		       ROW_NUMBER() OVER (PARTITION BY a.submission_group_id ORDER BY g.graded_at DESC) AS rn
		FROM submission_grade g
		JOIN submission_artifact a ON a.id = g.submission_artifact_id
		JOIN my_groups mg ON mg.id = a.submission_group_id
	), submitted AS (
		SELECT a.submission_group_id, MAX(a.uploaded_at) AS last_uploaded
		FROM submission_artifact a
		JOIN my_groups mg ON mg.id = a.submission_group_id
		WHERE a.submit = true
		GROUP BY a.submission_group_id
	)
	SELECT cc.id, cc.path::text, ct.id, ct.slug,
	       s.submission_group_id IS NOT NULL, s.last_uploaded,
	       lg.grade, lg.status
	FROM course_content cc
	JOIN course_content_type ct ON ct.id = cc.course_content_type_id
	LEFT JOIN my_groups mg ON mg.course_content_id = cc.id
	LEFT JOIN submitted s ON s.submission_group_id = mg.id
	LEFT JOIN latest_grade lg ON lg.submission_group_id = mg.id AND lg.rn = 1
	WHERE cc.course_id = $2 AND ct.submittable = true AND cc.archived_at IS NULL
	ORDER BY cc.path`

// Get returns the member's rollup dashboard. The reader must be the
// member's own user or hold a grading role in the course.
func (v *GradingView) Get(ctx context.Context, readerUserID, memberID uuid.UUID) (*MemberGradings, error) {
	params := map[string]any{"course_member_id": memberID}

	return load(ctx, &v.base, gradingViewType, readerUserID, params,
		func(ctx context.Context, q postgres.Querier) (*MemberGradings, cache.UserViewOptions, error) {
			var courseID, memberUserID uuid.UUID
			err := q.QueryRow(ctx, `
				SELECT course_id, user_id FROM course_member WHERE id = $1`, memberID).
				Scan(&courseID, &memberUserID)
			if err != nil {
				return nil, cache.UserViewOptions{}, postgres.MapError(err)
			}
			if memberUserID != readerUserID {
				if err := requireGradingRole(ctx, q, courseID, readerUserID); err != nil {
					return nil, cache.UserViewOptions{}, err
				}
			}

			results, err := queryMemberResults(ctx, q, memberResultsSQL, memberID, courseID)
			if err != nil {
				return nil, cache.UserViewOptions{}, err
			}

			dto := &MemberGradings{
				CourseMemberID: memberID,
				CourseID:       courseID,
				Nodes:          aggregate.Rollup(results, 0),
			}
			opts := cache.UserViewOptions{
				TTL:        v.ttl,
				RelatedIDs: relatedIDs(params),
				BucketTags: []string{
					repository.MemberGradingTag(memberID),
					"course_id:" + courseID.String(),
				},
			}
			return dto, opts, nil
		})
}

const courseContentsSQL = `
	SELECT cc.id, cc.path::text, ct.id, ct.slug
	FROM course_content cc
	JOIN course_content_type ct ON ct.id = cc.course_content_type_id
	WHERE cc.course_id = $1 AND ct.submittable = true AND cc.archived_at IS NULL
	ORDER BY cc.path`

const courseResultsSQL = `
	WITH members AS (
		SELECT id FROM course_member WHERE course_id = $1 AND course_role_id = $2
	), member_groups AS (
		SELECT sgm.course_member_id, sg.id AS group_id, sg.course_content_id
		FROM submission_group sg
		JOIN submission_group_member sgm ON sgm.submission_group_id = sg.id
		JOIN members m ON m.id = sgm.course_member_id
		WHERE sg.course_id = $1
	), latest_grade AS (
		SELECT a.submission_group_id, g.grade, g.status,
		       ROW_NUMBER() OVER (PARTITION BY a.submission_group_id ORDER BY g.graded_at DESC) AS rn
		FROM submission_grade g
		JOIN submission_artifact a ON a.id = g.submission_artifact_id
	), submitted AS (
		SELECT submission_group_id, MAX(uploaded_at) AS last_uploaded
		FROM submission_artifact
		WHERE submit = true
		GROUP BY submission_group_id
	)
	SELECT mg.course_member_id, cc.id, cc.path::text, ct.id, ct.slug,
	       s.submission_group_id IS NOT NULL, s.last_uploaded,
	       lg.grade, lg.status
	FROM member_groups mg
	JOIN course_content cc ON cc.id = mg.course_content_id
	JOIN course_content_type ct ON ct.id = cc.course_content_type_id
	LEFT JOIN submitted s ON s.submission_group_id = mg.group_id
	LEFT JOIN latest_grade lg ON lg.submission_group_id = mg.group_id AND lg.rn = 1
	WHERE cc.archived_at IS NULL AND ct.submittable = true`

// List batches every enrolled student's dashboard in one SQL call. The
// result is shared among graders, so it is cached per course under a
// versioned key like the lecturer overview, and the role check runs
// before the cache lookup.
func (v *GradingView) List(ctx context.Context, readerUserID, courseID uuid.UUID) (*CourseGradings, error) {
	if err := v.ensureGradingRole(ctx, courseID, readerUserID); err != nil {
		return nil, err
	}

	bucket := repository.TagTutorView + ":" + courseID.String()
	key := v.cache.ComposeVersionedKey(ctx, gradingListViewType+":"+courseID.String(), bucket)

	var cached CourseGradings
	if v.cache.GetByKey(ctx, key, &cached) {
		v.count(gradingListViewType, "cache")
		return &cached, nil
	}

	result, err, _ := v.flight.Do(key, func() (any, error) {
		start := time.Now()
		q, err := v.conn(ctx)
		if err != nil {
			return nil, err
		}

		contents, err := queryCourseContents(ctx, q, courseID)
		if err != nil {
			return nil, err
		}
		results, err := queryCourseResults(ctx, q, courseID)
		if err != nil {
			return nil, err
		}

		batched := aggregate.BatchRollup(contents, results, 0)
		dto := CourseGradings{CourseID: courseID}
		for _, mg := range batched {
			memberID, err := uuid.Parse(mg.CourseMemberID)
			if err != nil {
				return nil, apperrors.NewInternal("malformed member id in rollup", err)
			}
			dto.Members = append(dto.Members, MemberGradings{
				CourseMemberID: memberID,
				CourseID:       courseID,
				Nodes:          mg.Nodes,
			})
		}

		_ = v.cache.SetByKey(ctx, key, &dto, v.ttl)
		v.count(gradingListViewType, "store")
		v.observe(gradingListViewType, start)
		return &dto, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*CourseGradings), nil
}

func queryMemberResults(ctx context.Context, q postgres.Querier, sql string, args ...any) ([]aggregate.ContentResult, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var out []aggregate.ContentResult
	for rows.Next() {
		r, err := scanContentResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, postgres.MapError(rows.Err())
}

func queryCourseContents(ctx context.Context, q postgres.Querier, courseID uuid.UUID) ([]aggregate.ContentResult, error) {
	rows, err := q.Query(ctx, courseContentsSQL, courseID)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var out []aggregate.ContentResult
	for rows.Next() {
		var r aggregate.ContentResult
		var path string
		if err := rows.Scan(&r.CourseContentID, &path, &r.ContentTypeID, &r.ContentTypeSlug); err != nil {
			return nil, postgres.MapError(err)
		}
		r.Path = domain.Path(path)
		out = append(out, r)
	}
	return out, postgres.MapError(rows.Err())
}

func queryCourseResults(ctx context.Context, q postgres.Querier, courseID uuid.UUID) ([]aggregate.MemberResult, error) {
	rows, err := q.Query(ctx, courseResultsSQL, courseID, domain.RoleStudent)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var out []aggregate.MemberResult
	for rows.Next() {
		var mr aggregate.MemberResult
		var err error
		if mr.CourseMemberID, mr.ContentResult, err = scanMemberResult(rows); err != nil {
			return nil, err
		}
		out = append(out, mr)
	}
	return out, postgres.MapError(rows.Err())
}

type scanner interface{ Scan(...any) error }

func scanContentResult(row scanner) (aggregate.ContentResult, error) {
	var (
		r           aggregate.ContentResult
		path        string
		submittedAt *time.Time
		grade       *float64
		status      *int
	)
	if err := row.Scan(&r.CourseContentID, &path, &r.ContentTypeID, &r.ContentTypeSlug,
		&r.Submitted, &submittedAt, &grade, &status); err != nil {
		return r, postgres.MapError(err)
	}
	r.Path = domain.Path(path)
	r.SubmittedAt = submittedAt
	r.Grade = grade
	if status != nil {
		st := domain.GradingStatus(*status)
		r.Status = &st
	}
	return r, nil
}

func scanMemberResult(row scanner) (string, aggregate.ContentResult, error) {
	var (
		memberID    string
		r           aggregate.ContentResult
		path        string
		submittedAt *time.Time
		grade       *float64
		status      *int
	)
	if err := row.Scan(&memberID, &r.CourseContentID, &path, &r.ContentTypeID, &r.ContentTypeSlug,
		&r.Submitted, &submittedAt, &grade, &status); err != nil {
		return "", r, postgres.MapError(err)
	}
	r.Path = domain.Path(path)
	r.SubmittedAt = submittedAt
	r.Grade = grade
	if status != nil {
		st := domain.GradingStatus(*status)
		r.Status = &st
	}
	return memberID, r, nil
}
