package views

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"computor-backend/internal/cache"
	"computor-backend/internal/repository"
	"computor-backend/internal/storage/postgres"
	"computor-backend/pkg/observability"
)

const lecturerViewType = "lecturer_course_overview"

// LecturerView projects course-wide submission statistics. The overview is
// identical for every lecturer, so it is cached once per course under a
// versioned key composed from the lecturer bucket tag; entity writes bump
// that tag and the stale generation ages out by TTL. That avoids the wide
// per-user fanout the set-based index would otherwise carry. Because the
// entry is reader independent, the role check runs before the lookup.
type LecturerView struct {
	base
	ttl time.Duration
}

// NewLecturerView builds the lecturer view repository.
func NewLecturerView(c *cache.Cache, conn postgres.ConnProvider, metrics *observability.Collector, logger *zap.Logger, ttl time.Duration) *LecturerView {
	if ttl <= 0 {
		ttl = DefaultTTLs().Lecturer
	}
	return &LecturerView{base: newBase(c, conn, metrics, logger), ttl: ttl}
}

const lecturerOverviewSQL = `
	WITH latest_grade AS (
		SELECT a.submission_group_id, g.status,
		       ROW_NUMBER() OVER (PARTITION BY a.submission_group_id ORDER BY g.graded_at DESC) AS rn
		FROM submission_grade g
		JOIN submission_artifact a ON a.id = g.submission_artifact_id
	), submitted AS (
		SELECT DISTINCT submission_group_id FROM submission_artifact WHERE submit = true
	)
	SELECT cc.id, cc.path::text, cc.title, ct.submittable,
	       COUNT(DISTINCT sg.id),
	       COUNT(DISTINCT s.submission_group_id),
	       COUNT(DISTINCT lg.submission_group_id),
	       COUNT(DISTINCT lg.submission_group_id) FILTER (WHERE lg.status = 0),
	       COUNT(DISTINCT lg.submission_group_id) FILTER (WHERE lg.status = 1),
	       COUNT(DISTINCT lg.submission_group_id) FILTER (WHERE lg.status = 2),
	       COUNT(DISTINCT lg.submission_group_id) FILTER (WHERE lg.status = 3)
	FROM course_content cc
	JOIN course_content_type ct ON ct.id = cc.course_content_type_id
	LEFT JOIN submission_group sg ON sg.course_content_id = cc.id
	LEFT JOIN submitted s ON s.submission_group_id = sg.id
	LEFT JOIN (SELECT * FROM latest_grade WHERE rn = 1) lg ON lg.submission_group_id = sg.id
	WHERE cc.course_id = $1 AND cc.archived_at IS NULL
	GROUP BY cc.id, cc.path, cc.title, ct.submittable
	ORDER BY cc.path`

// CourseOverview returns per-content group, submission, and grading-status
// counts for the whole course. The reader must hold a grading role.
func (v *LecturerView) CourseOverview(ctx context.Context, readerUserID, courseID uuid.UUID) (*CourseOverview, error) {
	if err := v.ensureGradingRole(ctx, courseID, readerUserID); err != nil {
		return nil, err
	}

	bucket := repository.TagLecturerView + ":" + courseID.String()
	key := v.cache.ComposeVersionedKey(ctx, lecturerViewType+":"+courseID.String(), bucket)

	var cached CourseOverview
	if v.cache.GetByKey(ctx, key, &cached) {
		v.count(lecturerViewType, "cache")
		return &cached, nil
	}

	result, err, _ := v.flight.Do(key, func() (any, error) {
		start := time.Now()
		q, err := v.conn(ctx)
		if err != nil {
			return nil, err
		}

		rows, err := q.Query(ctx, lecturerOverviewSQL, courseID)
		if err != nil {
			return nil, postgres.MapError(err)
		}
		defer rows.Close()

		overview := CourseOverview{CourseID: courseID}
		for rows.Next() {
			var cs ContentStats
			var notReviewed, corrected, correctionNecessary, improvementPossible int
			if err := rows.Scan(&cs.CourseContentID, &cs.Path, &cs.Title, &cs.Submittable,
				&cs.GroupCount, &cs.SubmittedGroups, &cs.GradedGroups,
				&notReviewed, &corrected, &correctionNecessary, &improvementPossible); err != nil {
				return nil, postgres.MapError(err)
			}
			cs.StatusCounts = map[string]int{
				"not_reviewed":         notReviewed,
				"corrected":            corrected,
				"correction_necessary": correctionNecessary,
				"improvement_possible": improvementPossible,
			}
			overview.Contents = append(overview.Contents, cs)
		}
		if err := rows.Err(); err != nil {
			return nil, postgres.MapError(err)
		}

		_ = v.cache.SetByKey(ctx, key, &overview, v.ttl)
		v.count(lecturerViewType, "store")
		v.observe(lecturerViewType, start)
		return &overview, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*CourseOverview), nil
}
