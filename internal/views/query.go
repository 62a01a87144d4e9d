package views

import (
	"context"
	"time"

	"github.com/google/uuid"

	"computor-backend/internal/domain"
	"computor-backend/internal/storage/postgres"
)

// Content projection query composition. The spine is course_content joined
// with its type; everything else hangs off it as a LEFT JOIN over CTEs so
// a content without submissions still appears and COALESCE produces
// zeroes:
//
//   - my_groups: the reader's submission groups, whitelisted so unrelated
//     users' groups never join;
//   - latest_grade: ROW_NUMBER() window per group, rank 1 only;
//   - submission/result counts per group;
//   - unread message counts per content target and per group target,
//     excluding the reader's own messages; DISTINCT guards against row
//     multiplication through the read-receipt join.
//
// $1 course id, $2 reader user id, $3 group-whitelist principal. The two
// whitelist variants below differ only in how $3 binds.

const groupsByUser = `
	SELECT sg.id, sg.course_content_id, sg.max_group_size
	FROM submission_group sg
	JOIN submission_group_member sgm ON sgm.submission_group_id = sg.id
	JOIN course_member cm ON cm.id = sgm.course_member_id
	WHERE sg.course_id = $1 AND cm.user_id = $3`

const groupsByMember = `
	SELECT sg.id, sg.course_content_id, sg.max_group_size
	FROM submission_group sg
	JOIN submission_group_member sgm ON sgm.submission_group_id = sg.id
	WHERE sg.course_id = $1 AND sgm.course_member_id = $3`

func contentQuery(whitelist string, singleContent bool) string {
	q := `
		WITH my_groups AS (` + whitelist + `
		), latest_grade AS (
			SELECT a.submission_group_id, g.submission_artifact_id, g.grade, g.status, g.graded_at,
			       ROW_NUMBER() OVER (PARTITION BY a.submission_group_id ORDER BY g.graded_at DESC) AS rn
			FROM submission_grade g
			JOIN submission_artifact a ON a.id = g.submission_artifact_id
			JOIN my_groups mg ON mg.id = a.submission_group_id
		), submission_counts AS (
			SELECT a.submission_group_id, COUNT(*) AS submission_count
			FROM submission_artifact a
			JOIN my_groups mg ON mg.id = a.submission_group_id
			WHERE a.submit = true
			GROUP BY a.submission_group_id
		), result_counts AS (
			SELECT a.submission_group_id, COUNT(g.id) AS result_count
			FROM submission_artifact a
			JOIN my_groups mg ON mg.id = a.submission_group_id
			JOIN submission_grade g ON g.submission_artifact_id = a.id
			GROUP BY a.submission_group_id
		), unread_content AS (
			SELECT m.course_content_id AS content_id, COUNT(DISTINCT m.id) AS unread
			FROM message m
			LEFT JOIN message_read mr ON mr.message_id = m.id AND mr.reader_id = $2
			WHERE m.course_content_id IS NOT NULL AND m.author_id <> $2
			  AND m.archived_at IS NULL AND mr.id IS NULL
			GROUP BY m.course_content_id
		), unread_group AS (
			SELECT mg.course_content_id AS content_id, COUNT(DISTINCT m.id) AS unread
			FROM message m
			JOIN my_groups mg ON mg.id = m.submission_group_id
			LEFT JOIN message_read mr ON mr.message_id = m.id AND mr.reader_id = $2
			WHERE m.author_id <> $2 AND m.archived_at IS NULL AND mr.id IS NULL
			GROUP BY mg.course_content_id
		)
		SELECT cc.id, cc.course_id, cc.path::text, cc.title, cc.position, cc.max_submissions,
		       ct.id, ct.slug, ct.submittable,
		       d.status, d.version_tag, d.example_identifier::text,
		       mg.id, mg.max_group_size,
		       lg.submission_artifact_id, lg.grade, lg.status, lg.graded_at,
		       COALESCE(sc.submission_count, 0),
		       COALESCE(rc.result_count, 0),
		       COALESCE(uc.unread, 0) + COALESCE(ug.unread, 0)
		FROM course_content cc
		JOIN course_content_type ct ON ct.id = cc.course_content_type_id
		LEFT JOIN course_content_deployment d ON d.course_content_id = cc.id
		LEFT JOIN my_groups mg ON mg.course_content_id = cc.id
		LEFT JOIN latest_grade lg ON lg.submission_group_id = mg.id AND lg.rn = 1
		LEFT JOIN submission_counts sc ON sc.submission_group_id = mg.id
		LEFT JOIN result_counts rc ON rc.submission_group_id = mg.id
		LEFT JOIN unread_content uc ON uc.content_id = cc.id
		LEFT JOIN unread_group ug ON ug.content_id = cc.id
		WHERE cc.course_id = $1 AND cc.archived_at IS NULL`
	if singleContent {
		q += ` AND cc.id = $4`
	}
	return q + ` ORDER BY cc.path, cc.position`
}

func queryContents(ctx context.Context, q postgres.Querier, sql string, args ...any) ([]CourseContentView, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var out []CourseContentView
	for rows.Next() {
		var (
			v               CourseContentView
			path            string
			depStatus       *string
			depVersionTag   *string
			depIdentifier   *string
			groupID         *uuid.UUID
			maxGroupSize    *int
			artifactID      *uuid.UUID
			grade           *float64
			status          *int
			gradedAt        *time.Time
			submissionCount int
			resultCount     int
			unreadCount     int
		)
		if err := rows.Scan(&v.ID, &v.CourseID, &path, &v.Title, &v.Position, &v.MaxSubmissions,
			&v.ContentTypeID, &v.ContentTypeSlug, &v.Submittable,
			&depStatus, &depVersionTag, &depIdentifier,
			&groupID, &maxGroupSize,
			&artifactID, &grade, &status, &gradedAt,
			&submissionCount, &resultCount, &unreadCount); err != nil {
			return nil, postgres.MapError(err)
		}

		v.Path = path
		v.SubmissionCount = submissionCount
		v.ResultCount = resultCount
		v.UnreadMessageCount = unreadCount

		if depStatus != nil {
			v.Deployment = &DeploymentInfo{
				Status:            *depStatus,
				VersionTag:        depVersionTag,
				ExampleIdentifier: depIdentifier,
			}
		}
		if groupID != nil {
			gi := GroupInfo{ID: *groupID}
			if maxGroupSize != nil {
				gi.MaxGroupSize = *maxGroupSize
			}
			v.SubmissionGroup = &gi
		}
		if artifactID != nil && grade != nil && status != nil {
			st := domain.GradingStatus(*status)
			v.LatestResult = &ResultInfo{
				SubmissionArtifactID: *artifactID,
				Grade:                *grade,
				Status:               st.String(),
			}
			if gradedAt != nil {
				v.LatestResult.GradedAt = *gradedAt
			}
			v.GradingStatus = st.String()
			v.IsLatestUnreviewed = st == domain.GradingStatusNotReviewed
		} else {
			v.GradingStatus = domain.StatusNone
			// No grade at all counts as unreviewed once something was submitted.
			v.IsLatestUnreviewed = submissionCount > 0
		}

		out = append(out, v)
	}
	return out, postgres.MapError(rows.Err())
}

// backfillUnitStatuses attaches the reduced status of each unit's
// submittable descendants. The list query returns every content in the
// course, so the reduction runs locally over the same result set.
func backfillUnitStatuses(contents []CourseContentView) {
	for i := range contents {
		if contents[i].Submittable {
			continue
		}
		unit := domain.Path(contents[i].Path)
		var statuses []domain.GradingStatus
		for j := range contents {
			if !contents[j].Submittable {
				continue
			}
			if !domain.Path(contents[j].Path).IsDescendantOf(unit) {
				continue
			}
			statuses = append(statuses, statusFromString(contents[j].GradingStatus))
		}
		contents[i].GradingStatus = domain.ReduceStatuses(statuses)
	}
}

func statusFromString(s string) domain.GradingStatus {
	switch s {
	case "corrected":
		return domain.GradingStatusCorrected
	case "correction_necessary":
		return domain.GradingStatusCorrectionNecessary
	case "improvement_possible":
		return domain.GradingStatusImprovementPossible
	default:
		return domain.GradingStatusNotReviewed
	}
}

// contentTags pins the stored projection to every returned content row.
func contentTags(contents []CourseContentView) []string {
	tags := make([]string, 0, len(contents))
	for i := range contents {
		tags = append(tags, "course_content:"+contents[i].ID.String())
	}
	return tags
}
