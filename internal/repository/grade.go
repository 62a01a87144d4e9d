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

const submissionGradeTTL = 10 * time.Minute

type submissionGradeConfig struct{}

func (submissionGradeConfig) EntityType() string { return "submission_grade" }
func (submissionGradeConfig) TTL() time.Duration { return submissionGradeTTL }

func (submissionGradeConfig) EntityTags(g *domain.SubmissionGrade) []string {
	return []string{
		"submission_grade",
		entityTag("submission_grade", g.ID),
		entityTag("submission_artifact", g.SubmissionArtifactID),
		attrTag("submission_artifact_id", g.SubmissionArtifactID),
	}
}

func (submissionGradeConfig) ListTags(filters map[string]any) []string {
	return listTags("submission_grade", filters)
}

type submissionGradeStore struct{}

var submissionGradeFilterColumns = map[string]string{
	"submission_artifact_id":  "submission_artifact_id",
	"grader_course_member_id": "grader_course_member_id",
	"status":                  "status",
}

func (submissionGradeStore) ID(g *domain.SubmissionGrade) uuid.UUID { return g.ID }

func (submissionGradeStore) SelectByID(ctx context.Context, q postgres.Querier, id uuid.UUID) (*domain.SubmissionGrade, error) {
	row := q.QueryRow(ctx, `
		SELECT id, submission_artifact_id, grader_course_member_id, grade, status, feedback, graded_at
		FROM submission_grade WHERE id = $1`, id)
	return scanSubmissionGrade(row)
}

func (submissionGradeStore) SelectBy(ctx context.Context, q postgres.Querier, filters map[string]any) ([]*domain.SubmissionGrade, error) {
	where, args, err := buildWhere(filters, submissionGradeFilterColumns)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, submission_artifact_id, grader_course_member_id, grade, status, feedback, graded_at
		FROM submission_grade`+where+` ORDER BY graded_at DESC`, args...)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var out []*domain.SubmissionGrade
	for rows.Next() {
		g, err := scanSubmissionGrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, postgres.MapError(rows.Err())
}

func (submissionGradeStore) Insert(ctx context.Context, q postgres.Querier, g *domain.SubmissionGrade) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO submission_grade (id, submission_artifact_id, grader_course_member_id, grade, status, feedback)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.SubmissionArtifactID, g.GraderCourseMemberID, g.Grade, int(g.Status), g.Feedback)
	return postgres.MapError(err)
}

func (submissionGradeStore) Update(ctx context.Context, q postgres.Querier, g *domain.SubmissionGrade) error {
	_, err := q.Exec(ctx, `
		UPDATE submission_grade
		SET grade = $2, status = $3, feedback = $4, graded_at = now()
		WHERE id = $1`,
		g.ID, g.Grade, int(g.Status), g.Feedback)
	return postgres.MapError(err)
}

func (submissionGradeStore) DeleteRow(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `DELETE FROM submission_grade WHERE id = $1`, id)
	return postgres.MapError(err)
}

func scanSubmissionGrade(row interface{ Scan(...any) error }) (*domain.SubmissionGrade, error) {
	var g domain.SubmissionGrade
	var status int
	if err := row.Scan(&g.ID, &g.SubmissionArtifactID, &g.GraderCourseMemberID,
		&g.Grade, &status, &g.Feedback, &g.GradedAt); err != nil {
		return nil, postgres.MapError(err)
	}
	g.Status = domain.GradingStatus(status)
	return &g, nil
}

// submissionGradeCascade is the widest fan-out in the system. A grade
// write resolves artifact -> group -> members inside the transaction and
// invalidates the artifact, the group, the content row, the course,
// every member's grading dashboard, and the per-course view buckets.
type submissionGradeCascade struct {
	scopes *scopeResolver
}

func (c submissionGradeCascade) CascadeTags(ctx context.Context, q postgres.Querier, g *domain.SubmissionGrade) ([]string, error) {
	scope, err := c.scopes.byArtifact(ctx, q, g.SubmissionArtifactID)
	if err != nil {
		return nil, err
	}
	tags := scopeTags(scope)
	return append(tags, entityTag("submission_group", scope.GroupID)), nil
}

// NewSubmissionGradeRepository builds the cached grade repository with the
// artifact-to-members cascade.
func NewSubmissionGradeRepository(db *postgres.Store, c *cache.Cache, logger *zap.Logger) *Repository[domain.SubmissionGrade] {
	return New[domain.SubmissionGrade](submissionGradeConfig{}, submissionGradeStore{}, db, c,
		submissionGradeCascade{scopes: &scopeResolver{cache: c}}, logger)
}
