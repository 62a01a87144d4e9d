package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"computor-backend/internal/domain"
)

// Every entity tag set must include the family tag and the entity's own
// id tag; course-scoped entities must also carry the per-course view
// buckets their projections are stored under.

func TestCourseContentEntityTags(t *testing.T) {
	cc := &domain.CourseContent{ID: uuid.New(), CourseID: uuid.New()}
	tags := courseContentConfig{}.EntityTags(cc)

	assert.Contains(t, tags, "course_content")
	assert.Contains(t, tags, "course_content:"+cc.ID.String())
	assert.Contains(t, tags, "course_id:"+cc.CourseID.String())
	for _, vt := range CourseViewTags(cc.CourseID) {
		assert.Contains(t, tags, vt)
	}
}

func TestCourseMemberEntityTags(t *testing.T) {
	m := &domain.CourseMember{ID: uuid.New(), CourseID: uuid.New(), UserID: uuid.New()}
	tags := courseMemberConfig{}.EntityTags(m)

	assert.Contains(t, tags, "course_member:"+m.ID.String())
	assert.Contains(t, tags, "user_id:"+m.UserID.String())
	// The bare user tag is the user-view family; entity rows must not
	// join it or a user-view sweep would remove them too.
	assert.NotContains(t, tags, "user:"+m.UserID.String())
	assert.Contains(t, tags, MemberGradingTag(m.ID))
	for _, vt := range CourseViewTags(m.CourseID) {
		assert.Contains(t, tags, vt)
	}
}

func TestSubmissionGradeEntityTags(t *testing.T) {
	g := &domain.SubmissionGrade{ID: uuid.New(), SubmissionArtifactID: uuid.New()}
	tags := submissionGradeConfig{}.EntityTags(g)

	assert.Contains(t, tags, "submission_grade:"+g.ID.String())
	assert.Contains(t, tags, "submission_artifact:"+g.SubmissionArtifactID.String())
	assert.Contains(t, tags, "submission_artifact_id:"+g.SubmissionArtifactID.String())
}

func TestSubmissionArtifactEntityTags(t *testing.T) {
	a := &domain.SubmissionArtifact{ID: uuid.New(), SubmissionGroupID: uuid.New()}
	tags := submissionArtifactConfig{}.EntityTags(a)

	assert.Contains(t, tags, "submission_artifact:"+a.ID.String())
	assert.Contains(t, tags, "submission_group:"+a.SubmissionGroupID.String())
}

func TestApiTokenEntityTags(t *testing.T) {
	tok := &domain.ApiToken{ID: uuid.New(), UserID: uuid.New()}
	tags := apiTokenConfig{}.EntityTags(tok)

	assert.Contains(t, tags, "api_token:"+tok.ID.String())
	assert.Contains(t, tags, "user_id:"+tok.UserID.String())
	assert.NotContains(t, tags, "user:"+tok.UserID.String())
}

// Message tags mirror the single non-nil target.
func TestMessageEntityTags(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	courseID := uuid.New()

	userMsg := &domain.Message{ID: uuid.New(), TargetUserID: &userID}
	tags := messageConfig{}.EntityTags(userMsg)
	assert.Contains(t, tags, "target_user_id:"+userID.String())
	assert.NotContains(t, tags, "user:"+userID.String())
	assert.NotContains(t, tags, "student_view:"+courseID.String())

	groupMsg := &domain.Message{ID: uuid.New(), SubmissionGroupID: &groupID}
	tags = messageConfig{}.EntityTags(groupMsg)
	assert.Contains(t, tags, "submission_group:"+groupID.String())

	courseMsg := &domain.Message{ID: uuid.New(), CourseID: &courseID}
	tags = messageConfig{}.EntityTags(courseMsg)
	assert.Contains(t, tags, "course_id:"+courseID.String())
	for _, vt := range CourseViewTags(courseID) {
		assert.Contains(t, tags, vt)
	}
}

func TestScopeTags_FansOutToMembersAndViews(t *testing.T) {
	scope := &groupScope{
		GroupID:         uuid.New(),
		CourseID:        uuid.New(),
		CourseContentID: uuid.New(),
		MemberIDs:       []uuid.UUID{uuid.New(), uuid.New()},
	}

	tags := scopeTags(scope)

	assert.Contains(t, tags, "course:"+scope.CourseID.String())
	assert.Contains(t, tags, "course_id:"+scope.CourseID.String())
	assert.Contains(t, tags, "course_content:"+scope.CourseContentID.String())
	for _, memberID := range scope.MemberIDs {
		assert.Contains(t, tags, MemberGradingTag(memberID))
	}
	for _, vt := range CourseViewTags(scope.CourseID) {
		assert.Contains(t, tags, vt)
	}
}
