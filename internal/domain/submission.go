package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionGroup is the per-assignment group a submission belongs to.
// Groups are course-scoped for life; course_id never changes after creation.
type SubmissionGroup struct {
	ID              uuid.UUID   `json:"id"`
	CourseID        uuid.UUID   `json:"course_id"`
	CourseContentID uuid.UUID   `json:"course_content_id"`
	MaxGroupSize    int         `json:"max_group_size"`
	MemberIDs       []uuid.UUID `json:"member_ids,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// SubmissionArtifact is one uploaded submission. Immutable once uploaded.
type SubmissionArtifact struct {
	ID                uuid.UUID `json:"id"`
	SubmissionGroupID uuid.UUID `json:"submission_group_id"`
	UploaderID        uuid.UUID `json:"uploader_id"`
	Submit            bool      `json:"submit"`
	ContentHash       string    `json:"content_hash"`
	UploadedAt        time.Time `json:"uploaded_at"`
}

// SubmissionGrade is one grading event on an artifact. Append-only;
// the latest row per group wins.
type SubmissionGrade struct {
	ID                   uuid.UUID     `json:"id"`
	SubmissionArtifactID uuid.UUID     `json:"submission_artifact_id"`
	GraderCourseMemberID uuid.UUID     `json:"grader_course_member_id"`
	Grade                float64       `json:"grade"`
	Status               GradingStatus `json:"status"`
	Feedback             *string       `json:"feedback,omitempty"`
	GradedAt             time.Time     `json:"graded_at"`
}
