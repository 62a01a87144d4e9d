package views

import (
	"time"

	"github.com/google/uuid"

	"computor-backend/internal/aggregate"
)

// DeploymentInfo is the deployment slice of a content projection.
type DeploymentInfo struct {
	Status            string  `json:"status"`
	VersionTag        *string `json:"version_tag,omitempty"`
	ExampleIdentifier *string `json:"example_identifier,omitempty"`
}

// GroupInfo is the reader's submission group on one content.
type GroupInfo struct {
	ID           uuid.UUID `json:"id"`
	MaxGroupSize int       `json:"max_group_size"`
}

// ResultInfo is the latest grading outcome of the reader's group.
type ResultInfo struct {
	SubmissionArtifactID uuid.UUID `json:"submission_artifact_id"`
	Grade                float64   `json:"grade"`
	Status               string    `json:"status"`
	GradedAt             time.Time `json:"graded_at"`
}

// CourseContentView is the per-content projection returned by the student
// and tutor views. Field names, status strings, the [0,1] grade range, and
// dotted tree paths are part of the stable DTO contract.
type CourseContentView struct {
	ID                 uuid.UUID       `json:"id"`
	CourseID           uuid.UUID       `json:"course_id"`
	Path               string          `json:"path"`
	Title              string          `json:"title"`
	Position           float64         `json:"position"`
	MaxSubmissions     *int            `json:"max_submissions,omitempty"`
	ContentTypeID      uuid.UUID       `json:"course_content_type_id"`
	ContentTypeSlug    string          `json:"content_type_slug"`
	Submittable        bool            `json:"submittable"`
	Deployment         *DeploymentInfo `json:"deployment,omitempty"`
	SubmissionGroup    *GroupInfo      `json:"submission_group,omitempty"`
	LatestResult       *ResultInfo     `json:"latest_result,omitempty"`
	SubmissionCount    int             `json:"submission_count"`
	ResultCount        int             `json:"result_count"`
	GradingStatus      string          `json:"grading_status"`
	UnreadMessageCount int             `json:"unread_message_count"`
	IsLatestUnreviewed bool            `json:"is_latest_unreviewed"`
}

// ContentStats is one content row of the lecturer course overview.
type ContentStats struct {
	CourseContentID uuid.UUID      `json:"course_content_id"`
	Path            string         `json:"path"`
	Title           string         `json:"title"`
	Submittable     bool           `json:"submittable"`
	GroupCount      int            `json:"group_count"`
	SubmittedGroups int            `json:"submitted_groups"`
	GradedGroups    int            `json:"graded_groups"`
	StatusCounts    map[string]int `json:"status_counts"`
}

// CourseOverview is the lecturer projection over one course.
type CourseOverview struct {
	CourseID uuid.UUID      `json:"course_id"`
	Contents []ContentStats `json:"contents"`
}

// MemberGradings is one member's hierarchical grading dashboard.
type MemberGradings struct {
	CourseMemberID uuid.UUID        `json:"course_member_id"`
	CourseID       uuid.UUID        `json:"course_id"`
	Nodes          []aggregate.Node `json:"nodes"`
}

// CourseGradings is the batched dashboard of every student in a course.
type CourseGradings struct {
	CourseID uuid.UUID        `json:"course_id"`
	Members  []MemberGradings `json:"members"`
}
