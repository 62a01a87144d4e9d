package domain

import (
	"time"

	"github.com/google/uuid"
)

// CourseContentType classifies contents (assignment, unit, reading, ...).
// Submittable kinds receive student submissions and contribute to rollups;
// non-submittable kinds are units whose status is reduced from descendants.
type CourseContentType struct {
	ID          uuid.UUID `json:"id"`
	CourseID    uuid.UUID `json:"course_id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Color       string    `json:"color"`
	Submittable bool      `json:"submittable"`
}

// CourseContent is one node of a course's tree-path structure.
type CourseContent struct {
	ID                  uuid.UUID  `json:"id"`
	CourseID            uuid.UUID  `json:"course_id"`
	CourseContentTypeID uuid.UUID  `json:"course_content_type_id"`
	Path                Path       `json:"path"`
	Title               string     `json:"title"`
	Position            float64    `json:"position"`
	MaxSubmissions      *int       `json:"max_submissions,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	ArchivedAt          *time.Time `json:"archived_at,omitempty"`
}

// DeploymentStatus tracks the lifecycle of a content's example deployment.
type DeploymentStatus string

const (
	DeploymentPending    DeploymentStatus = "pending"
	DeploymentDeploying  DeploymentStatus = "deploying"
	DeploymentDeployed   DeploymentStatus = "deployed"
	DeploymentFailed     DeploymentStatus = "failed"
	DeploymentUnassigned DeploymentStatus = "unassigned"
)

// CourseContentDeployment links a content to the example version served to
// students. One deployment per content is expected.
type CourseContentDeployment struct {
	ID                uuid.UUID        `json:"id"`
	CourseContentID   uuid.UUID        `json:"course_content_id"`
	ExampleVersionID  *uuid.UUID       `json:"example_version_id,omitempty"`
	ExampleIdentifier *Path            `json:"example_identifier,omitempty"`
	Status            DeploymentStatus `json:"status"`
	VersionTag        *string          `json:"version_tag,omitempty"`
	DeployedAt        *time.Time       `json:"deployed_at,omitempty"`
	UpdatedAt         time.Time        `json:"updated_at"`
}
