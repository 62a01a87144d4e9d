// Package domain holds the persistent entities of the course-delivery
// platform and the value objects shared by the cache and view layers.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the root of the ownership hierarchy.
type Organization struct {
	ID         uuid.UUID  `json:"id"`
	Path       Path       `json:"path"`
	Title      string     `json:"title"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// CourseFamily groups courses under an organization.
type CourseFamily struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Path           Path      `json:"path"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Course is one delivered instance of a course family.
type Course struct {
	ID             uuid.UUID  `json:"id"`
	CourseFamilyID uuid.UUID  `json:"course_family_id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Path           Path       `json:"path"`
	Title          string     `json:"title"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
}
