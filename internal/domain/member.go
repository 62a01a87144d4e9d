package domain

import (
	"time"

	"github.com/google/uuid"
)

// Course role identifiers as stored in course_member.course_role_id.
const (
	RoleStudent    = "_student"
	RoleTutor      = "_tutor"
	RoleLecturer   = "_lecturer"
	RoleMaintainer = "_maintainer"
)

// User is the platform account a course member belongs to.
type User struct {
	ID         uuid.UUID  `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	GivenName  string     `json:"given_name"`
	FamilyName string     `json:"family_name"`
	CreatedAt  time.Time  `json:"created_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// CourseMember is a user's membership in one course under one role.
type CourseMember struct {
	ID           uuid.UUID `json:"id"`
	CourseID     uuid.UUID `json:"course_id"`
	UserID       uuid.UUID `json:"user_id"`
	CourseRoleID string    `json:"course_role_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsStudent reports whether the member holds the student role.
func (m *CourseMember) IsStudent() bool { return m.CourseRoleID == RoleStudent }
