package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a discussion entry attached to exactly one target:
// a user, a submission group, a course content, or a course.
type Message struct {
	ID                uuid.UUID  `json:"id"`
	AuthorID          uuid.UUID  `json:"author_id"`
	TargetUserID      *uuid.UUID `json:"target_user_id,omitempty"`
	SubmissionGroupID *uuid.UUID `json:"submission_group_id,omitempty"`
	CourseContentID   *uuid.UUID `json:"course_content_id,omitempty"`
	CourseID          *uuid.UUID `json:"course_id,omitempty"`
	Title             string     `json:"title"`
	Content           string     `json:"content"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	ArchivedAt        *time.Time `json:"archived_at,omitempty"`
}

// MessageRead marks a message as seen by a reader.
type MessageRead struct {
	ID        uuid.UUID `json:"id"`
	MessageID uuid.UUID `json:"message_id"`
	ReaderID  uuid.UUID `json:"reader_id"`
	ReadAt    time.Time `json:"read_at"`
}
