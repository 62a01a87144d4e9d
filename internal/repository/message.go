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

const messageTTL = 5 * time.Minute

type messageConfig struct{}

func (messageConfig) EntityType() string { return "message" }
func (messageConfig) TTL() time.Duration { return messageTTL }

// A message carries exactly one target; the tags mirror whichever one is
// set, so projections counting unread messages for that target flush.
// The bare user tag is reserved for the user-view family and applied
// through the cascade, never stored on entity rows.
func (messageConfig) EntityTags(m *domain.Message) []string {
	tags := []string{
		"message",
		entityTag("message", m.ID),
	}
	switch {
	case m.TargetUserID != nil:
		tags = append(tags, attrTag("target_user_id", *m.TargetUserID))
	case m.SubmissionGroupID != nil:
		tags = append(tags, attrTag("submission_group_id", *m.SubmissionGroupID),
			entityTag("submission_group", *m.SubmissionGroupID))
	case m.CourseContentID != nil:
		tags = append(tags, attrTag("course_content_id", *m.CourseContentID),
			entityTag("course_content", *m.CourseContentID))
	case m.CourseID != nil:
		tags = append(tags, attrTag("course_id", *m.CourseID))
		tags = append(tags, CourseViewTags(*m.CourseID)...)
	}
	return tags
}

func (messageConfig) ListTags(filters map[string]any) []string {
	return listTags("message", filters)
}

type messageStore struct{}

var messageFilterColumns = map[string]string{
	"author_id":           "author_id",
	"target_user_id":      "target_user_id",
	"submission_group_id": "submission_group_id",
	"course_content_id":   "course_content_id",
	"course_id":           "course_id",
}

func (messageStore) ID(m *domain.Message) uuid.UUID { return m.ID }

func (messageStore) SelectByID(ctx context.Context, q postgres.Querier, id uuid.UUID) (*domain.Message, error) {
	row := q.QueryRow(ctx, `
		SELECT id, author_id, target_user_id, submission_group_id, course_content_id, course_id,
		       title, content, created_at, updated_at, archived_at
		FROM message WHERE id = $1`, id)
	return scanMessage(row)
}

func (messageStore) SelectBy(ctx context.Context, q postgres.Querier, filters map[string]any) ([]*domain.Message, error) {
	where, args, err := buildWhere(filters, messageFilterColumns)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, author_id, target_user_id, submission_group_id, course_content_id, course_id,
		       title, content, created_at, updated_at, archived_at
		FROM message`+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, postgres.MapError(err)
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, postgres.MapError(rows.Err())
}

func (messageStore) Insert(ctx context.Context, q postgres.Querier, m *domain.Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO message (id, author_id, target_user_id, submission_group_id, course_content_id, course_id, title, content)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.AuthorID, m.TargetUserID, m.SubmissionGroupID, m.CourseContentID, m.CourseID, m.Title, m.Content)
	return postgres.MapError(err)
}

// Update edits title, content, and the archive marker; the target columns
// identify the thread and never change.
func (messageStore) Update(ctx context.Context, q postgres.Querier, m *domain.Message) error {
	_, err := q.Exec(ctx, `
		UPDATE message SET title = $2, content = $3, archived_at = $4, updated_at = now()
		WHERE id = $1`, m.ID, m.Title, m.Content, m.ArchivedAt)
	return postgres.MapError(err)
}

func (messageStore) DeleteRow(ctx context.Context, q postgres.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `DELETE FROM message WHERE id = $1`, id)
	return postgres.MapError(err)
}

func scanMessage(row interface{ Scan(...any) error }) (*domain.Message, error) {
	var m domain.Message
	if err := row.Scan(&m.ID, &m.AuthorID, &m.TargetUserID, &m.SubmissionGroupID,
		&m.CourseContentID, &m.CourseID, &m.Title, &m.Content,
		&m.CreatedAt, &m.UpdatedAt, &m.ArchivedAt); err != nil {
		return nil, postgres.MapError(err)
	}
	return &m, nil
}

// messageCascade widens group-targeted messages to every member of the
// group, since their unread counters embed this message, and flushes a
// direct target's cached projections.
type messageCascade struct {
	scopes *scopeResolver
}

func (c messageCascade) CascadeTags(ctx context.Context, q postgres.Querier, m *domain.Message) ([]string, error) {
	if m.TargetUserID != nil {
		return []string{"user:" + m.TargetUserID.String()}, nil
	}
	if m.SubmissionGroupID == nil {
		return nil, nil
	}
	scope, err := c.scopes.byGroup(ctx, q, *m.SubmissionGroupID)
	if err != nil {
		return nil, err
	}
	return scopeTags(scope), nil
}

// NewMessageRepository builds the cached message repository.
func NewMessageRepository(db *postgres.Store, c *cache.Cache, logger *zap.Logger) *Repository[domain.Message] {
	return New[domain.Message](messageConfig{}, messageStore{}, db, c,
		messageCascade{scopes: &scopeResolver{cache: c}}, logger)
}

// MarkMessageRead records a read receipt and flushes the reader's unread
// counters. Duplicate receipts are tolerated.
func MarkMessageRead(ctx context.Context, db *postgres.Store, c *cache.Cache, messageID, readerID uuid.UUID) error {
	_, err := db.Pool().Exec(ctx, `
		INSERT INTO message_read (id, message_id, reader_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id, reader_id) DO NOTHING`,
		uuid.New(), messageID, readerID)
	if err != nil {
		return postgres.MapError(err)
	}
	c.InvalidateTags(ctx, "user:"+readerID.String())
	return nil
}
