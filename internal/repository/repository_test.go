package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"computor-backend/internal/cache"
	"computor-backend/internal/storage/postgres"
	apperrors "computor-backend/pkg/errors"
)

// fakeStore satisfies Store without a database. The widget store below
// keeps rows in memory and ignores the querier, so the transaction
// handed to callbacks is inert.
type fakeStore struct{}

func (fakeStore) Pool() postgres.Querier { return failingQuerier{err: errors.New("no pool in tests")} }

func (fakeStore) WithTx(ctx context.Context, _ *uuid.UUID, fn func(tx pgx.Tx) error) error {
	return fn(stubTx{})
}

type stubTx struct{}

func (stubTx) Begin(context.Context) (pgx.Tx, error) { return stubTx{}, nil }
func (stubTx) Commit(context.Context) error          { return nil }
func (stubTx) Rollback(context.Context) error        { return nil }
func (stubTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (stubTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (stubTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (stubTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (stubTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (stubTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (stubTx) QueryRow(context.Context, string, ...any) pgx.Row        { return failingRow{} }
func (stubTx) Conn() *pgx.Conn                                         { return nil }

type widget struct {
	ID       uuid.UUID `json:"id"`
	CourseID uuid.UUID `json:"course_id"`
	Title    string    `json:"title"`
}

type widgetConfig struct{}

func (widgetConfig) EntityType() string { return "widget" }
func (widgetConfig) TTL() time.Duration { return time.Minute }

func (widgetConfig) EntityTags(w *widget) []string {
	return []string{"widget", entityTag("widget", w.ID), attrTag("course_id", w.CourseID)}
}

func (widgetConfig) ListTags(filters map[string]any) []string {
	return listTags("widget", filters)
}

type widgetStore struct{ rows map[uuid.UUID]widget }

func (s *widgetStore) ID(w *widget) uuid.UUID { return w.ID }

func (s *widgetStore) SelectByID(_ context.Context, _ postgres.Querier, id uuid.UUID) (*widget, error) {
	w, ok := s.rows[id]
	if !ok {
		return nil, apperrors.NewNotFound("widget not found")
	}
	return &w, nil
}

func (s *widgetStore) SelectBy(_ context.Context, _ postgres.Querier, _ map[string]any) ([]*widget, error) {
	out := make([]*widget, 0, len(s.rows))
	for id := range s.rows {
		w := s.rows[id]
		out = append(out, &w)
	}
	return out, nil
}

func (s *widgetStore) Insert(_ context.Context, _ postgres.Querier, w *widget) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	s.rows[w.ID] = *w
	return nil
}

func (s *widgetStore) Update(_ context.Context, _ postgres.Querier, w *widget) error {
	s.rows[w.ID] = *w
	return nil
}

func (s *widgetStore) DeleteRow(_ context.Context, _ postgres.Querier, id uuid.UUID) error {
	delete(s.rows, id)
	return nil
}

func newWidgetRepo(cascade Cascader[widget]) (*Repository[widget], *cache.Cache) {
	c := cache.New(cache.NewInMemoryBackend(), "test", zap.NewNop())
	ws := &widgetStore{rows: make(map[uuid.UUID]widget)}
	return New[widget](widgetConfig{}, ws, fakeStore{}, c, cascade, zap.NewNop()), c
}

// The post-write refresh must survive the write's own invalidation
// sweep; a created row is a warm cache entry, not a casualty of it.
func TestCreate_WarmsEntityCacheAfterInvalidation(t *testing.T) {
	repo, c := newWidgetRepo(nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, nil, &widget{CourseID: uuid.New(), Title: "wk1"})
	require.NoError(t, err)

	var got widget
	assert.True(t, c.GetByKey(ctx, c.EntityKey("widget", created.ID.String()), &got))
	assert.Equal(t, "wk1", got.Title)
}

func TestUpdate_WarmsEntityCacheAfterInvalidation(t *testing.T) {
	repo, c := newWidgetRepo(nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, nil, &widget{CourseID: uuid.New(), Title: "old"})
	require.NoError(t, err)

	_, err = repo.Update(ctx, nil, created.ID, func(w *widget) error {
		w.Title = "new"
		return nil
	})
	require.NoError(t, err)

	var got widget
	assert.True(t, c.GetByKey(ctx, c.EntityKey("widget", created.ID.String()), &got))
	assert.Equal(t, "new", got.Title)
}

func TestCreate_PurgesCoveringListCaches(t *testing.T) {
	repo, c := newWidgetRepo(nil)
	ctx := context.Background()
	courseID := uuid.New()

	filters := map[string]any{"course_id": courseID}
	listKey := c.ListKey("widget", filters)
	require.NoError(t, c.SetWithTags(ctx, listKey, []*widget{}, widgetConfig{}.ListTags(filters), time.Minute))

	_, err := repo.Create(ctx, nil, &widget{CourseID: courseID})
	require.NoError(t, err)

	var got []*widget
	assert.False(t, c.GetByKey(ctx, listKey, &got))
}

func TestCreate_CascadeFailureAbortsTheWrite(t *testing.T) {
	boom := errors.New("scope resolution failed")
	cascade := CascadeFunc[widget](func(context.Context, postgres.Querier, *widget) ([]string, error) {
		return nil, boom
	})
	repo, c := newWidgetRepo(cascade)
	ctx := context.Background()

	w := &widget{CourseID: uuid.New()}
	_, err := repo.Create(ctx, nil, w)
	require.ErrorIs(t, err, boom)

	var got widget
	assert.False(t, c.GetByKey(ctx, c.EntityKey("widget", w.ID.String()), &got))
}

func TestDelete_DropsEntityAndCoveringLists(t *testing.T) {
	repo, c := newWidgetRepo(nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, nil, &widget{CourseID: uuid.New()})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, nil, created))

	var got widget
	assert.False(t, c.GetByKey(ctx, c.EntityKey("widget", created.ID.String()), &got))
}
