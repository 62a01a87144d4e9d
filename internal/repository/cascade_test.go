package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"computor-backend/internal/cache"
	"computor-backend/internal/domain"
)

// failingQuerier stands in for a store that errors on every statement.
type failingQuerier struct{ err error }

func (f failingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, f.err
}

func (f failingQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return failingRow{err: f.err}
}

func (f failingQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, f.err
}

type failingRow struct{ err error }

func (r failingRow) Scan(...any) error { return r.err }

func newScopeResolver() *scopeResolver {
	return &scopeResolver{cache: cache.New(cache.NewInMemoryBackend(), "test", zap.NewNop())}
}

// A transient store error during artifact to group to members resolution
// must surface so the surrounding write aborts instead of committing with
// a narrowed tag set.
func TestGradeCascade_ResolutionErrorPropagates(t *testing.T) {
	cascade := submissionGradeCascade{scopes: newScopeResolver()}
	g := &domain.SubmissionGrade{ID: uuid.New(), SubmissionArtifactID: uuid.New()}

	_, err := cascade.CascadeTags(context.Background(), failingQuerier{err: errors.New("connection reset")}, g)
	require.Error(t, err)
}

func TestArtifactCascade_ResolutionErrorPropagates(t *testing.T) {
	cascade := submissionArtifactCascade{scopes: newScopeResolver()}
	a := &domain.SubmissionArtifact{ID: uuid.New(), SubmissionGroupID: uuid.New()}

	_, err := cascade.CascadeTags(context.Background(), failingQuerier{err: errors.New("connection reset")}, a)
	require.Error(t, err)
}

func TestMessageCascade_GroupResolutionErrorPropagates(t *testing.T) {
	groupID := uuid.New()
	cascade := messageCascade{scopes: newScopeResolver()}
	m := &domain.Message{ID: uuid.New(), SubmissionGroupID: &groupID}

	_, err := cascade.CascadeTags(context.Background(), failingQuerier{err: errors.New("connection reset")}, m)
	require.Error(t, err)
}

// Direct-target messages need no resolution; the cascade flushes the
// target's view family without touching the store.
func TestMessageCascade_DirectTargetFlushesUserViews(t *testing.T) {
	userID := uuid.New()
	cascade := messageCascade{scopes: newScopeResolver()}

	tags, err := cascade.CascadeTags(context.Background(),
		failingQuerier{err: errors.New("must not be reached")}, &domain.Message{ID: uuid.New(), TargetUserID: &userID})
	require.NoError(t, err)
	assert.Equal(t, []string{"user:" + userID.String()}, tags)
}

func TestExampleVersionCascade_QueryErrorPropagates(t *testing.T) {
	v := &domain.ExampleVersion{ID: uuid.New(), ExampleID: uuid.New()}

	_, err := exampleVersionCascade(context.Background(), failingQuerier{err: errors.New("connection reset")}, v)
	require.Error(t, err)
}
