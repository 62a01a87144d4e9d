package views

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"computor-backend/internal/domain"
)

// captureQuerier records the last statement it was handed and returns no
// rows.
type captureQuerier struct {
	sql  string
	args []any
}

func (q *captureQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql, q.args = sql, args
	return emptyRows{}, nil
}

func (q *captureQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.sql, q.args = sql, args
	return emptyRows{}
}

func (q *captureQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

type emptyRows struct{}

func (emptyRows) Close()                                       {}
func (emptyRows) Err() error                                   { return nil }
func (emptyRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (emptyRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (emptyRows) Next() bool                                   { return false }
func (emptyRows) Scan(...any) error                            { return nil }
func (emptyRows) Values() ([]any, error)                       { return nil, nil }
func (emptyRows) RawValues() [][]byte                          { return nil }
func (emptyRows) Conn() *pgx.Conn                              { return nil }

// The course batch restricts the member CTE to students through a bound
// parameter, not an inlined role literal.
func TestCourseResultsQuery_BindsStudentRole(t *testing.T) {
	q := &captureQuerier{}
	courseID := uuid.New()

	_, err := queryCourseResults(context.Background(), q, courseID)
	require.NoError(t, err)

	assert.NotContains(t, q.sql, "'"+domain.RoleStudent+"'")
	assert.Equal(t, []any{courseID, domain.RoleStudent}, q.args)
}
