package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "computor-backend/pkg/errors"
)

func TestBuildWhere(t *testing.T) {
	allowed := map[string]string{
		"course_id": "course_id",
		"archived":  "archived",
		"path":      "path",
	}

	clause, args, err := buildWhere(map[string]any{
		"course_id": "c1",
		"archived":  false,
	}, allowed)
	require.NoError(t, err)
	assert.Equal(t, " WHERE archived = $1 AND course_id = $2", clause)
	assert.Equal(t, []any{false, "c1"}, args)
}

func TestBuildWhere_DeterministicOrder(t *testing.T) {
	allowed := map[string]string{"a": "a", "b": "b", "c": "c"}
	filters := map[string]any{"c": 3, "a": 1, "b": 2}

	first, _, err := buildWhere(filters, allowed)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, _, err := buildWhere(filters, allowed)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBuildWhere_NilIsNullCheck(t *testing.T) {
	allowed := map[string]string{"parent_id": "parent_id"}

	clause, args, err := buildWhere(map[string]any{"parent_id": nil}, allowed)
	require.NoError(t, err)
	assert.Equal(t, " WHERE parent_id IS NULL", clause)
	assert.Empty(t, args)
}

func TestBuildWhere_RejectsUnknownColumn(t *testing.T) {
	_, _, err := buildWhere(map[string]any{"injected": "x"}, map[string]string{"ok": "ok"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestBuildWhere_Empty(t *testing.T) {
	clause, args, err := buildWhere(nil, map[string]string{"ok": "ok"})
	require.NoError(t, err)
	assert.Empty(t, clause)
	assert.Nil(t, args)
}
