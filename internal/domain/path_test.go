package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"computor-backend/pkg/errors"
)

func TestNewPath(t *testing.T) {
	p, err := NewPath("week1.assignment_2")
	require.NoError(t, err)
	assert.Equal(t, "week1.assignment_2", p.String())

	_, err = NewPath("")
	assert.True(t, errors.IsValidation(err))

	_, err = NewPath("week1..a")
	assert.True(t, errors.IsValidation(err))

	_, err = NewPath("week-1.a")
	assert.True(t, errors.IsValidation(err))
}

func TestPathSegmentsAndLevel(t *testing.T) {
	p := Path("a.b.c")
	assert.Equal(t, []string{"a", "b", "c"}, p.Segments())
	assert.Equal(t, 3, p.Level())

	assert.Nil(t, Path("").Segments())
	assert.Equal(t, 0, Path("").Level())
}

func TestPathPrefixAndParent(t *testing.T) {
	p := Path("a.b.c")
	assert.Equal(t, Path("a"), p.Prefix(1))
	assert.Equal(t, Path("a.b"), p.Prefix(2))
	assert.Equal(t, p, p.Prefix(3))
	assert.Equal(t, p, p.Prefix(10))

	assert.Equal(t, Path("a.b"), p.Parent())
	assert.Equal(t, Path(""), Path("a").Parent())
}

func TestPathIsDescendantOf(t *testing.T) {
	assert.True(t, Path("a.b.c").IsDescendantOf("a.b"))
	assert.True(t, Path("a.b").IsDescendantOf("a.b"))
	assert.False(t, Path("a.bc").IsDescendantOf("a.b"))
	assert.False(t, Path("a").IsDescendantOf("a.b"))
}
