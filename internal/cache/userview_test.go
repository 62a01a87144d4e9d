package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedView(t *testing.T, c *Cache, userID uuid.UUID, viewType string, opts UserViewOptions) {
	t.Helper()
	require.NoError(t, c.SetUserView(context.Background(), userID, viewType, payload{Name: viewType}, opts))
}

func TestUserView_RoundTrip(t *testing.T) {
	c := New(NewInMemoryBackend(), "test", zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	seedView(t, c, userID, "student_course_contents", UserViewOptions{ViewID: "abc"})

	var got payload
	require.True(t, c.GetUserView(ctx, userID, "student_course_contents", "abc", &got))
	assert.Equal(t, "student_course_contents", got.Name)

	// A different view id is a different entry.
	assert.False(t, c.GetUserView(ctx, userID, "student_course_contents", "other", &got))
}

func TestInvalidateUserViews_ByUserRemovesOnlyThatUser(t *testing.T) {
	c := New(NewInMemoryBackend(), "test", zap.NewNop())
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	seedView(t, c, alice, "student_course_contents", UserViewOptions{})
	seedView(t, c, alice, "cm_gradings", UserViewOptions{})
	seedView(t, c, bob, "student_course_contents", UserViewOptions{})

	c.InvalidateUserViews(ctx, UserViewFilter{UserID: &alice})

	var got payload
	assert.False(t, c.GetUserView(ctx, alice, "student_course_contents", "", &got))
	assert.False(t, c.GetUserView(ctx, alice, "cm_gradings", "", &got))
	assert.True(t, c.GetUserView(ctx, bob, "student_course_contents", "", &got))
}

func TestInvalidateUserViews_ByUserAndViewType(t *testing.T) {
	c := New(NewInMemoryBackend(), "test", zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	seedView(t, c, userID, "student_course_contents", UserViewOptions{})
	seedView(t, c, userID, "cm_gradings", UserViewOptions{})

	c.InvalidateUserViews(ctx, UserViewFilter{UserID: &userID, ViewType: "cm_gradings"})

	var got payload
	assert.True(t, c.GetUserView(ctx, userID, "student_course_contents", "", &got))
	assert.False(t, c.GetUserView(ctx, userID, "cm_gradings", "", &got))
}

func TestInvalidateUserViews_ByRelatedEntity(t *testing.T) {
	c := New(NewInMemoryBackend(), "test", zap.NewNop())
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	courseID := uuid.New().String()

	seedView(t, c, alice, "student_course_contents", UserViewOptions{
		RelatedIDs: map[string]string{"course": courseID},
	})
	seedView(t, c, bob, "student_course_contents", UserViewOptions{
		RelatedIDs: map[string]string{"course": uuid.New().String()},
	})

	c.InvalidateUserViews(ctx, UserViewFilter{EntityType: "course", EntityID: courseID})

	var got payload
	assert.False(t, c.GetUserView(ctx, alice, "student_course_contents", "", &got))
	assert.True(t, c.GetUserView(ctx, bob, "student_course_contents", "", &got))
}

func TestInvalidateUserViews_ByViewFamily(t *testing.T) {
	c := New(NewInMemoryBackend(), "test", zap.NewNop())
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	seedView(t, c, alice, "tutor_course_contents", UserViewOptions{})
	seedView(t, c, bob, "tutor_course_contents", UserViewOptions{})
	seedView(t, c, alice, "cm_gradings", UserViewOptions{})

	c.InvalidateUserViews(ctx, UserViewFilter{ViewType: "tutor_course_contents"})

	var got payload
	assert.False(t, c.GetUserView(ctx, alice, "tutor_course_contents", "", &got))
	assert.False(t, c.GetUserView(ctx, bob, "tutor_course_contents", "", &got))
	assert.True(t, c.GetUserView(ctx, alice, "cm_gradings", "", &got))
}

func TestUserView_BucketTagsInvalidation(t *testing.T) {
	c := New(NewInMemoryBackend(), "test", zap.NewNop())
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	seedView(t, c, alice, "student_course_contents", UserViewOptions{
		BucketTags: []string{"student_view:c1"},
	})
	seedView(t, c, bob, "student_course_contents", UserViewOptions{
		BucketTags: []string{"student_view:c1"},
	})

	// A course-wide change sweeps every student projection of the course
	// regardless of user.
	c.InvalidateTags(ctx, "student_view:c1")

	var got payload
	assert.False(t, c.GetUserView(ctx, alice, "student_course_contents", "", &got))
	assert.False(t, c.GetUserView(ctx, bob, "student_course_contents", "", &got))
}

func TestUserView_TTLDefaultsWhenZero(t *testing.T) {
	backend := NewInMemoryBackend()
	c := New(backend, "test", zap.NewNop(), WithDefaultTTL(time.Minute))
	ctx := context.Background()
	userID := uuid.New()

	seedView(t, c, userID, "student_course_contents", UserViewOptions{})

	var got payload
	assert.True(t, c.GetUserView(ctx, userID, "student_course_contents", "", &got))
}
