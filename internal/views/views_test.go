package views

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"computor-backend/internal/cache"
	"computor-backend/internal/repository"
	"computor-backend/internal/storage/postgres"
)

func newViewCache() *cache.Cache {
	return cache.New(cache.NewInMemoryBackend(), "test", zap.NewNop())
}

// forbiddenConn is a ConnProvider for cache-hit tests: acquiring a
// connection at all is the failure.
func forbiddenConn(t *testing.T) postgres.ConnProvider {
	t.Helper()
	return func(ctx context.Context) (postgres.Querier, error) {
		t.Fatal("database connection acquired on a cache hit")
		return nil, nil
	}
}

func TestStudentView_CacheHitNeverTouchesDatabase(t *testing.T) {
	c := newViewCache()
	userID, courseID := uuid.New(), uuid.New()

	// Seed the projection the way a previous compute would have stored it.
	seeded := []CourseContentView{{ID: uuid.New(), CourseID: courseID, Title: "Week 1"}}
	viewID := cache.HashParams(map[string]any{"course_id": courseID})
	require.NoError(t, c.SetUserView(context.Background(), userID, "student_course_contents", seeded, cache.UserViewOptions{
		ViewID: viewID,
		TTL:    time.Minute,
	}))

	v := NewStudentView(c, forbiddenConn(t), nil, zap.NewNop(), 0)
	got, err := v.CourseContents(context.Background(), userID, courseID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Week 1", got[0].Title)
}

func TestStudentView_MissAcquiresConnectionLazily(t *testing.T) {
	c := newViewCache()
	connErr := errors.New("pool exhausted")
	acquired := 0
	conn := func(ctx context.Context) (postgres.Querier, error) {
		acquired++
		return nil, connErr
	}

	v := NewStudentView(c, conn, nil, zap.NewNop(), 0)
	_, err := v.CourseContents(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, connErr)
	assert.Equal(t, 1, acquired)
}

func TestStudentView_DistinctUsersDistinctEntries(t *testing.T) {
	c := newViewCache()
	alice, bob, courseID := uuid.New(), uuid.New(), uuid.New()

	viewID := cache.HashParams(map[string]any{"course_id": courseID})
	require.NoError(t, c.SetUserView(context.Background(), alice, "student_course_contents",
		[]CourseContentView{{Title: "alice's view"}}, cache.UserViewOptions{ViewID: viewID, TTL: time.Minute}))

	// Bob misses even though Alice's projection of the same course is
	// cached; his read reaches for a connection.
	connErr := errors.New("no database in this test")
	conn := func(ctx context.Context) (postgres.Querier, error) { return nil, connErr }

	v := NewStudentView(c, conn, nil, zap.NewNop(), 0)

	got, err := v.CourseContents(context.Background(), alice, courseID)
	require.NoError(t, err)
	assert.Equal(t, "alice's view", got[0].Title)

	_, err = v.CourseContents(context.Background(), bob, courseID)
	assert.ErrorIs(t, err, connErr)
}

func TestStudentView_InvalidationForcesRecompute(t *testing.T) {
	c := newViewCache()
	userID, courseID := uuid.New(), uuid.New()

	viewID := cache.HashParams(map[string]any{"course_id": courseID})
	require.NoError(t, c.SetUserView(context.Background(), userID, "student_course_contents",
		[]CourseContentView{{Title: "stale"}}, cache.UserViewOptions{
			ViewID:     viewID,
			TTL:        time.Minute,
			BucketTags: []string{"student_view:" + courseID.String()},
		}))

	// A content write in the course sweeps the bucket tag.
	c.InvalidateTags(context.Background(), "student_view:"+courseID.String())

	connErr := errors.New("recompute reached the database")
	conn := func(ctx context.Context) (postgres.Querier, error) { return nil, connErr }
	v := NewStudentView(c, conn, nil, zap.NewNop(), 0)

	_, err := v.CourseContents(context.Background(), userID, courseID)
	assert.ErrorIs(t, err, connErr)
}

func TestTutorView_CacheHitScopedByReaderAndMember(t *testing.T) {
	c := newViewCache()
	reader, courseID, memberID := uuid.New(), uuid.New(), uuid.New()

	viewID := cache.HashParams(map[string]any{
		"course_id":        courseID,
		"course_member_id": memberID,
	})
	require.NoError(t, c.SetUserView(context.Background(), reader, "tutor_course_contents",
		[]CourseContentView{{Title: "member view"}}, cache.UserViewOptions{ViewID: viewID, TTL: time.Minute}))

	v := NewTutorView(c, forbiddenConn(t), nil, zap.NewNop(), 0)
	got, err := v.CourseContents(context.Background(), reader, courseID, memberID)
	require.NoError(t, err)
	assert.Equal(t, "member view", got[0].Title)
}

func TestRelatedIDs(t *testing.T) {
	courseID, memberID := uuid.New(), uuid.New()
	ids := relatedIDs(map[string]any{
		"course_id":        courseID,
		"course_member_id": memberID,
		"archived":         false,
		"path":             "w1",
	})

	assert.Equal(t, map[string]string{
		"course_id":        courseID.String(),
		"course_member_id": memberID.String(),
	}, ids)
}

// seedLecturerOverview stores a course overview the way a previous
// compute would have, under the shared versioned key.
func seedLecturerOverview(t *testing.T, c *cache.Cache, courseID uuid.UUID) {
	t.Helper()
	key := c.ComposeVersionedKey(context.Background(),
		lecturerViewType+":"+courseID.String(),
		repository.TagLecturerView+":"+courseID.String())
	require.NoError(t, c.SetByKey(context.Background(), key,
		&CourseOverview{CourseID: courseID, Contents: []ContentStats{{Title: "Week 1"}}}, time.Minute))
}

func seedGradingGrant(t *testing.T, c *cache.Cache, courseID, readerUserID uuid.UUID) {
	t.Helper()
	key := c.EntityKey("grading_grant", courseID.String()+":"+readerUserID.String())
	require.NoError(t, c.SetWithTags(context.Background(), key, true, []string{
		"course_id:" + courseID.String(),
		"user_id:" + readerUserID.String(),
	}, time.Minute))
}

// The overview entry is shared across readers, so a warm cache must not
// let a reader without a grading role through. The role check reaches for
// a connection; failing the provider proves the check ran.
func TestLecturerOverview_SharedHitStillRequiresRole(t *testing.T) {
	c := newViewCache()
	reader, courseID := uuid.New(), uuid.New()
	seedLecturerOverview(t, c, courseID)

	connErr := errors.New("no database in this test")
	conn := func(ctx context.Context) (postgres.Querier, error) { return nil, connErr }

	v := NewLecturerView(c, conn, nil, zap.NewNop(), 0)
	_, err := v.CourseOverview(context.Background(), reader, courseID)
	assert.ErrorIs(t, err, connErr)
}

func TestLecturerOverview_GrantedReaderHitSkipsDatabase(t *testing.T) {
	c := newViewCache()
	reader, courseID := uuid.New(), uuid.New()
	seedLecturerOverview(t, c, courseID)
	seedGradingGrant(t, c, courseID, reader)

	v := NewLecturerView(c, forbiddenConn(t), nil, zap.NewNop(), 0)
	got, err := v.CourseOverview(context.Background(), reader, courseID)
	require.NoError(t, err)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "Week 1", got.Contents[0].Title)
}

func TestCourseGradings_SharedHitStillRequiresRole(t *testing.T) {
	c := newViewCache()
	reader, courseID := uuid.New(), uuid.New()

	key := c.ComposeVersionedKey(context.Background(),
		gradingListViewType+":"+courseID.String(),
		repository.TagTutorView+":"+courseID.String())
	require.NoError(t, c.SetByKey(context.Background(), key,
		&CourseGradings{CourseID: courseID}, time.Minute))

	connErr := errors.New("no database in this test")
	conn := func(ctx context.Context) (postgres.Querier, error) { return nil, connErr }

	v := NewGradingView(c, conn, nil, zap.NewNop(), 0)
	_, err := v.List(context.Background(), reader, courseID)
	assert.ErrorIs(t, err, connErr)
}

// A membership write sweeps user_id:{user}, which the cached grant is
// tagged with; the next read re-checks the role against the store.
func TestLecturerOverview_RoleRevocationDropsGrant(t *testing.T) {
	c := newViewCache()
	reader, courseID := uuid.New(), uuid.New()
	seedLecturerOverview(t, c, courseID)
	seedGradingGrant(t, c, courseID, reader)

	c.InvalidateTags(context.Background(), "user_id:"+reader.String())

	connErr := errors.New("role re-check reached the database")
	conn := func(ctx context.Context) (postgres.Querier, error) { return nil, connErr }

	v := NewLecturerView(c, conn, nil, zap.NewNop(), 0)
	_, err := v.CourseOverview(context.Background(), reader, courseID)
	assert.ErrorIs(t, err, connErr)
}

func TestDefaultTTLs(t *testing.T) {
	ttls := DefaultTTLs()
	assert.Equal(t, 300*time.Second, ttls.Student)
	assert.Equal(t, 180*time.Second, ttls.Tutor)
	assert.Equal(t, 300*time.Second, ttls.Lecturer)
	assert.Equal(t, 1800*time.Second, ttls.Grading)
}
