package aggregate

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"computor-backend/internal/domain"
)

func statusPtr(s domain.GradingStatus) *domain.GradingStatus { return &s }
func floatPtr(f float64) *float64                            { return &f }
func timePtr(t time.Time) *time.Time                         { return &t }

func nodeByPath(t *testing.T, nodes []Node, path string) Node {
	t.Helper()
	for _, n := range nodes {
		if n.Path == path {
			return n
		}
	}
	t.Fatalf("no node for path %q", path)
	return Node{}
}

// Four assignments under two weeks; only w1.a has a submitted, graded
// result. The week nodes and the course root must each report the correct
// totals.
func twoWeekResults() []ContentResult {
	submittedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []ContentResult{
		{
			CourseContentID: "c1", Path: "w1.a",
			ContentTypeID: "t1", ContentTypeSlug: "assignment",
			Submitted: true, SubmittedAt: timePtr(submittedAt),
			Grade: floatPtr(1.0), Status: statusPtr(domain.GradingStatusCorrected),
		},
		{CourseContentID: "c2", Path: "w1.b", ContentTypeID: "t1", ContentTypeSlug: "assignment"},
		{CourseContentID: "c3", Path: "w2.a", ContentTypeID: "t1", ContentTypeSlug: "assignment"},
		{CourseContentID: "c4", Path: "w2.b", ContentTypeID: "t1", ContentTypeSlug: "assignment"},
	}
}

func TestRollup_TwoWeekCourse(t *testing.T) {
	nodes := Rollup(twoWeekResults(), 0)

	// Root plus one node per week; leaf paths are not nodes of their own.
	require.Len(t, nodes, 3)
	assert.Equal(t, []string{"", "w1", "w2"}, []string{nodes[0].Path, nodes[1].Path, nodes[2].Path})

	root := nodeByPath(t, nodes, "")
	assert.Equal(t, 4, root.MaxAssignments)
	assert.Equal(t, 1, root.Submitted)
	assert.Equal(t, 25.0, root.ProgressPercentage)
	assert.Equal(t, 1, root.GradedAssignments)
	assert.Equal(t, 0.25, root.AverageGrading)
	assert.Equal(t, "not_reviewed", root.AggregatedStatus)
	require.NotNil(t, root.LatestSubmissionAt)

	w1 := nodeByPath(t, nodes, "w1")
	assert.Equal(t, 2, w1.MaxAssignments)
	assert.Equal(t, 1, w1.Submitted)
	assert.Equal(t, 50.0, w1.ProgressPercentage)
	assert.Equal(t, 0.5, w1.AverageGrading)
	assert.Equal(t, "not_reviewed", w1.AggregatedStatus)

	w2 := nodeByPath(t, nodes, "w2")
	assert.Equal(t, 2, w2.MaxAssignments)
	assert.Equal(t, 0, w2.Submitted)
	assert.Equal(t, 0.0, w2.AverageGrading)
	assert.Equal(t, "not_reviewed", w2.AggregatedStatus)
	assert.Nil(t, w2.LatestSubmissionAt)
}

func TestRollup_AllCorrected(t *testing.T) {
	results := []ContentResult{
		{
			CourseContentID: "c1", Path: "w1.a", ContentTypeID: "t1", ContentTypeSlug: "assignment",
			Submitted: true, Grade: floatPtr(0.8), Status: statusPtr(domain.GradingStatusCorrected),
		},
		{
			CourseContentID: "c2", Path: "w1.b", ContentTypeID: "t1", ContentTypeSlug: "assignment",
			Submitted: true, Grade: floatPtr(0.6), Status: statusPtr(domain.GradingStatusCorrected),
		},
	}

	nodes := Rollup(results, 0)
	w1 := nodeByPath(t, nodes, "w1")
	assert.Equal(t, "corrected", w1.AggregatedStatus)
	assert.Equal(t, 100.0, w1.ProgressPercentage)
	assert.InDelta(t, 0.7, w1.AverageGrading, 1e-9)
}

func TestRollup_CorrectionNecessaryDominates(t *testing.T) {
	results := []ContentResult{
		{
			CourseContentID: "c1", Path: "w1.a", ContentTypeID: "t1",
			Submitted: true, Status: statusPtr(domain.GradingStatusCorrected),
		},
		{
			CourseContentID: "c2", Path: "w1.b", ContentTypeID: "t1",
			Submitted: true, Status: statusPtr(domain.GradingStatusCorrectionNecessary),
		},
	}

	root := nodeByPath(t, Rollup(results, 0), "")
	assert.Equal(t, "correction_necessary", root.AggregatedStatus)
}

func TestRollup_EmptyInput(t *testing.T) {
	assert.Empty(t, Rollup(nil, 0))
}

func TestRollup_MaxDepthCapsIntermediateNodes(t *testing.T) {
	results := []ContentResult{
		{CourseContentID: "c1", Path: "w1.u1.a", ContentTypeID: "t1"},
		{CourseContentID: "c2", Path: "w1.u2.b", ContentTypeID: "t1"},
	}

	unbounded := Rollup(results, 0)
	assert.Len(t, unbounded, 4) // "", w1, w1.u1, w1.u2

	capped := Rollup(results, 1)
	assert.Len(t, capped, 2) // "", w1
}

func TestRollup_LatestSubmissionIsMax(t *testing.T) {
	early := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	late := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	results := []ContentResult{
		{CourseContentID: "c1", Path: "w1.a", ContentTypeID: "t1", Submitted: true, SubmittedAt: timePtr(late)},
		{CourseContentID: "c2", Path: "w1.b", ContentTypeID: "t1", Submitted: true, SubmittedAt: timePtr(early)},
	}

	root := nodeByPath(t, Rollup(results, 0), "")
	require.NotNil(t, root.LatestSubmissionAt)
	assert.True(t, root.LatestSubmissionAt.Equal(late))
}

func TestRollup_PerTypeBreakdown(t *testing.T) {
	results := []ContentResult{
		{CourseContentID: "c1", Path: "w1.a", ContentTypeID: "t1", ContentTypeSlug: "assignment", Submitted: true},
		{CourseContentID: "c2", Path: "w1.b", ContentTypeID: "t2", ContentTypeSlug: "quiz"},
		{CourseContentID: "c3", Path: "w2.a", ContentTypeID: "t2", ContentTypeSlug: "quiz", Submitted: true},
	}

	root := nodeByPath(t, Rollup(results, 0), "")
	require.Len(t, root.ContentTypes, 2)

	assignment, quiz := root.ContentTypes[0], root.ContentTypes[1]
	assert.Equal(t, "assignment", assignment.ContentTypeSlug)
	assert.Equal(t, 1, assignment.MaxAssignments)
	assert.Equal(t, 1, assignment.Submitted)
	assert.Equal(t, "quiz", quiz.ContentTypeSlug)
	assert.Equal(t, 2, quiz.MaxAssignments)
	assert.Equal(t, 1, quiz.Submitted)
	assert.Equal(t, 50.0, quiz.ProgressPercentage)
}

func TestRollup_Deterministic(t *testing.T) {
	first := Rollup(twoWeekResults(), 0)
	for i := 0; i < 10; i++ {
		assert.True(t, reflect.DeepEqual(first, Rollup(twoWeekResults(), 0)))
	}
}

func TestReduceResults(t *testing.T) {
	assert.Equal(t, "none", ReduceResults(nil))

	results := []ContentResult{
		{Status: statusPtr(domain.GradingStatusCorrected)},
		{}, // unsubmitted counts as not_reviewed
	}
	assert.Equal(t, "not_reviewed", ReduceResults(results))

	assert.Equal(t, "corrected", ReduceResults([]ContentResult{
		{Status: statusPtr(domain.GradingStatusCorrected)},
	}))
}
