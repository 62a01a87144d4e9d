// Package aggregate holds the pure transforms over query results:
// hierarchical tree-path rollups and per-member grading stats. Nothing in
// here touches the cache or the store, so every function is deterministic
// for identical input.
package aggregate

import (
	"sort"
	"time"

	"computor-backend/internal/domain"
)

// ContentResult is one submittable course-content with the member's latest
// outcome on it. Unsubmitted contents carry Submitted=false and nil grade;
// submitted-but-ungraded contents carry a nil grade with a set timestamp.
type ContentResult struct {
	CourseContentID string                `json:"course_content_id"`
	Path            domain.Path           `json:"path"`
	ContentTypeID   string                `json:"content_type_id"`
	ContentTypeSlug string                `json:"content_type_slug"`
	Submitted       bool                  `json:"submitted"`
	SubmittedAt     *time.Time            `json:"submitted_at,omitempty"`
	Grade           *float64              `json:"grade,omitempty"`
	Status          *domain.GradingStatus `json:"status,omitempty"`
}

// TypeStats is the per-content-type slice of a rollup node.
type TypeStats struct {
	ContentTypeID      string     `json:"content_type_id"`
	ContentTypeSlug    string     `json:"content_type_slug"`
	MaxAssignments     int        `json:"max_assignments"`
	Submitted          int        `json:"submitted_assignments"`
	ProgressPercentage float64    `json:"progress_percentage"`
	LatestSubmissionAt *time.Time `json:"latest_submission_at,omitempty"`
}

// Node is one rollup entry, keyed by a path prefix. The empty path is the
// course root covering every submittable content.
type Node struct {
	Path               string      `json:"path"`
	MaxAssignments     int         `json:"max_assignments"`
	Submitted          int         `json:"submitted_assignments"`
	ProgressPercentage float64     `json:"progress_percentage"`
	LatestSubmissionAt *time.Time  `json:"latest_submission_at,omitempty"`
	GradedAssignments  int         `json:"graded_assignments"`
	AverageGrading     float64     `json:"average_grading"`
	AggregatedStatus   string      `json:"aggregated_grading_status"`
	ContentTypes       []TypeStats `json:"content_types"`
}

// Rollup folds per-content results into one node per path prefix, root
// included, up to maxDepth labels (0 means unbounded). Output order is
// ascending by path, so identical input yields identical output.
func Rollup(results []ContentResult, maxDepth int) []Node {
	buckets := make(map[string][]ContentResult)
	for _, r := range results {
		buckets[""] = append(buckets[""], r)
		segs := r.Path.Segments()
		limit := len(segs) - 1
		if maxDepth > 0 && limit > maxDepth {
			limit = maxDepth
		}
		for depth := 1; depth <= limit; depth++ {
			prefix := r.Path.Prefix(depth).String()
			buckets[prefix] = append(buckets[prefix], r)
		}
	}

	paths := make([]string, 0, len(buckets))
	for p := range buckets {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	nodes := make([]Node, 0, len(paths))
	for _, p := range paths {
		nodes = append(nodes, fold(p, buckets[p]))
	}
	return nodes
}

func fold(path string, results []ContentResult) Node {
	n := Node{Path: path, MaxAssignments: len(results)}

	var gradeSum float64
	statuses := make([]domain.GradingStatus, 0, len(results))
	types := make(map[string]*TypeStats)
	var typeOrder []string

	for _, r := range results {
		ts, ok := types[r.ContentTypeID]
		if !ok {
			ts = &TypeStats{ContentTypeID: r.ContentTypeID, ContentTypeSlug: r.ContentTypeSlug}
			types[r.ContentTypeID] = ts
			typeOrder = append(typeOrder, r.ContentTypeID)
		}
		ts.MaxAssignments++

		if r.Submitted {
			n.Submitted++
			ts.Submitted++
			n.LatestSubmissionAt = laterOf(n.LatestSubmissionAt, r.SubmittedAt)
			ts.LatestSubmissionAt = laterOf(ts.LatestSubmissionAt, r.SubmittedAt)
		}
		if r.Grade != nil {
			n.GradedAssignments++
			gradeSum += *r.Grade
		}
		// Unsubmitted or ungraded contents reduce as not_reviewed.
		if r.Status != nil {
			statuses = append(statuses, *r.Status)
		} else {
			statuses = append(statuses, domain.GradingStatusNotReviewed)
		}
	}

	if n.MaxAssignments > 0 {
		n.ProgressPercentage = 100 * float64(n.Submitted) / float64(n.MaxAssignments)
		// Ungraded and unsubmitted contents contribute grade 0.
		n.AverageGrading = gradeSum / float64(n.MaxAssignments)
	}
	n.AggregatedStatus = domain.ReduceStatuses(statuses)

	sort.Strings(typeOrder)
	for _, id := range typeOrder {
		ts := types[id]
		if ts.MaxAssignments > 0 {
			ts.ProgressPercentage = 100 * float64(ts.Submitted) / float64(ts.MaxAssignments)
		}
		n.ContentTypes = append(n.ContentTypes, *ts)
	}
	return n
}

// ReduceResults is the unit-status back-fill: the reduction of the latest
// statuses of the given submittable contents, unsubmitted ones counting as
// not_reviewed. Empty input yields "none".
func ReduceResults(results []ContentResult) string {
	statuses := make([]domain.GradingStatus, 0, len(results))
	for _, r := range results {
		if r.Status != nil {
			statuses = append(statuses, *r.Status)
		} else {
			statuses = append(statuses, domain.GradingStatusNotReviewed)
		}
	}
	return domain.ReduceStatuses(statuses)
}

func laterOf(a, b *time.Time) *time.Time {
	if b == nil {
		return a
	}
	if a == nil || b.After(*a) {
		t := *b
		return &t
	}
	return a
}
