package aggregate

import (
	"sort"
)

// MemberResult is one (member, content) outcome row from the batched
// course-wide grading query.
type MemberResult struct {
	CourseMemberID string `json:"course_member_id"`
	ContentResult
}

// MemberGradings is one member's rollup tree.
type MemberGradings struct {
	CourseMemberID string `json:"course_member_id"`
	Nodes          []Node `json:"nodes"`
}

// BatchRollup computes every enrolled member's rollup from one flat result
// set. Contents absent for a member contribute zero submissions and grade
// 0, so all contents in the course must be present in `contents` even when
// no member touched them. Output is ordered by member id.
func BatchRollup(contents []ContentResult, results []MemberResult, maxDepth int) []MemberGradings {
	byMember := make(map[string]map[string]ContentResult)
	for _, r := range results {
		m, ok := byMember[r.CourseMemberID]
		if !ok {
			m = make(map[string]ContentResult)
			byMember[r.CourseMemberID] = m
		}
		m[r.CourseContentID] = r.ContentResult
	}

	memberIDs := make([]string, 0, len(byMember))
	for id := range byMember {
		memberIDs = append(memberIDs, id)
	}
	sort.Strings(memberIDs)

	out := make([]MemberGradings, 0, len(memberIDs))
	for _, id := range memberIDs {
		rows := make([]ContentResult, 0, len(contents))
		for _, c := range contents {
			if r, ok := byMember[id][c.CourseContentID]; ok {
				rows = append(rows, r)
			} else {
				// The member never touched this content; it still counts
				// toward max_assignments with grade 0.
				rows = append(rows, ContentResult{
					CourseContentID: c.CourseContentID,
					Path:            c.Path,
					ContentTypeID:   c.ContentTypeID,
					ContentTypeSlug: c.ContentTypeSlug,
				})
			}
		}
		out = append(out, MemberGradings{CourseMemberID: id, Nodes: Rollup(rows, maxDepth)})
	}
	return out
}
