package repository

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Tag vocabulary. Entity tags are "{entity_type}:{id}" plus the bare
// "{entity_type}" family tag that covers list caches. Attribute tags are
// "{column}:{value}" (e.g. course_id:{uuid}) and match the related-id tags
// the view repositories derive from their query parameters.

// View bucket tag prefixes shared between repositories and views.
const (
	TagStudentView   = "student_view"
	TagTutorView     = "tutor_view"
	TagLecturerView  = "lecturer_view"
	TagMemberGrading = "cm_grading"
)

func entityTag(entityType string, id uuid.UUID) string {
	return entityType + ":" + id.String()
}

func attrTag(column string, id uuid.UUID) string {
	return column + ":" + id.String()
}

// CourseViewTags are the bucket tags of every per-course projection.
// Writes that can change any course-scoped view invalidate all three.
func CourseViewTags(courseID uuid.UUID) []string {
	return []string{
		TagStudentView + ":" + courseID.String(),
		TagTutorView + ":" + courseID.String(),
		TagLecturerView + ":" + courseID.String(),
	}
}

// MemberGradingTag is the bucket tag of one member's grading dashboard.
func MemberGradingTag(memberID uuid.UUID) string {
	return TagMemberGrading + ":" + memberID.String()
}

// listTags derives the tag set of a filtered list query: the family tag
// plus one attribute tag per scalar filter value. Deterministic order.
func listTags(entityType string, filters map[string]any) []string {
	tags := []string{entityType}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := filters[k]
		if v == nil {
			continue
		}
		tags = append(tags, fmt.Sprintf("%s:%v", k, v))
	}
	return tags
}
