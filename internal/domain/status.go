package domain

// GradingStatus is the reviewed state of a submission grade.
// The integer codes are the stored representation; the strings are the
// stable API values exposed by projection DTOs.
type GradingStatus int

const (
	GradingStatusNotReviewed GradingStatus = iota
	GradingStatusCorrected
	GradingStatusCorrectionNecessary
	GradingStatusImprovementPossible
)

// StatusNone is the aggregated status of an empty descendant set.
const StatusNone = "none"

// String maps the stored code to its API value. Unknown codes degrade to
// not_reviewed rather than failing the projection.
func (s GradingStatus) String() string {
	switch s {
	case GradingStatusCorrected:
		return "corrected"
	case GradingStatusCorrectionNecessary:
		return "correction_necessary"
	case GradingStatusImprovementPossible:
		return "improvement_possible"
	default:
		return "not_reviewed"
	}
}

// Valid reports whether the code is one of the four defined states.
func (s GradingStatus) Valid() bool {
	return s >= GradingStatusNotReviewed && s <= GradingStatusImprovementPossible
}

// ReduceStatuses combines descendant grading statuses into a single
// enclosing-node status:
//
//  1. any correction_necessary wins,
//  2. else any improvement_possible,
//  3. else corrected if every descendant is corrected,
//  4. else not_reviewed.
//
// An empty input yields StatusNone.
func ReduceStatuses(statuses []GradingStatus) string {
	if len(statuses) == 0 {
		return StatusNone
	}
	allCorrected := true
	anyImprovement := false
	for _, s := range statuses {
		switch s {
		case GradingStatusCorrectionNecessary:
			return "correction_necessary"
		case GradingStatusImprovementPossible:
			anyImprovement = true
			allCorrected = false
		case GradingStatusCorrected:
			// keeps allCorrected
		default:
			allCorrected = false
		}
	}
	if anyImprovement {
		return "improvement_possible"
	}
	if allCorrected {
		return "corrected"
	}
	return "not_reviewed"
}
