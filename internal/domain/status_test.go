package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradingStatusString(t *testing.T) {
	assert.Equal(t, "not_reviewed", GradingStatusNotReviewed.String())
	assert.Equal(t, "corrected", GradingStatusCorrected.String())
	assert.Equal(t, "correction_necessary", GradingStatusCorrectionNecessary.String())
	assert.Equal(t, "improvement_possible", GradingStatusImprovementPossible.String())

	// Unknown codes degrade instead of failing.
	assert.Equal(t, "not_reviewed", GradingStatus(42).String())
}

func TestGradingStatusValid(t *testing.T) {
	assert.True(t, GradingStatusNotReviewed.Valid())
	assert.True(t, GradingStatusImprovementPossible.Valid())
	assert.False(t, GradingStatus(-1).Valid())
	assert.False(t, GradingStatus(4).Valid())
}

func TestReduceStatuses(t *testing.T) {
	tests := []struct {
		name     string
		statuses []GradingStatus
		want     string
	}{
		{"empty", nil, StatusNone},
		{"single corrected", []GradingStatus{GradingStatusCorrected}, "corrected"},
		{"all corrected", []GradingStatus{GradingStatusCorrected, GradingStatusCorrected}, "corrected"},
		{
			"correction necessary wins over everything",
			[]GradingStatus{GradingStatusCorrected, GradingStatusImprovementPossible, GradingStatusCorrectionNecessary},
			"correction_necessary",
		},
		{
			"improvement beats corrected and not reviewed",
			[]GradingStatus{GradingStatusCorrected, GradingStatusNotReviewed, GradingStatusImprovementPossible},
			"improvement_possible",
		},
		{
			"mixed corrected and not reviewed",
			[]GradingStatus{GradingStatusCorrected, GradingStatusNotReviewed},
			"not_reviewed",
		},
		{"all not reviewed", []GradingStatus{GradingStatusNotReviewed, GradingStatusNotReviewed}, "not_reviewed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReduceStatuses(tt.statuses))
		})
	}
}

// The reduction must produce a defined answer for every multiset of
// statuses, order-independently.
func TestReduceStatuses_TotalAndOrderIndependent(t *testing.T) {
	all := []GradingStatus{
		GradingStatusNotReviewed,
		GradingStatusCorrected,
		GradingStatusCorrectionNecessary,
		GradingStatusImprovementPossible,
	}
	valid := map[string]bool{
		"not_reviewed": true, "corrected": true,
		"correction_necessary": true, "improvement_possible": true,
	}
	for _, a := range all {
		for _, b := range all {
			for _, c := range all {
				forward := ReduceStatuses([]GradingStatus{a, b, c})
				reversed := ReduceStatuses([]GradingStatus{c, b, a})
				assert.True(t, valid[forward], forward)
				assert.Equal(t, forward, reversed)
			}
		}
	}
}
