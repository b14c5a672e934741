package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

func TestGetLibrary_CoversAllCodes(t *testing.T) {
	codes := []string{
		string(constraint.ReasonUnavailable),
		string(constraint.ReasonTimeOffOverlap),
		string(constraint.ReasonOverlappingShift),
		string(constraint.ReasonMaxHoursDay),
		string(constraint.ReasonMaxHoursWeek),
		string(constraint.ReasonMinRest),
		string(constraint.ReasonSkillMismatch),
		string(constraint.ReasonOpenShiftParticipation),
		string(constraint.ReasonOpenShiftAutoAssignDeny),
		string(constraint.ReasonShiftNotFound),
		string(constraint.ReasonShiftOutsideWeek),
		string(constraint.ReasonEmployeeNotFound),
		string(constraint.ReasonShiftAlreadyAssigned),
		string(constraint.ReasonNoEligibleCandidates),
		string(constraint.FlagPreferNot),
		string(constraint.FlagSecondarySkill),
		string(constraint.NoteOpenShiftRecommendOnly),
	}

	lib := GetLibrary()
	assert.Len(t, lib, len(codes))

	seen := make(map[string]bool)
	for _, d := range lib {
		assert.False(t, seen[d.Code], "重复的原因码 %s", d.Code)
		seen[d.Code] = true
		assert.NotEmpty(t, d.DisplayName, d.Code)
		assert.NotEmpty(t, d.Description, d.Code)
	}
	for _, c := range codes {
		assert.True(t, seen[c], "缺少原因码 %s", c)
	}
}

func TestGetByCategory(t *testing.T) {
	hard := GetByCategory(constraint.CategoryHard)
	assert.Len(t, hard, 9)
	for i := 1; i < len(hard); i++ {
		assert.Less(t, hard[i-1].Code, hard[i].Code)
	}

	assert.Len(t, GetByCategory(constraint.CategoryRequest), 5)
	assert.Len(t, GetByCategory(constraint.CategoryFlag), 3)
}

func TestLookup(t *testing.T) {
	d, ok := Lookup("MIN_REST_HOURS_VIOLATION")
	require.True(t, ok)
	require.Len(t, d.Params, 1)
	assert.Equal(t, "min_rest_hours", d.Params[0].Name)

	_, ok = Lookup("UNKNOWN_CODE")
	assert.False(t, ok)
}
