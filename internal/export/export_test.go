package export

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/paiban/shiftassign/pkg/assign"
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
	"github.com/paiban/shiftassign/pkg/scheduler/scoring"
	"github.com/paiban/shiftassign/pkg/stats"
)

func TestPreview(t *testing.T) {
	shiftA := uuid.MustParse("00000000-0000-0000-0000-000000001001")
	shiftB := uuid.MustParse("00000000-0000-0000-0000-000000001002")
	emp := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	score := 82.5

	preview := &assign.Preview{
		WeekStart: "2026-01-12",
		ShiftSuggestions: []assign.ShiftSuggestion{
			{
				ShiftID:               shiftA,
				RecommendedEmployeeID: &emp,
				RecommendedScore:      &score,
				Candidates:            []scoring.CandidateScore{{EmployeeID: emp, EmployeeName: "张三", TotalScore: score}},
				Notes:                 []constraint.Note{constraint.NoteOpenShiftRecommendOnly},
			},
			{ShiftID: shiftB},
		},
		UnfilledShifts: []assign.UnfilledShift{
			{ShiftID: shiftB, Reasons: []constraint.ReasonCode{constraint.ReasonNoEligibleCandidates}},
		},
		FairnessSummary: []stats.EmployeeLoad{
			{EmployeeID: emp, EmployeeName: "张三", RecommendedShiftCount: 1, RecommendedHours: 8},
		},
	}

	buf, filename, err := Preview(preview)
	require.NoError(t, err)
	assert.Equal(t, "排班预览_2026-01-12.xlsx", filename)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSuggestions, SheetUnfilled, SheetFairness}, f.GetSheetList())

	rows, err := f.GetRows(SheetSuggestions)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "班次ID", rows[0][0])
	assert.Equal(t, shiftA.String(), rows[1][0])
	assert.Equal(t, "张三", rows[1][1])
	assert.Equal(t, "OPEN_SHIFT_RECOMMEND_ONLY", rows[1][5])
	assert.Equal(t, "-", rows[2][1])

	rows, err = f.GetRows(SheetUnfilled)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "NO_ELIGIBLE_CANDIDATES", rows[1][1])

	rows, err = f.GetRows(SheetFairness)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "张三", rows[1][1])
	assert.Equal(t, "8", rows[1][3])
}
