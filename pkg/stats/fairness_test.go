package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/shiftassign/pkg/model"
)

func testID(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
}

func testShift(n int, start time.Time, hours float64) model.Shift {
	return model.Shift{
		ID:        testID(100 + n),
		StartTime: start,
		EndTime:   start.Add(time.Duration(hours * float64(time.Hour))),
	}
}

func TestSummarize(t *testing.T) {
	base := time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)
	s1 := testShift(1, base, 8)
	s2 := testShift(2, base.AddDate(0, 0, 1), 7.5)
	s3 := testShift(3, base.AddDate(0, 0, 2), 8)
	s4 := testShift(4, base.AddDate(0, 0, 3), 1.0/3)

	e1 := model.Employee{ID: testID(1), FullName: "张三"}
	e2 := model.Employee{ID: testID(2), Email: "lisi@example.com"}
	e3 := model.Employee{ID: testID(3), FullName: "王五"}

	shifts := map[uuid.UUID]model.Shift{s1.ID: s1, s2.ID: s2, s3.ID: s3, s4.ID: s4}
	employees := map[uuid.UUID]model.Employee{e1.ID: e1, e2.ID: e2, e3.ID: e3}

	unknown := testID(99)
	recs := []Recommendation{
		{ShiftID: s1.ID, EmployeeID: &e2.ID},
		{ShiftID: s2.ID, EmployeeID: &e2.ID},
		{ShiftID: s3.ID, EmployeeID: &e3.ID},
		{ShiftID: s4.ID, EmployeeID: &e1.ID},
		{ShiftID: s4.ID, EmployeeID: nil},         // 无推荐
		{ShiftID: testID(98), EmployeeID: &e1.ID}, // 未知班次
		{ShiftID: s1.ID, EmployeeID: &unknown},    // 未知员工
	}

	loads := Summarize(recs, shifts, employees)
	require.Len(t, loads, 3)

	assert.Equal(t, e2.ID, loads[0].EmployeeID)
	assert.Equal(t, "lisi@example.com", loads[0].EmployeeName)
	assert.Equal(t, 2, loads[0].RecommendedShiftCount)
	assert.Equal(t, 15.5, loads[0].RecommendedHours)

	// 同为 1 个班次时按 ID 升序
	assert.Equal(t, e1.ID, loads[1].EmployeeID)
	assert.Equal(t, 0.33, loads[1].RecommendedHours)
	assert.Equal(t, e3.ID, loads[2].EmployeeID)
	assert.Equal(t, 8.0, loads[2].RecommendedHours)
}

func TestSummarize_Empty(t *testing.T) {
	loads := Summarize(nil, nil, nil)
	assert.NotNil(t, loads)
	assert.Empty(t, loads)
}

func TestFairnessAnalyzer_Gini(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"空列表", nil, 0},
		{"全部为 0", []float64{0, 0, 0}, 0},
		{"完全平均", []float64{8, 8, 8, 8}, 0},
		{"一人承担全部", []float64{0, 0, 0, 40}, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, analyzer.calculateGini(tt.values), 1e-9)
		})
	}
}

func TestFairnessAnalyzer_Analyze(t *testing.T) {
	analyzer := NewFairnessAnalyzer()
	loads := []EmployeeLoad{
		{EmployeeID: testID(1), RecommendedShiftCount: 2, RecommendedHours: 16},
		{EmployeeID: testID(2), RecommendedShiftCount: 1, RecommendedHours: 8},
	}

	// 池中 4 名员工，另外 2 人未被推荐
	m := analyzer.Analyze(loads, 4)
	assert.Equal(t, 6.0, m.AvgHours)
	assert.Equal(t, 16.0, m.MaxHours)
	assert.Equal(t, 0.0, m.MinHours)
	assert.Greater(t, m.HoursGini, 0.0)
	assert.Less(t, m.HoursGini, 1.0)

	assert.Equal(t, FairnessMetrics{}, analyzer.Analyze(nil, 0))
}
