package constraint

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/paiban/shiftassign/pkg/model"
)

// 2026-01-14 为周三
var wed = time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)

func shiftAt(day time.Time, startHour, hours int) model.Shift {
	start := day.Add(time.Duration(startHour) * time.Hour)
	return model.Shift{
		ID:        uuid.New(),
		StartTime: start,
		EndTime:   start.Add(time.Duration(hours) * time.Hour),
		Status:    model.ShiftAssigned,
	}
}

func TestFacts_AvailabilityState(t *testing.T) {
	target := shiftAt(wed, 8, 8)
	tests := []struct {
		name    string
		entries []model.Availability
		want    model.AvailabilityState
	}{
		{"无登记视为可用", nil, model.AvailabilityAvailable},
		{"当日不可用", []model.Availability{{Date: wed, IsAvailable: false}}, model.AvailabilityUnavailable},
		{"尽量不要", []model.Availability{{Date: wed, IsAvailable: true, Reason: "Prefer not, family"}}, model.AvailabilityPreferNot},
		{"下划线写法", []model.Availability{{Date: wed, IsAvailable: true, Reason: "PREFER_NOT"}}, model.AvailabilityPreferNot},
		{"不可用优先于尽量不要", []model.Availability{
			{Date: wed, IsAvailable: true, Reason: "prefer not"},
			{Date: wed, IsAvailable: false},
		}, model.AvailabilityUnavailable},
		{"其他日期的登记不影响", []model.Availability{{Date: wed.AddDate(0, 0, 1), IsAvailable: false}}, model.AvailabilityAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Facts{Shift: target, Availability: tt.entries}
			assert.Equal(t, tt.want, f.AvailabilityState())
		})
	}
}

func TestFacts_AvailabilityState_Overnight(t *testing.T) {
	// 跨夜班次覆盖次日的登记
	target := shiftAt(wed, 22, 8)
	f := &Facts{Shift: target, Availability: []model.Availability{
		{Date: wed.AddDate(0, 0, 1), IsAvailable: false},
	}}
	assert.Equal(t, model.AvailabilityUnavailable, f.AvailabilityState())
}

func TestFacts_Hours(t *testing.T) {
	target := shiftAt(wed, 14, 6)
	f := &Facts{
		Shift: target,
		Shifts: []model.Shift{
			target,                               // 自身不计入
			shiftAt(wed, 6, 6),                   // 当日 6 小时
			shiftAt(wed.AddDate(0, 0, -1), 8, 8), // 周二
			shiftAt(wed.AddDate(0, 0, -3), 8, 8), // 上周日，不在本周
		},
	}

	assert.InDelta(t, 6.0, f.DayHours(), 1e-9)
	assert.InDelta(t, 14.0, f.WeekHours(), 1e-9)
	assert.False(t, f.HasOverlappingShift())
}

func TestFacts_HasOverlappingShift(t *testing.T) {
	target := shiftAt(wed, 8, 8)
	f := &Facts{Shift: target, Shifts: []model.Shift{shiftAt(wed, 12, 8)}}
	assert.True(t, f.HasOverlappingShift())
}

func TestFacts_HasApprovedTimeOff(t *testing.T) {
	target := shiftAt(wed, 8, 8)
	off := model.TimeOff{StartDate: wed, EndDate: wed.AddDate(0, 0, 1)}

	pending := off
	pending.Status = model.TimeOffPending
	assert.False(t, (&Facts{Shift: target, TimeOff: []model.TimeOff{pending}}).HasApprovedTimeOff())

	approved := off
	approved.Status = model.TimeOffApproved
	assert.True(t, (&Facts{Shift: target, TimeOff: []model.TimeOff{approved}}).HasApprovedTimeOff())
}

func TestFacts_RestMargin(t *testing.T) {
	target := shiftAt(wed, 8, 8)
	rule := model.DefaultContractRule(uuid.Nil)

	prev := shiftAt(wed.AddDate(0, 0, -1), 8, 8) // 间隔 16 小时
	next := shiftAt(wed, 20, 4)                  // 间隔 4 小时

	tests := []struct {
		name     string
		previous *model.Shift
		next     *model.Shift
		want     float64
	}{
		{"前后都没有班次，按 min_rest+24", nil, nil, 24},
		{"只有前一班", &prev, nil, 5},
		{"后一班间隔不足，余量为 0", &prev, &next, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Facts{Shift: target, Rule: rule, Previous: tt.previous, Next: tt.next}
			got := f.RestMargin()
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
		})
	}
}

func TestFacts_SkillLevel(t *testing.T) {
	secondary := "Cook"
	tests := []struct {
		name     string
		required string
		role     string
		history  []string
		pref     model.EmployeePreference
		want     SkillLevel
	}{
		{"班次无角色要求", "", "cashier", nil, model.EmployeePreference{}, SkillExact},
		{"角色一致（忽略大小写）", "Nurse", " nurse ", nil, model.EmployeePreference{}, SkillExact},
		{"历史上做过该角色", "nurse", "cashier", []string{"Nurse"}, model.EmployeePreference{}, SkillExact},
		{"通用角色且无历史", "nurse", "employee", nil, model.EmployeePreference{}, SkillExact},
		{"通用角色但有其他历史", "nurse", "employee", []string{"cook"}, model.EmployeePreference{}, SkillNone},
		{"第二技能匹配", "cook", "cashier", nil, model.EmployeePreference{SecondaryRoleType: &secondary}, SkillSecondary},
		{"完全不匹配", "nurse", "cashier", nil, model.EmployeePreference{}, SkillNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := shiftAt(wed, 8, 8)
			s.RoleType = tt.required
			f := &Facts{
				Shift:       s,
				Employee:    model.Employee{Role: tt.role},
				RoleHistory: tt.history,
				Preference:  tt.pref,
			}
			assert.Equal(t, tt.want, f.SkillLevel())
		})
	}
}

func TestFacts_TrailingCounts(t *testing.T) {
	target := shiftAt(wed, 8, 8)
	sat := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	f := &Facts{
		Shift: target,
		Shifts: []model.Shift{
			shiftAt(sat, 8, 8),                     // 周末
			shiftAt(sat.AddDate(0, 0, -7), 23, 8),  // 周末夜班
			shiftAt(wed.AddDate(0, 0, -2), 22, 8),  // 夜班
			shiftAt(wed.AddDate(0, 0, -29), 23, 8), // 超出 28 天
			shiftAt(wed.AddDate(0, 0, 1), 23, 8),   // 之后的班次不计
		},
	}

	weekend, night := f.TrailingCounts()
	assert.Equal(t, 2, weekend)
	assert.Equal(t, 2, night)
}
