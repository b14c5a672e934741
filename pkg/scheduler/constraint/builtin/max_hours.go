package builtin

import (
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

// MaxHoursPerDayCheck 每日最大工时检查
// 已有工时按班次开始日窗口内的重叠小时计
type MaxHoursPerDayCheck struct {
	*BaseCheck
}

// NewMaxHoursPerDayCheck 创建每日最大工时检查
func NewMaxHoursPerDayCheck() *MaxHoursPerDayCheck {
	return &MaxHoursPerDayCheck{
		BaseCheck: NewBaseCheck("max_hours_per_day", constraint.ReasonMaxHoursDay),
	}
}

// Evaluate 评估
func (c *MaxHoursPerDayCheck) Evaluate(f *constraint.Facts) constraint.Outcome {
	if f.DayHours()+f.Shift.DurationHours() > f.Rule.MaxHoursDay {
		return constraint.Reject(constraint.ReasonMaxHoursDay)
	}
	return constraint.Pass()
}

// MaxHoursPerWeekCheck 每周最大工时检查（ISO 周）
type MaxHoursPerWeekCheck struct {
	*BaseCheck
}

// NewMaxHoursPerWeekCheck 创建每周最大工时检查
func NewMaxHoursPerWeekCheck() *MaxHoursPerWeekCheck {
	return &MaxHoursPerWeekCheck{
		BaseCheck: NewBaseCheck("max_hours_per_week", constraint.ReasonMaxHoursWeek),
	}
}

// Evaluate 评估
func (c *MaxHoursPerWeekCheck) Evaluate(f *constraint.Facts) constraint.Outcome {
	if f.WeekHours()+f.Shift.DurationHours() > f.Rule.MaxHoursWeek {
		return constraint.Reject(constraint.ReasonMaxHoursWeek)
	}
	return constraint.Pass()
}
