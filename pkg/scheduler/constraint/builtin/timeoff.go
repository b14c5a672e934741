package builtin

import (
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

// TimeOffCheck 已批准请假检查
type TimeOffCheck struct {
	*BaseCheck
}

// NewTimeOffCheck 创建请假检查
func NewTimeOffCheck() *TimeOffCheck {
	return &TimeOffCheck{
		BaseCheck: NewBaseCheck("approved_time_off", constraint.ReasonTimeOffOverlap),
	}
}

// Evaluate 评估
func (c *TimeOffCheck) Evaluate(f *constraint.Facts) constraint.Outcome {
	if f.HasApprovedTimeOff() {
		return constraint.Reject(constraint.ReasonTimeOffOverlap)
	}
	return constraint.Pass()
}
