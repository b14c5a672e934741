package builtin

import (
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

// OverlapCheck 班次时间重叠检查
type OverlapCheck struct {
	*BaseCheck
}

// NewOverlapCheck 创建重叠检查
func NewOverlapCheck() *OverlapCheck {
	return &OverlapCheck{
		BaseCheck: NewBaseCheck("overlapping_shift", constraint.ReasonOverlappingShift),
	}
}

// Evaluate 评估
func (c *OverlapCheck) Evaluate(f *constraint.Facts) constraint.Outcome {
	if f.HasOverlappingShift() {
		return constraint.Reject(constraint.ReasonOverlappingShift)
	}
	return constraint.Pass()
}
