package builtin

import (
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

// MinRestCheck 班次间最小休息时间检查
type MinRestCheck struct {
	*BaseCheck
}

// NewMinRestCheck 创建最小休息检查
func NewMinRestCheck() *MinRestCheck {
	return &MinRestCheck{
		BaseCheck: NewBaseCheck("min_rest_between_shifts", constraint.ReasonMinRest),
	}
}

// Evaluate 评估前后相邻两个间隔
func (c *MinRestCheck) Evaluate(f *constraint.Facts) constraint.Outcome {
	before, after := f.RestGaps()
	minRest := f.Rule.MinRestHours

	if (before != nil && *before < minRest) || (after != nil && *after < minRest) {
		return constraint.Reject(constraint.ReasonMinRest)
	}
	return constraint.Pass()
}
