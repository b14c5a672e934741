package builtin

import (
	"github.com/paiban/shiftassign/pkg/model"
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

// AvailabilityCheck 可用性检查
// 不可用即拒绝；"尽量不要"只打软标记
type AvailabilityCheck struct {
	*BaseCheck
}

// NewAvailabilityCheck 创建可用性检查
func NewAvailabilityCheck() *AvailabilityCheck {
	return &AvailabilityCheck{
		BaseCheck: NewBaseCheck("availability", constraint.ReasonUnavailable),
	}
}

// Evaluate 评估
func (c *AvailabilityCheck) Evaluate(f *constraint.Facts) constraint.Outcome {
	switch f.AvailabilityState() {
	case model.AvailabilityUnavailable:
		return constraint.Reject(constraint.ReasonUnavailable)
	case model.AvailabilityPreferNot:
		return constraint.Outcome{Flags: []constraint.Flag{constraint.FlagPreferNot}}
	}
	return constraint.Pass()
}
