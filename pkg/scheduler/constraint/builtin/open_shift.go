package builtin

import (
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

// OpenShiftCheck 开放班次参与/自动分配授权检查
// 仅对 status=open 的班次生效
type OpenShiftCheck struct {
	*BaseCheck
}

// NewOpenShiftCheck 创建开放班次检查
func NewOpenShiftCheck() *OpenShiftCheck {
	return &OpenShiftCheck{
		BaseCheck: NewBaseCheck("open_shift",
			constraint.ReasonOpenShiftParticipation,
			constraint.ReasonOpenShiftAutoAssignDeny,
		),
	}
}

// Evaluate 评估
func (c *OpenShiftCheck) Evaluate(f *constraint.Facts) constraint.Outcome {
	if !f.Shift.IsOpen() {
		return constraint.Pass()
	}

	var reasons []constraint.ReasonCode
	if !f.Preference.OpenShiftParticipationEnabled {
		reasons = append(reasons, constraint.ReasonOpenShiftParticipation)
	}
	if f.Settings.IsAutoAssign() && !f.Preference.AllowAutoAssignOpenShifts {
		reasons = append(reasons, constraint.ReasonOpenShiftAutoAssignDeny)
	}
	return constraint.Outcome{Reasons: reasons}
}
