package builtin

import (
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

// SkillCheck 角色/技能匹配检查
type SkillCheck struct {
	*BaseCheck
}

// NewSkillCheck 创建技能检查
func NewSkillCheck() *SkillCheck {
	return &SkillCheck{
		BaseCheck: NewBaseCheck("role_or_skill", constraint.ReasonSkillMismatch),
	}
}

// Evaluate 评估
func (c *SkillCheck) Evaluate(f *constraint.Facts) constraint.Outcome {
	switch f.SkillLevel() {
	case constraint.SkillExact:
		return constraint.Pass()
	case constraint.SkillSecondary:
		return constraint.Outcome{Flags: []constraint.Flag{constraint.FlagSecondarySkill}}
	}
	return constraint.Reject(constraint.ReasonSkillMismatch)
}
