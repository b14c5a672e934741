// Package builtin 提供内置硬约束检查
package builtin

import (
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

// BaseCheck 检查基类
type BaseCheck struct {
	name  string
	codes []constraint.ReasonCode
}

// NewBaseCheck 创建基础检查
func NewBaseCheck(name string, codes ...constraint.ReasonCode) *BaseCheck {
	return &BaseCheck{name: name, codes: codes}
}

// Name 返回检查名称
func (c *BaseCheck) Name() string { return c.name }

// Codes 返回可能产生的原因码
func (c *BaseCheck) Codes() []constraint.ReasonCode {
	out := make([]constraint.ReasonCode, len(c.codes))
	copy(out, c.codes)
	return out
}

// Evaluate 默认实现（子类需覆盖）
func (c *BaseCheck) Evaluate(*constraint.Facts) constraint.Outcome {
	return constraint.Pass()
}
