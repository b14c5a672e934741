// Package builtin 提供内置硬约束检查
package builtin

import (
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

// RegisterDefaultChecks 注册全部默认检查
// 合同上限等参数来自 Facts 中的租户规则，而不是构造参数
func RegisterDefaultChecks(manager *constraint.Manager) {
	manager.Register(NewAvailabilityCheck())
	manager.Register(NewTimeOffCheck())
	manager.Register(NewOverlapCheck())
	manager.Register(NewMaxHoursPerDayCheck())
	manager.Register(NewMaxHoursPerWeekCheck())
	manager.Register(NewMinRestCheck())
	manager.Register(NewSkillCheck())
	manager.Register(NewOpenShiftCheck())
}

// NewDefaultManager 创建已注册默认检查的管理器
func NewDefaultManager() *constraint.Manager {
	m := constraint.NewManager()
	RegisterDefaultChecks(m)
	return m
}
