// Package constraint 定义硬约束检查接口、原因码和检查管理器
package constraint

import (
	"sync"
)

// Manager 检查管理器
// 所有检查都会执行，原因码累积而不短路
type Manager struct {
	checks []Check
	mu     sync.RWMutex
}

// NewManager 创建检查管理器
func NewManager() *Manager {
	return &Manager{
		checks: make([]Check, 0),
	}
}

// Register 注册检查，同名检查会被替换
func (m *Manager) Register(c Check) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.checks {
		if existing.Name() == c.Name() {
			m.checks[i] = c
			return
		}
	}
	m.checks = append(m.checks, c)
}

// Unregister 注销检查
func (m *Manager) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.checks {
		if c.Name() == name {
			m.checks = append(m.checks[:i], m.checks[i+1:]...)
			return
		}
	}
}

// Get 获取检查
func (m *Manager) Get(name string) Check {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.checks {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// GetAll 获取所有检查
func (m *Manager) GetAll() []Check {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Check, len(m.checks))
	copy(result, m.checks)
	return result
}

// Count 返回检查数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.checks)
}

// Clear 清除所有检查
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = make([]Check, 0)
}

// Evaluate 对一个 (班次, 员工) 组合运行全部检查
func (m *Manager) Evaluate(f *Facts) *Result {
	checks := m.GetAll()

	result := &Result{
		Reasons: make(ReasonSet),
		Flags:   make(FlagSet),
	}
	for _, c := range checks {
		out := c.Evaluate(f)
		result.Reasons.Add(out.Reasons...)
		result.Flags.Add(out.Flags...)
	}
	return result
}

// Codes 返回已注册检查可能产生的全部原因码
func (m *Manager) Codes() []ReasonCode {
	set := make(ReasonSet)
	for _, c := range m.GetAll() {
		set.Add(c.Codes()...)
	}
	return set.Sorted()
}
