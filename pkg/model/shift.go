// Package model 定义排班决策引擎的核心数据模型
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ShiftStatus 班次状态
type ShiftStatus string

const (
	ShiftAssigned ShiftStatus = "assigned" // 已确认分配
	ShiftOpen     ShiftStatus = "open"     // 开放班次（可自助认领/自动分配）
	ShiftDraft    ShiftStatus = "draft"    // 引擎暂存的草稿分配
)

// Shift 班次实例
type Shift struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	TenantID   uuid.UUID   `json:"tenant_id" db:"tenant_id"`
	EmployeeID *uuid.UUID  `json:"employee_id,omitempty" db:"employee_id"`
	StartTime  time.Time   `json:"start_time" db:"start_time"`
	EndTime    time.Time   `json:"end_time" db:"end_time"`
	RoleType   string      `json:"role_type,omitempty" db:"role_type"`
	Status     ShiftStatus `json:"status" db:"status"`
}

// Window 返回班次时间窗口
func (s *Shift) Window() TimeRange {
	return TimeRange{Start: s.StartTime, End: s.EndTime}
}

// DurationHours 返回班次时长（小时）
func (s *Shift) DurationHours() float64 {
	return s.Window().Hours()
}

// IsOpen 检查是否为开放班次
func (s *Shift) IsOpen() bool {
	return NormalizeTag(string(s.Status)) == string(ShiftOpen)
}

// IsUnassigned 检查班次是否尚未分配员工
func (s *Shift) IsUnassigned() bool {
	return s.EmployeeID == nil
}

// AssignedTo 检查班次是否分配给指定员工
func (s *Shift) AssignedTo(empID uuid.UUID) bool {
	return s.EmployeeID != nil && *s.EmployeeID == empID
}

// IsNightShift 检查是否为夜班
// 开始于 22 点之后或 6 点之前，或跨日且在 6 点前结束
func (s *Shift) IsNightShift() bool {
	h := s.StartTime.Hour()
	if h >= 22 || h < 6 {
		return true
	}
	return s.EndTime.Hour() <= 6 && StartOfDay(s.EndTime).After(StartOfDay(s.StartTime))
}

// IsWeekendShift 检查是否为周末班（按开始时间）
func (s *Shift) IsWeekendShift() bool {
	wd := s.StartTime.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NormalizeTag 归一化角色/技能/状态标签
func NormalizeTag(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
