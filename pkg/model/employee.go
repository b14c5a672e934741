// Package model 定义排班决策引擎的核心数据模型
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenericRole 新员工的通用占位角色
const GenericRole = "employee"

// Employee 员工
type Employee struct {
	ID       uuid.UUID `json:"id" db:"id"`
	TenantID uuid.UUID `json:"tenant_id" db:"tenant_id"`
	FullName string    `json:"full_name" db:"full_name"`
	Email    string    `json:"email,omitempty" db:"email"`
	Role     string    `json:"role" db:"role"`
	IsActive bool      `json:"is_active" db:"is_active"`
}

// DisplayName 返回展示名称，缺省时回退到邮箱
func (e *Employee) DisplayName() string {
	if e.FullName != "" {
		return e.FullName
	}
	return e.Email
}

// HasGenericRole 检查是否为通用占位角色
func (e *Employee) HasGenericRole() bool {
	return NormalizeTag(e.Role) == GenericRole
}

// AvailabilityState 可用性三态
type AvailabilityState string

const (
	AvailabilityAvailable   AvailabilityState = "AVAILABLE"
	AvailabilityPreferNot   AvailabilityState = "PREFER_NOT"
	AvailabilityUnavailable AvailabilityState = "UNAVAILABLE"
)

// Availability 员工某日的可用性登记
type Availability struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TenantID    uuid.UUID `json:"tenant_id" db:"tenant_id"`
	EmployeeID  uuid.UUID `json:"employee_id" db:"employee_id"`
	Date        time.Time `json:"date" db:"date"`
	IsAvailable bool      `json:"is_available" db:"is_available"`
	Reason      string    `json:"reason,omitempty" db:"reason"`
}

// IsPreferNot 检查登记是否表达"尽量不要"的软偏好
func (a *Availability) IsPreferNot() bool {
	r := NormalizeTag(a.Reason)
	return strings.Contains(r, "prefer not") || strings.Contains(r, "prefer_not")
}

// TimeOffStatus 请假状态
type TimeOffStatus string

const (
	TimeOffPending  TimeOffStatus = "pending"
	TimeOffApproved TimeOffStatus = "approved"
	TimeOffRejected TimeOffStatus = "rejected"
)

// TimeOff 请假记录
type TimeOff struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	TenantID   uuid.UUID     `json:"tenant_id" db:"tenant_id"`
	EmployeeID uuid.UUID     `json:"employee_id" db:"employee_id"`
	StartDate  time.Time     `json:"start_date" db:"start_date"`
	EndDate    time.Time     `json:"end_date" db:"end_date"`
	Status     TimeOffStatus `json:"status" db:"status"`
}

// Window 返回请假时间窗口
func (t *TimeOff) Window() TimeRange {
	return TimeRange{Start: t.StartDate, End: t.EndDate}
}

// IsApproved 检查是否已批准
func (t *TimeOff) IsApproved() bool {
	return t.Status == TimeOffApproved
}

// EmployeePreference 员工排班偏好
type EmployeePreference struct {
	TenantID                      uuid.UUID `json:"tenant_id" db:"tenant_id"`
	EmployeeID                    uuid.UUID `json:"employee_id" db:"employee_id"`
	OpenShiftParticipationEnabled bool      `json:"open_shift_participation_enabled" db:"open_shift_participation_enabled"`
	AllowAutoAssignOpenShifts     bool      `json:"allow_auto_assign_open_shifts" db:"allow_auto_assign_open_shifts"`
	PreferredStartHour            *int      `json:"preferred_start_hour,omitempty" db:"preferred_start_hour"`
	PreferredEndHour              *int      `json:"preferred_end_hour,omitempty" db:"preferred_end_hour"`
	SecondaryRoleType             *string   `json:"secondary_role_type,omitempty" db:"secondary_role_type"`
}

// DefaultEmployeePreference 无偏好记录时的默认值
func DefaultEmployeePreference(tenantID, employeeID uuid.UUID) EmployeePreference {
	return EmployeePreference{
		TenantID:                      tenantID,
		EmployeeID:                    employeeID,
		OpenShiftParticipationEnabled: true,
		AllowAutoAssignOpenShifts:     false,
	}
}

// MatchesWindow 检查班次是否落在偏好时间窗内
// 支持跨夜窗口（例如 22 -> 6）
func (p *EmployeePreference) MatchesWindow(s *Shift) bool {
	if p == nil || p.PreferredStartHour == nil || p.PreferredEndHour == nil {
		return false
	}
	shiftStart := float64(s.StartTime.Hour()) + float64(s.StartTime.Minute())/60.0
	shiftEnd := float64(s.EndTime.Hour()) + float64(s.EndTime.Minute())/60.0
	start := float64(*p.PreferredStartHour)
	end := float64(*p.PreferredEndHour)

	if start <= end {
		return start <= shiftStart && shiftEnd <= end
	}
	return shiftStart >= start || shiftEnd <= end
}

// SecondaryRole 返回归一化后的第二技能，未配置时为空串
func (p *EmployeePreference) SecondaryRole() string {
	if p == nil || p.SecondaryRoleType == nil {
		return ""
	}
	return NormalizeTag(*p.SecondaryRoleType)
}
