// Package eligibility 实现单个班次的候选人资格过滤
package eligibility

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/shiftassign/pkg/model"
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
	"github.com/paiban/shiftassign/pkg/scheduler/constraint/builtin"
)

// trailingDays 周末/夜班统计回看天数
const trailingDays = 28

// Source 资格过滤所需的数据访问边界
type Source interface {
	// ShiftsForEmployee 返回分配给员工且与窗口相交的班次
	ShiftsForEmployee(ctx context.Context, tenantID, employeeID uuid.UUID, window model.TimeRange) ([]model.Shift, error)
	// PreviousShift 返回结束时间不晚于 before 的最近班次
	PreviousShift(ctx context.Context, tenantID, employeeID, excludeID uuid.UUID, before time.Time) (*model.Shift, error)
	// NextShift 返回开始时间不早于 after 的最近班次
	NextShift(ctx context.Context, tenantID, employeeID, excludeID uuid.UUID, after time.Time) (*model.Shift, error)
	// AvailabilityForDates 返回日期在 [from, to) 内的可用性登记
	AvailabilityForDates(ctx context.Context, tenantID, employeeID uuid.UUID, from, to time.Time) ([]model.Availability, error)
	// ApprovedTimeOff 返回与窗口重叠的已批准请假
	ApprovedTimeOff(ctx context.Context, tenantID, employeeID uuid.UUID, window model.TimeRange) ([]model.TimeOff, error)
	// RoleHistory 批量返回员工历史上做过的角色
	RoleHistory(ctx context.Context, tenantID uuid.UUID, employeeIDs []uuid.UUID) (map[uuid.UUID][]string, error)
	// Preferences 批量返回员工偏好，缺失的员工不出现在结果中
	Preferences(ctx context.Context, tenantID uuid.UUID, employeeIDs []uuid.UUID) (map[uuid.UUID]model.EmployeePreference, error)
}

// Policy 租户策略
type Policy struct {
	Rule     model.ContractRule
	Settings model.TenantSchedulingSettings
}

// CandidateContext 合格候选人的评分上下文（不可变值）
type CandidateContext struct {
	Employee          model.Employee
	AvailabilityState model.AvailabilityState
	SkillLevel        constraint.SkillLevel
	WeeklyHours       float64
	RestMarginHours   float64
	WeekendCount      int
	NightCount        int
	PreferenceMatch   bool
	Flags             []constraint.Flag
}

// HasFlag 检查是否带有软标记
func (c CandidateContext) HasFlag(flag constraint.Flag) bool {
	for _, f := range c.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Result 过滤结果
type Result struct {
	Eligible []CandidateContext
	Rejected map[uuid.UUID][]constraint.ReasonCode
}

// RejectedIDs 返回按 ID 升序的被拒员工
func (r *Result) RejectedIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Rejected))
	for id := range r.Rejected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return model.CompareIDs(ids[i], ids[j]) < 0 })
	return ids
}

// AllReasons 汇总所有被拒员工的原因码（去重排序）
func (r *Result) AllReasons() []constraint.ReasonCode {
	set := make(constraint.ReasonSet)
	for _, codes := range r.Rejected {
		set.Add(codes...)
	}
	return set.Sorted()
}

// Filter 资格过滤器
type Filter struct {
	checks *constraint.Manager
}

// NewFilter 创建资格过滤器，checks 为 nil 时使用默认检查
func NewFilter(checks *constraint.Manager) *Filter {
	if checks == nil {
		checks = builtin.NewDefaultManager()
	}
	return &Filter{checks: checks}
}

// Checks 返回检查管理器
func (f *Filter) Checks() *constraint.Manager {
	return f.checks
}

// Filter 对一个班次过滤候选人
// 候选人按 ID 升序处理，每个候选人的全部检查都会执行
func (f *Filter) Filter(ctx context.Context, src Source, shift model.Shift, candidates []model.Employee, policy Policy) (*Result, error) {
	sorted := make([]model.Employee, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return model.CompareIDs(sorted[i].ID, sorted[j].ID) < 0 })

	ids := make([]uuid.UUID, len(sorted))
	for i, e := range sorted {
		ids[i] = e.ID
	}

	prefs, err := src.Preferences(ctx, shift.TenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("查询员工偏好失败: %w", err)
	}
	history, err := src.RoleHistory(ctx, shift.TenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("查询角色历史失败: %w", err)
	}

	result := &Result{
		Eligible: make([]CandidateContext, 0, len(sorted)),
		Rejected: make(map[uuid.UUID][]constraint.ReasonCode),
	}

	for _, emp := range sorted {
		pref, ok := prefs[emp.ID]
		if !ok {
			pref = model.DefaultEmployeePreference(shift.TenantID, emp.ID)
		}

		facts, err := LoadFacts(ctx, src, shift, emp, policy, pref, history[emp.ID])
		if err != nil {
			return nil, err
		}

		verdict := f.checks.Evaluate(facts)
		if !verdict.Eligible() {
			result.Rejected[emp.ID] = verdict.Reasons.Sorted()
			continue
		}
		result.Eligible = append(result.Eligible, NewCandidateContext(facts, verdict.Flags))
	}

	return result, nil
}

// FetchWindow 取数窗口：覆盖回看 28 天、班次所在 ISO 周以及班次本身
func FetchWindow(shift model.Shift) model.TimeRange {
	end := model.WeekWindow(shift.StartTime).End
	if shift.EndTime.After(end) {
		end = shift.EndTime
	}
	return model.TimeRange{
		Start: shift.StartTime.AddDate(0, 0, -trailingDays),
		End:   end,
	}
}

// LoadFacts 从数据源加载一个 (班次, 员工) 组合的事实快照
func LoadFacts(ctx context.Context, src Source, shift model.Shift, emp model.Employee, policy Policy, pref model.EmployeePreference, history []string) (*constraint.Facts, error) {
	tenantID := shift.TenantID

	shifts, err := src.ShiftsForEmployee(ctx, tenantID, emp.ID, FetchWindow(shift))
	if err != nil {
		return nil, fmt.Errorf("查询员工班次失败: %w", err)
	}
	prev, err := src.PreviousShift(ctx, tenantID, emp.ID, shift.ID, shift.StartTime)
	if err != nil {
		return nil, fmt.Errorf("查询前一班次失败: %w", err)
	}
	next, err := src.NextShift(ctx, tenantID, emp.ID, shift.ID, shift.EndTime)
	if err != nil {
		return nil, fmt.Errorf("查询后一班次失败: %w", err)
	}
	from := model.DateOf(shift.StartTime)
	to := model.DateOf(shift.EndTime).AddDate(0, 0, 1)
	avail, err := src.AvailabilityForDates(ctx, tenantID, emp.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("查询可用性失败: %w", err)
	}
	timeOff, err := src.ApprovedTimeOff(ctx, tenantID, emp.ID, shift.Window())
	if err != nil {
		return nil, fmt.Errorf("查询请假失败: %w", err)
	}

	return &constraint.Facts{
		Shift:        shift,
		Employee:     emp,
		Rule:         policy.Rule,
		Settings:     policy.Settings,
		Preference:   pref,
		Availability: avail,
		TimeOff:      timeOff,
		Shifts:       shifts,
		Previous:     prev,
		Next:         next,
		RoleHistory:  history,
	}, nil
}

// NewCandidateContext 由事实快照构建候选人上下文
func NewCandidateContext(f *constraint.Facts, flags constraint.FlagSet) CandidateContext {
	weekend, night := f.TrailingCounts()
	skill := f.SkillLevel()
	if skill == constraint.SkillNone {
		skill = constraint.SkillExact
	}
	return CandidateContext{
		Employee:          f.Employee,
		AvailabilityState: f.AvailabilityState(),
		SkillLevel:        skill,
		WeeklyHours:       f.WeekHours(),
		RestMarginHours:   f.RestMargin(),
		WeekendCount:      weekend,
		NightCount:        night,
		PreferenceMatch:   f.PreferenceMatch(),
		Flags:             flags.Sorted(),
	}
}
