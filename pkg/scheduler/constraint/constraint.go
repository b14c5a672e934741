// Package constraint 定义硬约束检查接口、原因码和检查管理器
package constraint

import (
	"math"
	"sort"

	"github.com/paiban/shiftassign/pkg/model"
)

// ReasonCode 稳定的拒绝原因码
type ReasonCode string

const (
	// 资格过滤（硬约束）
	ReasonUnavailable             ReasonCode = "UNAVAILABLE"
	ReasonTimeOffOverlap          ReasonCode = "APPROVED_TIME_OFF_OVERLAP"
	ReasonOverlappingShift        ReasonCode = "OVERLAPPING_ASSIGNED_SHIFT"
	ReasonMaxHoursDay             ReasonCode = "MAX_HOURS_DAY_EXCEEDED"
	ReasonMaxHoursWeek            ReasonCode = "MAX_HOURS_WEEK_EXCEEDED"
	ReasonMinRest                 ReasonCode = "MIN_REST_HOURS_VIOLATION"
	ReasonSkillMismatch           ReasonCode = "ROLE_OR_SKILL_MISMATCH"
	ReasonOpenShiftParticipation  ReasonCode = "OPEN_SHIFT_PARTICIPATION_DISABLED"
	ReasonOpenShiftAutoAssignDeny ReasonCode = "OPEN_SHIFT_AUTO_ASSIGN_NOT_ALLOWED"

	// 分配落地（逐条）
	ReasonShiftNotFound        ReasonCode = "SHIFT_NOT_FOUND"
	ReasonShiftOutsideWeek     ReasonCode = "SHIFT_OUTSIDE_TARGET_WEEK"
	ReasonEmployeeNotFound     ReasonCode = "EMPLOYEE_NOT_FOUND"
	ReasonShiftAlreadyAssigned ReasonCode = "SHIFT_ALREADY_ASSIGNED"
	ReasonNoEligibleCandidates ReasonCode = "NO_ELIGIBLE_CANDIDATES"
)

// Flag 软标记，不影响资格，只影响评分
type Flag string

const (
	FlagPreferNot      Flag = "PREFER_NOT"
	FlagSecondarySkill Flag = "SECONDARY_SKILL_MATCH"
)

// Note 建议附注
type Note string

const (
	NoteOpenShiftRecommendOnly Note = "OPEN_SHIFT_RECOMMEND_ONLY"
)

// Category 原因码类别
type Category string

const (
	CategoryHard    Category = "hard"    // 资格硬约束
	CategoryRequest Category = "request" // 落地请求项校验
	CategoryFlag    Category = "flag"    // 软标记
)

// SkillLevel 技能匹配等级
type SkillLevel string

const (
	SkillExact     SkillLevel = "exact"
	SkillSecondary SkillLevel = "secondary"
	SkillNone      SkillLevel = ""
)

// ReasonSet 去重的原因码集合
type ReasonSet map[ReasonCode]struct{}

// NewReasonSet 创建原因码集合
func NewReasonSet(codes ...ReasonCode) ReasonSet {
	s := make(ReasonSet, len(codes))
	for _, c := range codes {
		s.Add(c)
	}
	return s
}

// Add 添加原因码
func (s ReasonSet) Add(codes ...ReasonCode) {
	for _, c := range codes {
		s[c] = struct{}{}
	}
}

// Merge 合并另一个集合
func (s ReasonSet) Merge(other ReasonSet) {
	for c := range other {
		s[c] = struct{}{}
	}
}

// Has 检查是否包含原因码
func (s ReasonSet) Has(code ReasonCode) bool {
	_, ok := s[code]
	return ok
}

// Len 返回原因码数量
func (s ReasonSet) Len() int { return len(s) }

// Sorted 返回排序后的原因码列表
func (s ReasonSet) Sorted() []ReasonCode {
	return sortedKeys(s)
}

// FlagSet 去重的软标记集合
type FlagSet map[Flag]struct{}

// Add 添加软标记
func (s FlagSet) Add(flags ...Flag) {
	for _, f := range flags {
		s[f] = struct{}{}
	}
}

// Has 检查是否包含软标记
func (s FlagSet) Has(flag Flag) bool {
	_, ok := s[flag]
	return ok
}

// Sorted 返回排序后的软标记列表
func (s FlagSet) Sorted() []Flag {
	return sortedKeys(s)
}

func sortedKeys[T ~string](m map[T]struct{}) []T {
	out := make([]T, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Outcome 单个检查的结果
type Outcome struct {
	Reasons []ReasonCode
	Flags   []Flag
}

// Pass 无违反、无标记
func Pass() Outcome { return Outcome{} }

// Reject 返回带原因码的结果
func Reject(codes ...ReasonCode) Outcome { return Outcome{Reasons: codes} }

// Check 硬约束检查接口
// 检查只读取 Facts，不访问外部数据
type Check interface {
	// Name 返回检查名称
	Name() string

	// Codes 返回该检查可能产生的原因码
	Codes() []ReasonCode

	// Evaluate 评估一个 (班次, 员工) 组合
	Evaluate(f *Facts) Outcome
}

// Result 一个 (班次, 员工) 组合的检查汇总
type Result struct {
	Reasons ReasonSet
	Flags   FlagSet
}

// Eligible 无任何硬约束违反时为 true
func (r *Result) Eligible() bool {
	return r.Reasons.Len() == 0
}

// ToStrings 将原因码转换为字符串（日志用）
func ToStrings(codes []ReasonCode) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}

// Facts 单个 (班次, 员工) 组合的不可变事实快照
// Shifts 是员工在取数窗口内的其他班次（不含目标班次）
type Facts struct {
	Shift        model.Shift
	Employee     model.Employee
	Rule         model.ContractRule
	Settings     model.TenantSchedulingSettings
	Preference   model.EmployeePreference
	Availability []model.Availability
	TimeOff      []model.TimeOff
	Shifts       []model.Shift
	Previous     *model.Shift
	Next         *model.Shift
	RoleHistory  []string
}

// others 返回排除目标班次后的班次
func (f *Facts) others() []model.Shift {
	out := make([]model.Shift, 0, len(f.Shifts))
	for _, s := range f.Shifts {
		if s.ID != f.Shift.ID {
			out = append(out, s)
		}
	}
	return out
}

// AvailabilityState 按班次覆盖的日历日推导可用性三态
func (f *Facts) AvailabilityState() model.AvailabilityState {
	from := model.DateOf(f.Shift.StartTime)
	to := model.DateOf(f.Shift.EndTime).AddDate(0, 0, 1)

	preferNot := false
	for i := range f.Availability {
		a := &f.Availability[i]
		d := model.DateOf(a.Date)
		if d.Before(from) || !d.Before(to) {
			continue
		}
		if !a.IsAvailable {
			return model.AvailabilityUnavailable
		}
		if a.IsPreferNot() {
			preferNot = true
		}
	}
	if preferNot {
		return model.AvailabilityPreferNot
	}
	return model.AvailabilityAvailable
}

// HasApprovedTimeOff 检查是否有已批准请假与班次重叠
func (f *Facts) HasApprovedTimeOff() bool {
	w := f.Shift.Window()
	for i := range f.TimeOff {
		t := &f.TimeOff[i]
		if t.IsApproved() && t.Window().Overlaps(w) {
			return true
		}
	}
	return false
}

// HasOverlappingShift 检查员工其他班次是否与目标班次重叠
func (f *Facts) HasOverlappingShift() bool {
	w := f.Shift.Window()
	for _, s := range f.others() {
		if s.Window().Overlaps(w) {
			return true
		}
	}
	return false
}

func (f *Facts) hoursWithin(window model.TimeRange) float64 {
	var total float64
	for _, s := range f.others() {
		total += s.Window().OverlapHours(window)
	}
	return total
}

// DayHours 班次开始日已有的工时
func (f *Facts) DayHours() float64 {
	return f.hoursWithin(model.DayWindow(f.Shift.StartTime))
}

// WeekHours 班次所在 ISO 周已有的工时
func (f *Facts) WeekHours() float64 {
	return f.hoursWithin(model.WeekWindow(f.Shift.StartTime))
}

// RestGaps 返回与前后相邻班次的间隔小时数，无相邻班次时为 nil
func (f *Facts) RestGaps() (before, after *float64) {
	if f.Previous != nil && f.Previous.ID != f.Shift.ID {
		g := f.Shift.StartTime.Sub(f.Previous.EndTime).Hours()
		before = &g
	}
	if f.Next != nil && f.Next.ID != f.Shift.ID {
		g := f.Next.StartTime.Sub(f.Shift.EndTime).Hours()
		after = &g
	}
	return before, after
}

// RestMargin 超出最短休息时长的余量，不小于 0
// 缺失的一侧按 min_rest + 24 计
func (f *Facts) RestMargin() float64 {
	minRest := f.Rule.MinRestHours
	synthetic := minRest + 24.0

	before, after := f.RestGaps()
	gapBefore, gapAfter := synthetic, synthetic
	if before != nil {
		gapBefore = *before
	}
	if after != nil {
		gapAfter = *after
	}

	return math.Max(math.Min(gapBefore, gapAfter)-minRest, 0)
}

// SkillLevel 推导技能匹配等级
func (f *Facts) SkillLevel() SkillLevel {
	required := model.NormalizeTag(f.Shift.RoleType)
	if required == "" {
		return SkillExact
	}

	role := model.NormalizeTag(f.Employee.Role)
	history := make(map[string]bool, len(f.RoleHistory))
	for _, r := range f.RoleHistory {
		if n := model.NormalizeTag(r); n != "" {
			history[n] = true
		}
	}

	if role == required || history[required] {
		return SkillExact
	}
	// 新员工通用角色且无历史时放宽
	if role == model.GenericRole && len(history) == 0 {
		return SkillExact
	}
	if secondary := f.Preference.SecondaryRole(); secondary != "" && secondary == required {
		return SkillSecondary
	}
	return SkillNone
}

// TrailingCounts 班次开始前 28 天内的周末班和夜班次数
func (f *Facts) TrailingCounts() (weekend, night int) {
	from := f.Shift.StartTime.AddDate(0, 0, -28)
	for _, s := range f.Shifts {
		if s.StartTime.Before(from) || !s.StartTime.Before(f.Shift.StartTime) {
			continue
		}
		if s.IsWeekendShift() {
			weekend++
		}
		if s.IsNightShift() {
			night++
		}
	}
	return weekend, night
}

// PreferenceMatch 班次是否落在员工偏好时间窗内
func (f *Facts) PreferenceMatch() bool {
	return f.Preference.MatchesWindow(&f.Shift)
}
