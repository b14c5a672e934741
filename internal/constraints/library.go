// Package constraints 原因码目录，供前端解释候选人被排除的原因
package constraints

import (
	"sort"

	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

// Param 与原因码相关的租户策略参数
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
}

// Definition 原因码定义
type Definition struct {
	Code        string              `json:"code"`
	DisplayName string              `json:"display_name"`
	Category    constraint.Category `json:"category"`
	Description string              `json:"description"`
	Params      []Param             `json:"params,omitempty"`
}

// LibraryResponse 原因码目录响应
type LibraryResponse struct {
	Library []Definition `json:"library"`
}

var (
	paramMaxHoursDay  = Param{Name: "max_hours_day", Type: "float", Description: "每日最大工时(小时)", Default: "12"}
	paramMaxHoursWeek = Param{Name: "max_hours_week", Type: "float", Description: "每周最大工时(小时)", Default: "48"}
	paramMinRest      = Param{Name: "min_rest_hours", Type: "float", Description: "两班之间最小休息(小时)", Default: "11"}
	paramOpenShiftMode = Param{
		Name: "open_shift_mode", Type: "string",
		Description: "开放班次模式 RECOMMEND_ONLY/AUTO_ASSIGN", Default: "RECOMMEND_ONLY",
	}
)

// GetLibrary 获取完整的原因码目录
func GetLibrary() []Definition {
	return []Definition{
		// 资格硬约束
		{
			Code:        string(constraint.ReasonUnavailable),
			DisplayName: "当日不可用",
			Category:    constraint.CategoryHard,
			Description: "员工在班次所跨的某个日历日登记为不可用，且原因不是\"尽量不要\"。",
		},
		{
			Code:        string(constraint.ReasonTimeOffOverlap),
			DisplayName: "请假冲突",
			Category:    constraint.CategoryHard,
			Description: "员工已批准的请假与班次时间重叠。",
		},
		{
			Code:        string(constraint.ReasonOverlappingShift),
			DisplayName: "班次重叠",
			Category:    constraint.CategoryHard,
			Description: "员工已分配的其他班次与本班次时间重叠。",
		},
		{
			Code:        string(constraint.ReasonMaxHoursDay),
			DisplayName: "超出每日工时",
			Category:    constraint.CategoryHard,
			Description: "加上本班次后，班次开始当日的已分配工时超过上限。",
			Params:      []Param{paramMaxHoursDay},
		},
		{
			Code:        string(constraint.ReasonMaxHoursWeek),
			DisplayName: "超出每周工时",
			Category:    constraint.CategoryHard,
			Description: "加上本班次后，班次所在自然周（周一开始）的已分配工时超过上限。",
			Params:      []Param{paramMaxHoursWeek},
		},
		{
			Code:        string(constraint.ReasonMinRest),
			DisplayName: "休息不足",
			Category:    constraint.CategoryHard,
			Description: "与前一个或后一个已分配班次之间的间隔小于最小休息时长。",
			Params:      []Param{paramMinRest},
		},
		{
			Code:        string(constraint.ReasonSkillMismatch),
			DisplayName: "角色不匹配",
			Category:    constraint.CategoryHard,
			Description: "班次要求的角色既不是员工的主角色、第二技能，也不在其历史角色中。",
		},
		{
			Code:        string(constraint.ReasonOpenShiftParticipation),
			DisplayName: "未参与开放班次",
			Category:    constraint.CategoryHard,
			Description: "员工关闭了开放班次参与。",
		},
		{
			Code:        string(constraint.ReasonOpenShiftAutoAssignDeny),
			DisplayName: "不接受自动分配",
			Category:    constraint.CategoryHard,
			Description: "租户处于自动分配模式，但员工不允许开放班次被自动分配。",
			Params:      []Param{paramOpenShiftMode},
		},

		// 落地请求项校验
		{
			Code:        string(constraint.ReasonShiftNotFound),
			DisplayName: "班次不存在",
			Category:    constraint.CategoryRequest,
			Description: "请求的班次不存在或不属于当前租户。",
		},
		{
			Code:        string(constraint.ReasonShiftOutsideWeek),
			DisplayName: "班次不在目标周",
			Category:    constraint.CategoryRequest,
			Description: "请求的班次与目标周窗口不相交。",
		},
		{
			Code:        string(constraint.ReasonEmployeeNotFound),
			DisplayName: "员工不存在",
			Category:    constraint.CategoryRequest,
			Description: "请求的员工不是当前租户的在职员工。",
		},
		{
			Code:        string(constraint.ReasonShiftAlreadyAssigned),
			DisplayName: "班次已分配",
			Category:    constraint.CategoryRequest,
			Description: "班次已有员工，同一班次只允许一个有效分配。",
		},
		{
			Code:        string(constraint.ReasonNoEligibleCandidates),
			DisplayName: "无合格候选人",
			Category:    constraint.CategoryRequest,
			Description: "没有任何候选人通过资格检查，且没有记录到更具体的原因。",
		},

		// 软标记与附注
		{
			Code:        string(constraint.FlagPreferNot),
			DisplayName: "尽量不要",
			Category:    constraint.CategoryFlag,
			Description: "员工当日登记为\"尽量不要\"，仍可排班但可用性得分较低。",
		},
		{
			Code:        string(constraint.FlagSecondarySkill),
			DisplayName: "第二技能匹配",
			Category:    constraint.CategoryFlag,
			Description: "班次角色只与员工的第二技能匹配，技能得分为满分的 70%。",
		},
		{
			Code:        string(constraint.NoteOpenShiftRecommendOnly),
			DisplayName: "开放班次仅推荐",
			Category:    constraint.CategoryFlag,
			Description: "租户处于仅推荐模式，开放班次的推荐需要人工确认。",
			Params:      []Param{paramOpenShiftMode},
		},
	}
}

// GetByCategory 按类别筛选，结果按原因码排序
func GetByCategory(category constraint.Category) []Definition {
	var out []Definition
	for _, d := range GetLibrary() {
		if d.Category == category {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Lookup 按原因码查找定义
func Lookup(code string) (Definition, bool) {
	for _, d := range GetLibrary() {
		if d.Code == code {
			return d, true
		}
	}
	return Definition{}, false
}
