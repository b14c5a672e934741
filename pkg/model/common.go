// Package model 定义排班决策引擎的核心数据模型
package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TimeRange 时间范围，左闭右开 [Start, End)
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration 返回时间范围的持续时间，负区间视为 0
func (tr TimeRange) Duration() time.Duration {
	if tr.End.Before(tr.Start) {
		return 0
	}
	return tr.End.Sub(tr.Start)
}

// Hours 返回持续小时数
func (tr TimeRange) Hours() float64 {
	return tr.Duration().Hours()
}

// Overlaps 检查两个时间范围是否重叠
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// Contains 检查时间范围是否包含某个时间点
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// OverlapHours 返回两个时间范围重叠部分的小时数
func (tr TimeRange) OverlapHours(other TimeRange) float64 {
	start := tr.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := tr.End
	if other.End.Before(end) {
		end = other.End
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Hours()
}

// StartOfDay 返回 t 所在日历日的零点（保持时区）
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DateOf 返回 t 所在日历日，以 UTC 零点表示（与 DATE 列对齐）
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayWindow 返回 t 所在日历日的窗口
func DayWindow(t time.Time) TimeRange {
	start := StartOfDay(t)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}

// WeekWindow 返回 t 所在 ISO 周（周一开始）的窗口
func WeekWindow(t time.Time) TimeRange {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 7)}
}

// TargetWeek 返回从 weekStart 当天零点开始的 7 天窗口
func TargetWeek(weekStart time.Time) TimeRange {
	start := StartOfDay(weekStart)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 7)}
}

// Round 按小数位四舍五入
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// CompareIDs 比较两个 UUID 的字节序，用于确定性排序
func CompareIDs(a, b uuid.UUID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
