// Package stats 提供推荐结果的公平性与覆盖率统计
package stats

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/paiban/shiftassign/pkg/model"
)

// Recommendation 单个班次的推荐结果
type Recommendation struct {
	ShiftID    uuid.UUID
	EmployeeID *uuid.UUID
}

// EmployeeLoad 员工被推荐的班次负载
type EmployeeLoad struct {
	EmployeeID            uuid.UUID `json:"employee_id"`
	EmployeeName          string    `json:"employee_name"`
	RecommendedShiftCount int       `json:"recommended_shift_count"`
	RecommendedHours      float64   `json:"recommended_hours"`
}

// Summarize 汇总每个员工被推荐的班次数和工时
// 只统计有推荐员工、且班次与员工都能查到的建议；工时保留两位小数
// 按班次数降序、员工 ID 升序排列
func Summarize(recs []Recommendation, shifts map[uuid.UUID]model.Shift, employees map[uuid.UUID]model.Employee) []EmployeeLoad {
	statMap := make(map[uuid.UUID]*EmployeeLoad)

	for _, r := range recs {
		if r.EmployeeID == nil {
			continue
		}
		shift, ok := shifts[r.ShiftID]
		if !ok {
			continue
		}
		emp, ok := employees[*r.EmployeeID]
		if !ok {
			continue
		}

		stat, exists := statMap[emp.ID]
		if !exists {
			stat = &EmployeeLoad{
				EmployeeID:   emp.ID,
				EmployeeName: emp.DisplayName(),
			}
			statMap[emp.ID] = stat
		}
		stat.RecommendedShiftCount++
		stat.RecommendedHours += shift.DurationHours()
	}

	result := make([]EmployeeLoad, 0, len(statMap))
	for _, stat := range statMap {
		stat.RecommendedHours = model.Round(stat.RecommendedHours, 2)
		result = append(result, *stat)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RecommendedShiftCount != result[j].RecommendedShiftCount {
			return result[i].RecommendedShiftCount > result[j].RecommendedShiftCount
		}
		return model.CompareIDs(result[i].EmployeeID, result[j].EmployeeID) < 0
	})

	return result
}

// FairnessMetrics 推荐负载的分布指标
type FairnessMetrics struct {
	HoursGini      float64 `json:"hours_gini"`       // 工时基尼系数 (0=完全公平, 1=完全不公平)
	ShiftCountGini float64 `json:"shift_count_gini"` // 班次数基尼系数
	AvgHours       float64 `json:"avg_hours"`        // 候选员工人均推荐工时
	HoursStdDev    float64 `json:"hours_std_dev"`    // 工时标准差
	MaxHours       float64 `json:"max_hours"`
	MinHours       float64 `json:"min_hours"`
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 计算负载分布指标
// poolSize 为参与推荐的员工总数，未被推荐的员工按 0 计入
func (f *FairnessAnalyzer) Analyze(loads []EmployeeLoad, poolSize int) FairnessMetrics {
	n := poolSize
	if n < len(loads) {
		n = len(loads)
	}
	if n == 0 {
		return FairnessMetrics{}
	}

	hours := make([]float64, n)
	counts := make([]float64, n)
	for i, l := range loads {
		hours[i] = l.RecommendedHours
		counts[i] = float64(l.RecommendedShiftCount)
	}

	avg := f.calculateMean(hours)
	maxHours, minHours := f.calculateRange(hours)

	return FairnessMetrics{
		HoursGini:      model.Round(f.calculateGini(hours), 4),
		ShiftCountGini: model.Round(f.calculateGini(counts), 4),
		AvgHours:       model.Round(avg, 2),
		HoursStdDev:    model.Round(math.Sqrt(f.calculateVariance(hours, avg)), 2),
		MaxHours:       maxHours,
		MinHours:       minHours,
	}
}

// calculateMean 计算平均值
func (f *FairnessAnalyzer) calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateVariance 计算方差
func (f *FairnessAnalyzer) calculateVariance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// calculateRange 计算极值
func (f *FairnessAnalyzer) calculateRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// calculateGini 计算基尼系数
func (f *FairnessAnalyzer) calculateGini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}

	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}
