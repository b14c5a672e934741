package stats

import (
	"sort"

	"github.com/google/uuid"

	"github.com/paiban/shiftassign/pkg/model"
)

// CoverageMetrics 推荐覆盖率
type CoverageMetrics struct {
	TotalShifts       int                    `json:"total_shifts"`       // 目标班次数
	RecommendedShifts int                    `json:"recommended_shifts"` // 有推荐人选的班次数
	OverallCoverage   float64                `json:"overall_coverage"`   // 覆盖率 (%)
	DailyCoverage     map[string]DayCoverage `json:"daily_coverage"`     // 按班次开始日统计
	UncoveredShiftIDs []uuid.UUID            `json:"uncovered_shift_ids"`
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Date         string  `json:"date"`
	TotalShifts  int     `json:"total_shifts"`
	Recommended  int     `json:"recommended"`
	CoverageRate float64 `json:"coverage_rate"`
	TotalHours   float64 `json:"total_hours"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct{}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{}
}

// Analyze 统计推荐结果对目标班次的覆盖情况
func (c *CoverageAnalyzer) Analyze(recs []Recommendation, shifts map[uuid.UUID]model.Shift) CoverageMetrics {
	metrics := CoverageMetrics{
		DailyCoverage:     make(map[string]DayCoverage),
		UncoveredShiftIDs: make([]uuid.UUID, 0),
	}

	for _, r := range recs {
		shift, ok := shifts[r.ShiftID]
		if !ok {
			continue
		}
		date := shift.StartTime.Format("2006-01-02")
		day := metrics.DailyCoverage[date]
		day.Date = date
		day.TotalShifts++
		metrics.TotalShifts++

		if r.EmployeeID != nil {
			day.Recommended++
			day.TotalHours += shift.DurationHours()
			metrics.RecommendedShifts++
		} else {
			metrics.UncoveredShiftIDs = append(metrics.UncoveredShiftIDs, shift.ID)
		}
		metrics.DailyCoverage[date] = day
	}

	for date, day := range metrics.DailyCoverage {
		day.CoverageRate = coverageRate(day.Recommended, day.TotalShifts)
		day.TotalHours = model.Round(day.TotalHours, 2)
		metrics.DailyCoverage[date] = day
	}
	metrics.OverallCoverage = coverageRate(metrics.RecommendedShifts, metrics.TotalShifts)

	sort.Slice(metrics.UncoveredShiftIDs, func(i, j int) bool {
		return model.CompareIDs(metrics.UncoveredShiftIDs[i], metrics.UncoveredShiftIDs[j]) < 0
	})

	return metrics
}

func coverageRate(covered, total int) float64 {
	if total == 0 {
		return 100
	}
	return model.Round(float64(covered)/float64(total)*100, 2)
}
