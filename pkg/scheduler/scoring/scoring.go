// Package scoring 对合格候选人做七因子加权评分与排序
package scoring

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/paiban/shiftassign/pkg/model"
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
	"github.com/paiban/shiftassign/pkg/scheduler/eligibility"
)

const (
	// preferNotFactor "尽量不要"时可用性得分系数
	preferNotFactor = 0.5
	// secondarySkillFactor 第二技能匹配时技能得分系数
	secondarySkillFactor = 0.7
	// scorePlaces 得分保留小数位
	scorePlaces = 4
)

// Breakdown 七项得分明细
type Breakdown struct {
	Availability   float64 `json:"availability_score"`
	SkillMatch     float64 `json:"skill_match_score"`
	HoursBalance   float64 `json:"hours_balance_score"`
	RestMargin     float64 `json:"rest_margin_score"`
	WeekendBalance float64 `json:"weekend_balance_score"`
	NightBalance   float64 `json:"night_balance_score"`
	Preference     float64 `json:"preference_score"`
}

// Total 七项之和
func (b Breakdown) Total() float64 {
	return b.Availability + b.SkillMatch + b.HoursBalance + b.RestMargin +
		b.WeekendBalance + b.NightBalance + b.Preference
}

func (b Breakdown) rounded() Breakdown {
	return Breakdown{
		Availability:   model.Round(b.Availability, scorePlaces),
		SkillMatch:     model.Round(b.SkillMatch, scorePlaces),
		HoursBalance:   model.Round(b.HoursBalance, scorePlaces),
		RestMargin:     model.Round(b.RestMargin, scorePlaces),
		WeekendBalance: model.Round(b.WeekendBalance, scorePlaces),
		NightBalance:   model.Round(b.NightBalance, scorePlaces),
		Preference:     model.Round(b.Preference, scorePlaces),
	}
}

// CandidateScore 候选人评分结果
type CandidateScore struct {
	EmployeeID   uuid.UUID         `json:"employee_id"`
	EmployeeName string            `json:"employee_name"`
	TotalScore   float64           `json:"total_score"`
	Breakdown    Breakdown         `json:"score_breakdown"`
	Flags        []constraint.Flag `json:"flags"`
}

// poolStats 候选池的归一化边界
type poolStats struct {
	minWeek, maxWeek       float64
	minWeekend, maxWeekend float64
	minNight, maxNight     float64
	maxRest                float64
}

func newPoolStats(pool []eligibility.CandidateContext) poolStats {
	first := pool[0]
	s := poolStats{
		minWeek: first.WeeklyHours, maxWeek: first.WeeklyHours,
		minWeekend: float64(first.WeekendCount), maxWeekend: float64(first.WeekendCount),
		minNight: float64(first.NightCount), maxNight: float64(first.NightCount),
		maxRest: first.RestMarginHours,
	}
	for _, c := range pool[1:] {
		s.minWeek = math.Min(s.minWeek, c.WeeklyHours)
		s.maxWeek = math.Max(s.maxWeek, c.WeeklyHours)
		s.minWeekend = math.Min(s.minWeekend, float64(c.WeekendCount))
		s.maxWeekend = math.Max(s.maxWeekend, float64(c.WeekendCount))
		s.minNight = math.Min(s.minNight, float64(c.NightCount))
		s.maxNight = math.Max(s.maxNight, float64(c.NightCount))
		s.maxRest = math.Max(s.maxRest, c.RestMarginHours)
	}
	return s
}

// InverseNormalize 值越小得分越高；全员相同时为 1
func InverseNormalize(v, minV, maxV float64) float64 {
	if maxV == minV {
		return 1.0
	}
	return (maxV - v) / (maxV - minV)
}

// DirectNormalize 值越大得分越高，截断到 [0, 1]；max<=0 时为 0
func DirectNormalize(v, maxV float64) float64 {
	if maxV <= 0 {
		return 0
	}
	return math.Min(math.Max(v/maxV, 0), 1)
}

// Score 在候选池内做相对归一化评分
// 按总分降序、员工 ID 升序排列；设置阈值时低于阈值的候选人被剔除
func Score(pool []eligibility.CandidateContext, cfg model.ScoringConfig) []CandidateScore {
	if len(pool) == 0 {
		return []CandidateScore{}
	}

	stats := newPoolStats(pool)
	w := cfg.Weights

	scored := make([]CandidateScore, 0, len(pool))
	for _, c := range pool {
		b := Breakdown{
			Availability:   w.Availability,
			SkillMatch:     w.SkillMatch,
			HoursBalance:   w.HoursBalance * InverseNormalize(c.WeeklyHours, stats.minWeek, stats.maxWeek),
			RestMargin:     w.RestMargin * DirectNormalize(c.RestMarginHours, stats.maxRest),
			WeekendBalance: w.WeekendBalance * InverseNormalize(float64(c.WeekendCount), stats.minWeekend, stats.maxWeekend),
			NightBalance:   w.NightBalance * InverseNormalize(float64(c.NightCount), stats.minNight, stats.maxNight),
		}
		if c.AvailabilityState == model.AvailabilityPreferNot {
			b.Availability *= preferNotFactor
		}
		if c.SkillLevel == constraint.SkillSecondary {
			b.SkillMatch *= secondarySkillFactor
		}
		if c.PreferenceMatch {
			b.Preference = w.Preference
		}

		flags := make(constraint.FlagSet)
		flags.Add(c.Flags...)

		scored = append(scored, CandidateScore{
			EmployeeID:   c.Employee.ID,
			EmployeeName: c.Employee.DisplayName(),
			TotalScore:   model.Round(b.Total(), scorePlaces),
			Breakdown:    b.rounded(),
			Flags:        flags.Sorted(),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].TotalScore != scored[j].TotalScore {
			return scored[i].TotalScore > scored[j].TotalScore
		}
		return model.CompareIDs(scored[i].EmployeeID, scored[j].EmployeeID) < 0
	})

	if cfg.MinScoreThreshold != nil {
		threshold := *cfg.MinScoreThreshold
		kept := scored[:0]
		for _, s := range scored {
			if s.TotalScore >= threshold {
				kept = append(kept, s)
			}
		}
		scored = kept
	}

	return scored
}

// Top 返回排名第一的候选人，列表为空时返回 nil
func Top(ranked []CandidateScore) *CandidateScore {
	if len(ranked) == 0 {
		return nil
	}
	top := ranked[0]
	return &top
}
