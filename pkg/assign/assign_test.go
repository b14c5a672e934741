package assign_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/shiftassign/internal/policy"
	"github.com/paiban/shiftassign/internal/repository/memstore"
	"github.com/paiban/shiftassign/pkg/assign"
	apperrors "github.com/paiban/shiftassign/pkg/errors"
	"github.com/paiban/shiftassign/pkg/logger"
	"github.com/paiban/shiftassign/pkg/model"
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

var (
	tenantID = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	actorID  = uuid.MustParse("00000000-0000-0000-0000-0000000000bb")
	// 2026-01-12 周一
	monday = time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	fixed  = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
)

func id(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
}

func newEmployee(n int) model.Employee {
	return model.Employee{ID: id(n), TenantID: tenantID, FullName: fmt.Sprintf("员工%d", n), Role: "nurse", IsActive: true}
}

func newShift(n, day, startHour, hours int) model.Shift {
	start := monday.AddDate(0, 0, day).Add(time.Duration(startHour) * time.Hour)
	return model.Shift{
		ID:        id(1000 + n),
		TenantID:  tenantID,
		StartTime: start,
		EndTime:   start.Add(time.Duration(hours) * time.Hour),
		RoleType:  "nurse",
		Status:    model.ShiftDraft,
	}
}

type fixture struct {
	store   *memstore.Store
	service *assign.Service
}

func newFixture(t *testing.T, opts ...assign.Option) *fixture {
	t.Helper()
	store := memstore.New()
	base := []assign.Option{
		assign.WithLogger(logger.NewAssignLoggerFrom(zerolog.Nop())),
		assign.WithClock(func() time.Time { return fixed }),
	}
	svc := assign.NewService(store, store, policy.NewProvider(store), append(base, opts...)...)
	return &fixture{store: store, service: svc}
}

func (f *fixture) apply(t *testing.T, items ...assign.Assignment) *assign.ApplyResult {
	t.Helper()
	res, err := f.service.Apply(context.Background(), assign.ApplyRequest{
		TenantID:    tenantID,
		WeekStart:   monday,
		ApplyTarget: "DRAFT",
		Assignments: items,
		ActorID:     &actorID,
	})
	require.NoError(t, err)
	return res
}

func TestPreview_RanksAndSummarizes(t *testing.T) {
	f := newFixture(t)
	a, b := newEmployee(1), newEmployee(2)
	f.store.AddEmployee(a)
	f.store.AddEmployee(b)

	// B 本周已有 8 小时
	booked := newShift(1, 0, 8, 8)
	booked.EmployeeID = &b.ID
	booked.Status = model.ShiftAssigned
	f.store.AddShift(booked)

	tue := newShift(2, 1, 8, 8)
	wed := newShift(3, 2, 8, 8)
	f.store.AddShift(wed)
	f.store.AddShift(tue)

	p, err := f.service.Preview(context.Background(), assign.PreviewRequest{TenantID: tenantID, WeekStart: monday, IncludeOpenShifts: true})
	require.NoError(t, err)

	assert.Equal(t, "2026-01-12", p.WeekStart)
	assert.Equal(t, model.DefaultWeights(), p.ScoringConfigUsed.Weights)
	require.Len(t, p.ShiftSuggestions, 2)
	assert.Equal(t, tue.ID, p.ShiftSuggestions[0].ShiftID)
	assert.Equal(t, wed.ID, p.ShiftSuggestions[1].ShiftID)
	assert.Empty(t, p.UnfilledShifts)

	for _, s := range p.ShiftSuggestions {
		require.NotNil(t, s.RecommendedEmployeeID)
		assert.Equal(t, a.ID, *s.RecommendedEmployeeID)
		require.Len(t, s.Candidates, 2)
		assert.Equal(t, s.Candidates[0].TotalScore, *s.RecommendedScore)
	}

	require.Len(t, p.FairnessSummary, 1)
	assert.Equal(t, a.ID, p.FairnessSummary[0].EmployeeID)
	assert.Equal(t, 2, p.FairnessSummary[0].RecommendedShiftCount)
	assert.Equal(t, 16.0, p.FairnessSummary[0].RecommendedHours)
	assert.Equal(t, 100.0, p.Coverage.OverallCoverage)

	// 预览只读
	_, ok := f.store.Shift(tue.ID)
	require.True(t, ok)
	assert.Empty(t, f.store.AuditLogs())
}

func TestPreview_OpenShiftsAndUnfilled(t *testing.T) {
	f := newFixture(t)
	a := newEmployee(1)
	f.store.AddEmployee(a)
	f.store.SetPreference(model.EmployeePreference{TenantID: tenantID, EmployeeID: a.ID, OpenShiftParticipationEnabled: false})

	open := newShift(1, 1, 8, 8)
	open.Status = model.ShiftOpen
	f.store.AddShift(open)
	cashier := newShift(2, 2, 8, 8)
	cashier.RoleType = "cashier"
	f.store.AddShift(cashier)

	p, err := f.service.Preview(context.Background(), assign.PreviewRequest{TenantID: tenantID, WeekStart: monday, IncludeOpenShifts: true})
	require.NoError(t, err)
	require.Len(t, p.ShiftSuggestions, 2)

	openSuggestion, ok := p.Suggestion(open.ID)
	require.True(t, ok)
	assert.Equal(t, []constraint.Note{constraint.NoteOpenShiftRecommendOnly}, openSuggestion.Notes)
	assert.Nil(t, openSuggestion.RecommendedEmployeeID)

	require.Len(t, p.UnfilledShifts, 2)
	assert.Equal(t, []constraint.ReasonCode{constraint.ReasonOpenShiftParticipation}, p.UnfilledShifts[0].Reasons)
	assert.Equal(t, []constraint.ReasonCode{constraint.ReasonSkillMismatch}, p.UnfilledShifts[1].Reasons)
	assert.Equal(t, 0.0, p.Coverage.OverallCoverage)

	p, err = f.service.Preview(context.Background(), assign.PreviewRequest{TenantID: tenantID, WeekStart: monday})
	require.NoError(t, err)
	require.Len(t, p.ShiftSuggestions, 1)
	assert.Equal(t, cashier.ID, p.ShiftSuggestions[0].ShiftID)
}

func TestPreview_NoEmployees(t *testing.T) {
	f := newFixture(t)
	s := newShift(1, 3, 8, 8)
	f.store.AddShift(s)

	p, err := f.service.Preview(context.Background(), assign.PreviewRequest{TenantID: tenantID, WeekStart: monday})
	require.NoError(t, err)
	require.Len(t, p.UnfilledShifts, 1)
	assert.Equal(t, []constraint.ReasonCode{constraint.ReasonNoEligibleCandidates}, p.UnfilledShifts[0].Reasons)
	assert.Empty(t, p.FairnessSummary)
}

func TestApply_FeedbackOnOverride(t *testing.T) {
	tests := []struct {
		name         string
		chosen       int
		wantFeedback int
	}{
		{"采纳引擎首选，不记录", 1, 0},
		{"人工改选，记录一次", 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.AddEmployee(newEmployee(1))
			f.store.AddEmployee(newEmployee(2))
			s := newShift(1, 1, 8, 8)
			f.store.AddShift(s)

			res := f.apply(t, assign.Assignment{ShiftID: s.ID, EmployeeID: id(tt.chosen)})
			require.Len(t, res.Applied, 1)
			assert.Empty(t, res.Rejected)
			assert.Equal(t, tt.wantFeedback, res.Overrides)

			records := f.store.FeedbackRecords()
			require.Len(t, records, tt.wantFeedback)
			if tt.wantFeedback == 1 {
				assert.Equal(t, model.ReasonManualOverride, records[0].ChangeReason)
				require.NotNil(t, records[0].OriginalEmployeeID)
				assert.Equal(t, id(1), *records[0].OriginalEmployeeID)
				assert.Equal(t, id(2), records[0].FinalEmployeeID)
			}

			got, _ := f.store.Shift(s.ID)
			require.NotNil(t, got.EmployeeID)
			assert.Equal(t, id(tt.chosen), *got.EmployeeID)
			assert.Equal(t, model.ShiftDraft, got.Status)

			logs := f.store.AuditLogs()
			require.Len(t, logs, 1)
			assert.Equal(t, model.ActionAssignmentApplied, logs[0].Action)
			assert.Equal(t, "week_start=2026-01-12", logs[0].Details)
			assert.Equal(t, &actorID, logs[0].ActorID)
		})
	}
}

func TestApply_TwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	f.store.AddEmployee(newEmployee(1))
	s := newShift(1, 1, 8, 8)
	f.store.AddShift(s)
	item := assign.Assignment{ShiftID: s.ID, EmployeeID: id(1)}

	first := f.apply(t, item)
	require.Len(t, first.Applied, 1)

	second := f.apply(t, item)
	assert.Empty(t, second.Applied)
	require.Len(t, second.Rejected, 1)
	assert.Equal(t, []constraint.ReasonCode{constraint.ReasonShiftAlreadyAssigned}, second.Rejected[0].Reasons)
	assert.Len(t, f.store.AuditLogs(), 1)
}

func TestApply_PerItemRejections(t *testing.T) {
	f := newFixture(t)
	f.store.AddEmployee(newEmployee(1))
	inactive := newEmployee(2)
	inactive.IsActive = false
	f.store.AddEmployee(inactive)
	f.store.AddEmployee(newEmployee(3))

	inWeek := newShift(1, 1, 8, 8)
	nextWeek := newShift(2, 8, 8, 8)
	overlapping := newShift(3, 1, 12, 8)
	f.store.AddShift(inWeek)
	f.store.AddShift(nextWeek)
	f.store.AddShift(overlapping)

	missing := id(9999)
	res := f.apply(t,
		assign.Assignment{ShiftID: missing, EmployeeID: id(1)},
		assign.Assignment{ShiftID: nextWeek.ID, EmployeeID: id(1)},
		assign.Assignment{ShiftID: inWeek.ID, EmployeeID: inactive.ID},
		assign.Assignment{ShiftID: inWeek.ID, EmployeeID: id(1)},
		// 同一批次内前一条写入对后续条目可见
		assign.Assignment{ShiftID: overlapping.ID, EmployeeID: id(1)},
	)

	require.Len(t, res.Applied, 1)
	assert.Equal(t, inWeek.ID, res.Applied[0].ShiftID)

	require.Len(t, res.Rejected, 4)
	assert.Equal(t, []constraint.ReasonCode{constraint.ReasonShiftNotFound}, res.Rejected[0].Reasons)
	assert.Equal(t, []constraint.ReasonCode{constraint.ReasonShiftOutsideWeek}, res.Rejected[1].Reasons)
	assert.Equal(t, []constraint.ReasonCode{constraint.ReasonEmployeeNotFound}, res.Rejected[2].Reasons)
	assert.Equal(t, []constraint.ReasonCode{
		constraint.ReasonMaxHoursDay,
		constraint.ReasonOverlappingShift,
	}, res.Rejected[3].Reasons)
}

func TestApply_UnsupportedTarget(t *testing.T) {
	f := newFixture(t)
	s := newShift(1, 1, 8, 8)
	f.store.AddShift(s)
	f.store.AddEmployee(newEmployee(1))

	_, err := f.service.Apply(context.Background(), assign.ApplyRequest{
		TenantID:    tenantID,
		WeekStart:   monday,
		ApplyTarget: "PUBLISHED",
		Assignments: []assign.Assignment{{ShiftID: s.ID, EmployeeID: id(1)}},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnsupportedApplyTarget, apperrors.GetCode(err))
	assert.Equal(t, 400, apperrors.GetHTTPStatus(err))

	got, _ := f.store.Shift(s.ID)
	assert.Nil(t, got.EmployeeID)

	// 大小写不敏感
	res, err := f.service.Apply(context.Background(), assign.ApplyRequest{
		TenantID:    tenantID,
		WeekStart:   monday,
		ApplyTarget: "draft",
		Assignments: []assign.Assignment{{ShiftID: s.ID, EmployeeID: id(1)}},
	})
	require.NoError(t, err)
	assert.Len(t, res.Applied, 1)
}

func TestApply_RollsBackOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.AddEmployee(newEmployee(1))
	f.store.AddEmployee(newEmployee(2))
	s1 := newShift(1, 1, 8, 8)
	s2 := newShift(2, 2, 8, 8)
	f.store.AddShift(s1)
	f.store.AddShift(s2)

	res := f.apply(t, assign.Assignment{ShiftID: s1.ID, EmployeeID: id(2)})
	require.Len(t, res.Applied, 1)
	require.Len(t, f.store.FeedbackRecords(), 1)

	// 改选记录和班次写入成功后审计写入失败
	boom := errors.New("disk full")
	f.store.FailOn("AppendAuditLog", boom)
	_, err := f.service.Apply(context.Background(), assign.ApplyRequest{
		TenantID:    tenantID,
		WeekStart:   monday,
		ApplyTarget: "DRAFT",
		Assignments: []assign.Assignment{{ShiftID: s2.ID, EmployeeID: id(2)}},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetCode(err))
	assert.ErrorIs(t, err, boom)

	got, _ := f.store.Shift(s2.ID)
	assert.Nil(t, got.EmployeeID, "失败的事务不应留下分配")
	assert.Len(t, f.store.FeedbackRecords(), 1, "失败的事务不应留下改选记录")
	assert.Len(t, f.store.AuditLogs(), 1)
}

func TestApply_LostConditionalWrite(t *testing.T) {
	f := newFixture(t)
	f.store.AddEmployee(newEmployee(1))
	f.store.AddEmployee(newEmployee(2))
	s := newShift(1, 1, 8, 8)
	f.store.AddShift(s)

	// 读取时班次仍未分配，写入时已被另一事务占用
	f.store.FailOn("AssignDraft", assign.ErrShiftAlreadyAssigned)

	res := f.apply(t, assign.Assignment{ShiftID: s.ID, EmployeeID: id(2)})
	assert.Empty(t, res.Applied)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, []constraint.ReasonCode{constraint.ReasonShiftAlreadyAssigned}, res.Rejected[0].Reasons)
	assert.Zero(t, res.Overrides)
	assert.Empty(t, f.store.FeedbackRecords(), "未占用班次不应写入改选记录")
	assert.Empty(t, f.store.AuditLogs())
}

type mapCache struct {
	entries map[string]*assign.Preview
	gets    int
}

func (c *mapCache) key(tenant uuid.UUID, week string) string { return tenant.String() + "/" + week }

func (c *mapCache) Get(_ context.Context, tenant uuid.UUID, week string) (*assign.Preview, bool, error) {
	c.gets++
	p, ok := c.entries[c.key(tenant, week)]
	return p, ok, nil
}

func (c *mapCache) Set(_ context.Context, tenant uuid.UUID, week string, p *assign.Preview) error {
	c.entries[c.key(tenant, week)] = p
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, tenant uuid.UUID, week string) error {
	delete(c.entries, c.key(tenant, week))
	return nil
}

func TestApply_CachedTopPick(t *testing.T) {
	cache := &mapCache{entries: make(map[string]*assign.Preview)}
	f := newFixture(t, assign.WithCache(cache, true))
	f.store.AddEmployee(newEmployee(1))
	f.store.AddEmployee(newEmployee(2))
	s := newShift(1, 1, 8, 8)
	f.store.AddShift(s)

	p, err := f.service.Preview(context.Background(), assign.PreviewRequest{TenantID: tenantID, WeekStart: monday, IncludeOpenShifts: true})
	require.NoError(t, err)
	require.Len(t, cache.entries, 1)

	// 第二次预览命中缓存
	again, err := f.service.Preview(context.Background(), assign.PreviewRequest{TenantID: tenantID, WeekStart: monday, IncludeOpenShifts: true})
	require.NoError(t, err)
	assert.Same(t, p, again)

	// 缓存中的原推荐被改写为员工 2，落地员工 2 不应产生改选记录
	two := id(2)
	p.ShiftSuggestions[0].RecommendedEmployeeID = &two

	res := f.apply(t, assign.Assignment{ShiftID: s.ID, EmployeeID: two})
	require.Len(t, res.Applied, 1)
	assert.Zero(t, res.Overrides)
	assert.Empty(t, f.store.FeedbackRecords())
	assert.Empty(t, cache.entries, "落地后缓存失效")
}

func TestPreview_CacheIgnoredAfterConfigChange(t *testing.T) {
	ctx := context.Background()
	cache := &mapCache{entries: make(map[string]*assign.Preview)}
	f := newFixture(t, assign.WithCache(cache, true))
	f.store.AddEmployee(newEmployee(1))
	f.store.AddEmployee(newEmployee(2))
	s := newShift(1, 1, 8, 8)
	f.store.AddShift(s)

	req := assign.PreviewRequest{TenantID: tenantID, WeekStart: monday, IncludeOpenShifts: true}
	first, err := f.service.Preview(ctx, req)
	require.NoError(t, err)
	require.Nil(t, first.ScoringConfigUsed.MinScoreThreshold)
	require.NotNil(t, first.ShiftSuggestions[0].RecommendedEmployeeID)

	threshold := 1000.0
	_, err = policy.NewProvider(f.store).UpdateScoringConfig(ctx, tenantID, model.ScoringConfigPatch{MinScoreThreshold: &threshold}, false)
	require.NoError(t, err)

	second, err := f.service.Preview(ctx, req)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	require.NotNil(t, second.ScoringConfigUsed.MinScoreThreshold)
	assert.Equal(t, 1000.0, *second.ScoringConfigUsed.MinScoreThreshold)
	assert.Nil(t, second.ShiftSuggestions[0].RecommendedEmployeeID)
	assert.Empty(t, second.ShiftSuggestions[0].Candidates)

	// 缓存已按新配置重写
	third, err := f.service.Preview(ctx, req)
	require.NoError(t, err)
	assert.Same(t, second, third)
}

func TestApply_CachedTopPickIgnoredAfterConfigChange(t *testing.T) {
	ctx := context.Background()
	cache := &mapCache{entries: make(map[string]*assign.Preview)}
	f := newFixture(t, assign.WithCache(cache, true))
	f.store.AddEmployee(newEmployee(1))
	f.store.AddEmployee(newEmployee(2))
	s := newShift(1, 1, 8, 8)
	f.store.AddShift(s)

	p, err := f.service.Preview(ctx, assign.PreviewRequest{TenantID: tenantID, WeekStart: monday, IncludeOpenShifts: true})
	require.NoError(t, err)
	// 缓存中的原推荐改为员工 2
	two := id(2)
	p.ShiftSuggestions[0].RecommendedEmployeeID = &two

	weight := 30.0
	_, err = policy.NewProvider(f.store).UpdateScoringConfig(ctx, tenantID, model.ScoringConfigPatch{SkillMatchWeight: &weight}, false)
	require.NoError(t, err)

	// 配置变更后重新计算原推荐为员工 1，落地员工 2 记为改选
	res := f.apply(t, assign.Assignment{ShiftID: s.ID, EmployeeID: two})
	require.Len(t, res.Applied, 1)
	assert.Equal(t, 1, res.Overrides)
	require.Len(t, f.store.FeedbackRecords(), 1)
	assert.Equal(t, id(1), *f.store.FeedbackRecords()[0].OriginalEmployeeID)
}
