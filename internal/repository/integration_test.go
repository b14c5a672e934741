//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/paiban/shiftassign/internal/config"
	"github.com/paiban/shiftassign/internal/database"
	"github.com/paiban/shiftassign/internal/policy"
	"github.com/paiban/shiftassign/pkg/assign"
	"github.com/paiban/shiftassign/pkg/logger"
	"github.com/paiban/shiftassign/pkg/model"
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

// 运行: go test -tags integration ./internal/repository/...
var testDB *database.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("shiftassign_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "启动 PostgreSQL 容器失败: %v\n", err)
		os.Exit(1)
	}

	code := func() int {
		defer container.Terminate(ctx)

		host, err := container.Host(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "获取容器地址失败: %v\n", err)
			return 1
		}
		port, err := container.MappedPort(ctx, "5432/tcp")
		if err != nil {
			fmt.Fprintf(os.Stderr, "获取容器端口失败: %v\n", err)
			return 1
		}

		testDB, err = database.New(&config.DatabaseConfig{
			Host:         host,
			Port:         port.Int(),
			Name:         "shiftassign_test",
			User:         "test",
			Password:     "test",
			SSLMode:      "disable",
			MaxOpenConns: 5,
			MaxIdleConns: 2,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "连接测试数据库失败: %v\n", err)
			return 1
		}
		defer testDB.Close()

		if err := testDB.Migrate(); err != nil {
			fmt.Fprintf(os.Stderr, "执行迁移失败: %v\n", err)
			return 1
		}
		return m.Run()
	}()
	os.Exit(code)
}

type seeded struct {
	tenantID  uuid.UUID
	employees []uuid.UUID
	shiftID   uuid.UUID
	weekStart time.Time
}

// seedWeek 写入一个租户、两名护士和一个周二白班
func seedWeek(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	s := seeded{
		tenantID:  uuid.New(),
		employees: []uuid.UUID{uuid.New(), uuid.New()},
		shiftID:   uuid.New(),
		weekStart: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
	}
	for i, id := range s.employees {
		_, err := testDB.ExecContext(ctx,
			`INSERT INTO employees (id, tenant_id, full_name, role, is_active) VALUES ($1, $2, $3, 'nurse', TRUE)`,
			id, s.tenantID, fmt.Sprintf("员工%d", i+1))
		require.NoError(t, err)
	}
	start := s.weekStart.AddDate(0, 0, 1).Add(8 * time.Hour)
	_, err := testDB.ExecContext(ctx,
		`INSERT INTO shifts (id, tenant_id, start_time, end_time, role_type, status) VALUES ($1, $2, $3, $4, 'nurse', 'draft')`,
		s.shiftID, s.tenantID, start, start.Add(8*time.Hour))
	require.NoError(t, err)
	return s
}

func newService(store *Store) *assign.Service {
	return assign.NewService(store, store, policy.NewProvider(store),
		assign.WithLogger(logger.NewAssignLoggerFrom(zerolog.Nop())))
}

func TestPostgres_PreviewAndApply(t *testing.T) {
	ctx := context.Background()
	data := seedWeek(t)
	store := New(testDB)
	svc := newService(store)

	preview, err := svc.Preview(ctx, assign.PreviewRequest{TenantID: data.tenantID, WeekStart: data.weekStart})
	require.NoError(t, err)
	require.Len(t, preview.ShiftSuggestions, 1)
	suggestion := preview.ShiftSuggestions[0]
	require.NotNil(t, suggestion.RecommendedEmployeeID)
	assert.Len(t, suggestion.Candidates, 2)

	// 选择非推荐人选，产生改选记录
	chosen := data.employees[0]
	if *suggestion.RecommendedEmployeeID == chosen {
		chosen = data.employees[1]
	}
	actor := uuid.New()
	result, err := svc.Apply(ctx, assign.ApplyRequest{
		TenantID:    data.tenantID,
		WeekStart:   data.weekStart,
		ApplyTarget: assign.ApplyTargetDraft,
		Assignments: []assign.Assignment{{ShiftID: data.shiftID, EmployeeID: chosen}},
		ActorID:     &actor,
	})
	require.NoError(t, err)
	require.Len(t, result.Applied, 1)
	assert.Equal(t, 1, result.Overrides)

	shift, err := store.GetShift(ctx, data.tenantID, data.shiftID)
	require.NoError(t, err)
	require.NotNil(t, shift.EmployeeID)
	assert.Equal(t, chosen, *shift.EmployeeID)
	assert.Equal(t, model.ShiftDraft, shift.Status)

	var audits int
	require.NoError(t, testDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assignment_audit_logs WHERE tenant_id = $1 AND created_by_user_id = $2`,
		data.tenantID, actor).Scan(&audits))
	assert.Equal(t, 1, audits)

	since := time.Now().Add(-time.Hour)
	count, err := store.CountFeedbackSince(ctx, data.tenantID, since)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	tenants, err := store.TenantsWithFeedbackSince(ctx, since)
	require.NoError(t, err)
	assert.Contains(t, tenants, data.tenantID)

	// 再次落地同一班次被拒绝，不重复写入
	result, err = svc.Apply(ctx, assign.ApplyRequest{
		TenantID:    data.tenantID,
		WeekStart:   data.weekStart,
		ApplyTarget: assign.ApplyTargetDraft,
		Assignments: []assign.Assignment{{ShiftID: data.shiftID, EmployeeID: chosen}},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Applied)
	require.Len(t, result.Rejected, 1)
	assert.Contains(t, result.Rejected[0].Reasons, constraint.ReasonShiftAlreadyAssigned)

	count, err = store.CountFeedbackSince(ctx, data.tenantID, since)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPostgres_ConcurrentApplySameShift(t *testing.T) {
	ctx := context.Background()
	data := seedWeek(t)
	store := New(testDB)
	svc := newService(store)

	var wg sync.WaitGroup
	results := make([]*assign.ApplyResult, len(data.employees))
	errs := make([]error, len(data.employees))
	for i, emp := range data.employees {
		wg.Add(1)
		go func(i int, emp uuid.UUID) {
			defer wg.Done()
			results[i], errs[i] = svc.Apply(ctx, assign.ApplyRequest{
				TenantID:    data.tenantID,
				WeekStart:   data.weekStart,
				ApplyTarget: assign.ApplyTargetDraft,
				Assignments: []assign.Assignment{{ShiftID: data.shiftID, EmployeeID: emp}},
			})
		}(i, emp)
	}
	wg.Wait()

	applied, rejected := 0, 0
	var winner uuid.UUID
	for i, res := range results {
		require.NoError(t, errs[i])
		applied += len(res.Applied)
		rejected += len(res.Rejected)
		if len(res.Applied) == 1 {
			winner = res.Applied[0].EmployeeID
		}
		for _, rej := range res.Rejected {
			assert.Equal(t, []constraint.ReasonCode{constraint.ReasonShiftAlreadyAssigned}, rej.Reasons)
		}
	}
	assert.Equal(t, 1, applied, "同一班次只能落地一次")
	assert.Equal(t, 1, rejected)

	shift, err := store.GetShift(ctx, data.tenantID, data.shiftID)
	require.NoError(t, err)
	require.NotNil(t, shift.EmployeeID)
	assert.Equal(t, winner, *shift.EmployeeID)

	var audits int
	require.NoError(t, testDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assignment_audit_logs WHERE shift_id = $1`, data.shiftID).Scan(&audits))
	assert.Equal(t, 1, audits)
}

func TestPostgres_AssignDraftConditional(t *testing.T) {
	ctx := context.Background()
	data := seedWeek(t)
	store := New(testDB)

	require.NoError(t, store.AssignDraft(ctx, data.tenantID, data.shiftID, data.employees[0]))
	err := store.AssignDraft(ctx, data.tenantID, data.shiftID, data.employees[1])
	assert.ErrorIs(t, err, assign.ErrShiftAlreadyAssigned)

	err = store.AssignDraft(ctx, data.tenantID, uuid.New(), data.employees[1])
	require.Error(t, err)
	assert.NotErrorIs(t, err, assign.ErrShiftAlreadyAssigned)

	shift, err := store.GetShift(ctx, data.tenantID, data.shiftID)
	require.NoError(t, err)
	assert.Equal(t, data.employees[0], *shift.EmployeeID)
}

func TestPostgres_ScoringConfig(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	provider := policy.NewProvider(New(testDB))

	first, err := provider.EnsureScoringConfig(ctx, tenantID)
	require.NoError(t, err)
	second, err := provider.EnsureScoringConfig(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "重复创建应返回同一配置")

	weight := 40.0
	threshold := 55.0
	updated, err := provider.UpdateScoringConfig(ctx, tenantID, model.ScoringConfigPatch{
		SkillMatchWeight:  &weight,
		MinScoreThreshold: &threshold,
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 40.0, updated.SkillMatch)
	require.NotNil(t, updated.MinScoreThreshold)
	assert.Equal(t, 55.0, *updated.MinScoreThreshold)

	cleared, err := provider.ClearScoreThreshold(ctx, tenantID)
	require.NoError(t, err)
	assert.Nil(t, cleared.MinScoreThreshold)
	assert.Equal(t, 40.0, cleared.SkillMatch)
}

func TestPostgres_MigrateDownUp(t *testing.T) {
	require.NoError(t, testDB.MigrateDown(1))

	var exists bool
	require.NoError(t, testDB.QueryRowContext(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'shifts')`).Scan(&exists))
	assert.False(t, exists)

	require.NoError(t, testDB.Migrate())
	require.NoError(t, testDB.QueryRowContext(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'shifts')`).Scan(&exists))
	assert.True(t, exists)
}
