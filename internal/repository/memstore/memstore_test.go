package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/shiftassign/pkg/assign"
	"github.com/paiban/shiftassign/pkg/model"
)

func TestAssignDraft(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	shift := model.Shift{
		ID:        uuid.New(),
		TenantID:  tenantID,
		StartTime: time.Date(2026, 1, 13, 8, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 1, 13, 16, 0, 0, 0, time.UTC),
		Status:    model.ShiftOpen,
	}
	store := New()
	store.AddShift(shift)

	first, second := uuid.New(), uuid.New()
	require.NoError(t, store.AssignDraft(ctx, tenantID, shift.ID, first))

	err := store.AssignDraft(ctx, tenantID, shift.ID, second)
	assert.ErrorIs(t, err, assign.ErrShiftAlreadyAssigned)

	got, ok := store.Shift(shift.ID)
	require.True(t, ok)
	require.NotNil(t, got.EmployeeID)
	assert.Equal(t, first, *got.EmployeeID)
	assert.Equal(t, model.ShiftDraft, got.Status)

	err = store.AssignDraft(ctx, uuid.New(), shift.ID, second)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, assign.ErrShiftAlreadyAssigned), "跨租户按不存在处理")
}

func TestInTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	shift := model.Shift{ID: uuid.New(), TenantID: tenantID, Status: model.ShiftOpen}
	store := New()
	store.AddShift(shift)

	boom := errors.New("boom")
	err := store.InTx(ctx, func(s assign.Store) error {
		require.NoError(t, s.AssignDraft(ctx, tenantID, shift.ID, uuid.New()))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := store.Shift(shift.ID)
	assert.Nil(t, got.EmployeeID)
}
