package tenant

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/shiftassign/pkg/errors"
)

func TestResolveTenant(t *testing.T) {
	own := uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	other := uuid.MustParse("00000000-0000-0000-0000-0000000000a2")

	tests := []struct {
		name     string
		caller   Caller
		explicit *uuid.UUID
		want     uuid.UUID
		wantCode apperrors.Code
		status   int
	}{
		{
			name:     "管理员显式指定租户",
			caller:   Caller{Role: "superadmin", TenantID: &own},
			explicit: &other,
			want:     other,
		},
		{
			name:   "管理员回退到自身租户",
			caller: Caller{Role: "SuperAdmin", TenantID: &own},
			want:   own,
		},
		{
			name:     "管理员无租户",
			caller:   Caller{Role: "superadmin"},
			wantCode: apperrors.CodeTenantRequired,
			status:   http.StatusBadRequest,
		},
		{
			name:     "普通调用方忽略显式租户",
			caller:   Caller{Role: "admin", TenantID: &own},
			explicit: &other,
			want:     own,
		},
		{
			name:     "普通调用方无租户",
			caller:   Caller{Role: "admin"},
			explicit: &other,
			wantCode: apperrors.CodeTenantForbidden,
			status:   http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTenant(tt.caller, tt.explicit)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperrors.GetCode(err))
				assert.Equal(t, tt.status, apperrors.GetHTTPStatus(err))
				assert.Equal(t, uuid.Nil, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	_, ok := CallerFromContext(ctx)
	assert.False(t, ok)
	_, ok = IDFromContext(ctx)
	assert.False(t, ok)

	user := uuid.New()
	ctx = WithCaller(ctx, Caller{UserID: &user, Role: "admin"})
	caller, ok := CallerFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, &user, caller.UserID)
	assert.False(t, caller.IsSuperadmin())

	id := uuid.New()
	ctx = WithTenantID(ctx, id)
	got, ok := IDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, id, got)
}
