// Package tenant 提供多租户范围解析
package tenant

import (
	"context"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/paiban/shiftassign/pkg/errors"
)

// RoleSuperadmin 可跨租户操作的平台管理员角色
const RoleSuperadmin = "superadmin"

// Caller 发起请求的调用方，由网关透传的身份头构造
type Caller struct {
	UserID   *uuid.UUID `json:"user_id,omitempty"`
	Role     string     `json:"role"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
}

// IsSuperadmin 检查调用方是否为平台管理员
func (c Caller) IsSuperadmin() bool {
	return strings.EqualFold(strings.TrimSpace(c.Role), RoleSuperadmin)
}

// ResolveTenant 解析本次调用作用的租户
// 平台管理员优先使用显式租户，其次自身租户，都没有时返回 TENANT_REQUIRED；
// 其他调用方只能作用于自身租户，显式租户被忽略，无租户时返回 TENANT_FORBIDDEN
func ResolveTenant(caller Caller, explicit *uuid.UUID) (uuid.UUID, error) {
	if caller.IsSuperadmin() {
		if explicit != nil {
			return *explicit, nil
		}
		if caller.TenantID != nil {
			return *caller.TenantID, nil
		}
		return uuid.Nil, apperrors.TenantRequired("平台管理员请求必须指定 tenant_id")
	}

	if caller.TenantID == nil || *caller.TenantID == uuid.Nil {
		return uuid.Nil, apperrors.TenantForbidden("调用方未关联任何租户")
	}
	return *caller.TenantID, nil
}

type callerContextKey struct{}

// WithCaller 将调用方添加到上下文
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext 从上下文获取调用方
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(Caller)
	return caller, ok
}

type tenantContextKey struct{}

// WithTenantID 将已解析的租户添加到上下文
func WithTenantID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// IDFromContext 从上下文获取已解析的租户
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(tenantContextKey{}).(uuid.UUID)
	return id, ok
}
