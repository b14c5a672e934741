package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestAppError_HTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
	}{
		{"缺少租户", TenantRequired("x"), http.StatusBadRequest},
		{"租户越权", TenantForbidden("x"), http.StatusForbidden},
		{"不支持的落地目标", UnsupportedApplyTarget("PUBLISHED"), http.StatusBadRequest},
		{"数据库错误", Database(fmt.Errorf("boom"), "查询失败"), http.StatusInternalServerError},
		{"不存在", NotFound("班次", "1"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatus(tt.err))
		})
	}
}

func TestWrap_Unwrap(t *testing.T) {
	cause := stderrors.New("连接断开")
	err := fmt.Errorf("外层: %w", Database(cause, "查询班次失败"))

	assert.True(t, Is(err, CodeDatabaseError))
	assert.Equal(t, CodeDatabaseError, GetCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
}

func TestFromValidation(t *testing.T) {
	type req struct {
		Weight float64 `validate:"gte=0"`
	}
	err := validator.New().Struct(req{Weight: -1})

	appErr := FromValidation(err)

	assert.Equal(t, CodeValidationFail, appErr.Code)
	assert.Equal(t, "gte=0", appErr.Fields["weight"])

	other := FromValidation(stderrors.New("bad json"))
	assert.Equal(t, CodeInvalidInput, other.Code)
}
