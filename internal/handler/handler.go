// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/paiban/shiftassign/internal/policy"
	"github.com/paiban/shiftassign/internal/tenant"
	"github.com/paiban/shiftassign/pkg/assign"
	apperrors "github.com/paiban/shiftassign/pkg/errors"
	"github.com/paiban/shiftassign/pkg/feedback"
	"github.com/paiban/shiftassign/pkg/logger"
)

// Handler 分配引擎的 HTTP 适配层
type Handler struct {
	service  *assign.Service
	policies *policy.Provider
	advisor  *feedback.Advisor
	validate *validator.Validate
}

// New 创建处理器
func New(service *assign.Service, policies *policy.Provider, advisor *feedback.Advisor) *Handler {
	return &Handler{
		service:  service,
		policies: policies,
		advisor:  advisor,
		validate: validator.New(),
	}
}

// resolveTenant 根据调用方与 ?tenant_id= 解析作用租户
func resolveTenant(r *http.Request) (uuid.UUID, *apperrors.AppError) {
	var explicit *uuid.UUID
	if raw := r.URL.Query().Get("tenant_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, apperrors.InvalidInput("tenant_id", "不是合法的 UUID")
		}
		explicit = &id
	}

	caller, _ := tenant.CallerFromContext(r.Context())
	tenantID, err := tenant.ResolveTenant(caller, explicit)
	if err != nil {
		return uuid.Nil, toAppError(err, "解析租户失败")
	}
	return tenantID, nil
}

// parseWeekStart 解析 YYYY-MM-DD 格式的周起始日
func parseWeekStart(raw string) (time.Time, *apperrors.AppError) {
	t, err := time.Parse(assign.DateLayout, raw)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("week_start", "日期格式应为 YYYY-MM-DD")
	}
	return t, nil
}

// decodeBody 解析并校验 JSON 请求体
func (h *Handler) decodeBody(r *http.Request, dst interface{}) *apperrors.AppError {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败")
	}
	if err := h.validate.Struct(dst); err != nil {
		return apperrors.FromValidation(err)
	}
	return nil
}

// toAppError 非 AppError 的错误视为数据访问失败
func toAppError(err error, op string) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Database(err, op)
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, r *http.Request, err *apperrors.AppError) {
	if err.HTTPStatus >= http.StatusInternalServerError {
		logger.WithContext(r.Context()).Error().Err(err).Str("code", string(err.Code)).Msg("请求处理失败")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
		"fields":  err.Fields,
	})
}
