// Package middleware 提供HTTP中间件
package middleware

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/paiban/shiftassign/internal/metrics"
	"github.com/paiban/shiftassign/internal/security"
	"github.com/paiban/shiftassign/internal/tenant"
	apperrors "github.com/paiban/shiftassign/pkg/errors"
	"github.com/paiban/shiftassign/pkg/logger"
)

// RequestIDMiddleware 请求ID中间件
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logger.ContextWithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func generateRequestID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("req_%x", b)
}

// statusRecorder 记录响应状态码
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware 访问日志与请求指标，每个请求记录一条
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		route := routeTemplate(r)
		metrics.RecordRequestMetrics(r.Method, route, rec.status, duration)

		event := logger.WithContext(r.Context()).Info()
		if rec.status >= http.StatusInternalServerError {
			event = logger.WithContext(r.Context()).Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", rec.status).
			Dur("duration", duration).
			Str("remote", r.RemoteAddr).
			Msg("HTTP请求")
	})
}

// routeTemplate 返回匹配的路由模板，未匹配时返回原始路径
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// RecoveryMiddleware 恢复中间件（捕获panic）
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithContext(r.Context()).Error().
					Interface("panic", err).
					Str("path", r.URL.Path).
					Msg("Panic recovered")
				writeError(w, apperrors.New(apperrors.CodeInternal, "服务器内部错误"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// SecurityHeadersMiddleware 安全头中间件
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// CallerMiddleware 从网关身份头解析调用方并写入上下文
func CallerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := security.ExtractCaller(r)
		if err != nil {
			writeError(w, apperrors.Wrap(err, apperrors.CodeUnauthorized, "身份头格式无效"))
			return
		}

		ctx := tenant.WithCaller(r.Context(), caller)
		if caller.TenantID != nil {
			ctx = logger.ContextWithTenantID(ctx, caller.TenantID.String())
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimitMiddleware 按租户限流；平台管理员按显式租户计数
func RateLimitMiddleware(limiter *security.RateLimiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || limiter.Allow(rateKey(r)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", "1")
			writeError(w, apperrors.Wrap(security.ErrRateLimitExceeded, apperrors.CodeRateLimited, "请求频率超限"))
		})
	}
}

func rateKey(r *http.Request) string {
	caller, _ := tenant.CallerFromContext(r.Context())
	if caller.IsSuperadmin() {
		if explicit := r.URL.Query().Get("tenant_id"); explicit != "" {
			return "tenant:" + explicit
		}
	}
	if caller.TenantID != nil {
		return "tenant:" + caller.TenantID.String()
	}
	if caller.UserID != nil {
		return "user:" + caller.UserID.String()
	}
	return "addr:" + r.RemoteAddr
}

// TimeoutMiddleware 为请求上下文设置超时
func TimeoutMiddleware(timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.TimeoutHandler(next, timeout, `{"error":true,"code":"TIMEOUT","message":"请求超时"}`)
	}
}

func writeError(w http.ResponseWriter, err *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
	})
}
