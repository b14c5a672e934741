package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"

	"github.com/paiban/shiftassign/internal/metrics"
	"github.com/paiban/shiftassign/internal/middleware"
	"github.com/paiban/shiftassign/internal/security"
)

// BuildInfo 构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// HealthChecker 依赖的健康检查
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterConfig 路由配置
type RouterConfig struct {
	Limiter *security.RateLimiter
	Timeout time.Duration
	// MetricsPath 为空时不暴露监控端点
	MetricsPath string
	Build       BuildInfo
	Checks      map[string]HealthChecker
}

// NewRouter 创建路由
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()
	r.Use(
		middleware.RequestIDMiddleware,
		middleware.LoggingMiddleware,
		middleware.RecoveryMiddleware,
		middleware.SecurityHeadersMiddleware,
	)

	r.HandleFunc("/health", healthHandler(cfg.Checks)).Methods(http.MethodGet)
	r.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, cfg.Build)
	}).Methods(http.MethodGet)
	if cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(
		middleware.CallerMiddleware,
		middleware.RateLimitMiddleware(cfg.Limiter),
		middleware.TimeoutMiddleware(cfg.Timeout),
	)

	// 分配
	api.HandleFunc("/assign/preview", h.Preview).Methods(http.MethodPost)
	api.HandleFunc("/assign/preview/export", h.ExportPreview).Methods(http.MethodPost)
	api.HandleFunc("/assign/apply", h.Apply).Methods(http.MethodPost)
	api.HandleFunc("/assign/reason-codes", h.ReasonCodes).Methods(http.MethodGet)

	// 评分配置
	api.HandleFunc("/settings/scoring", h.GetScoringConfig).Methods(http.MethodGet)
	api.HandleFunc("/settings/scoring", h.UpdateScoringConfig).Methods(http.MethodPut)
	api.HandleFunc("/settings/scoring/threshold", h.ClearScoreThreshold).Methods(http.MethodDelete)
	api.HandleFunc("/scoring/optimization", h.Optimization).Methods(http.MethodGet)

	return r
}

// healthHandler 逐个检查依赖，任一失败返回 503
func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		status := http.StatusOK
		components := make(map[string]string, len(checks))
		for _, name := range names {
			if err := checks[name].Health(ctx); err != nil {
				components[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		respondJSON(w, status, map[string]interface{}{
			"status":     overall,
			"service":    "shiftassign",
			"components": components,
		})
	}
}
