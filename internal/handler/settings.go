package handler

import (
	"net/http"

	"github.com/paiban/shiftassign/pkg/model"
)

// UpdateScoringRequest 评分配置部分更新请求
type UpdateScoringRequest struct {
	model.ScoringConfigPatch
	// ClearMinScoreThreshold 清除阈值，优先于补丁中的 min_score_threshold
	ClearMinScoreThreshold bool `json:"clear_min_score_threshold"`
}

// GetScoringConfig 读取评分配置，不存在时按默认值创建
func (h *Handler) GetScoringConfig(w http.ResponseWriter, r *http.Request) {
	tenantID, appErr := resolveTenant(r)
	if appErr != nil {
		respondError(w, r, appErr)
		return
	}

	cfg, err := h.policies.EnsureScoringConfig(r.Context(), tenantID)
	if err != nil {
		respondError(w, r, toAppError(err, "读取评分配置失败"))
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// UpdateScoringConfig 部分更新评分配置
func (h *Handler) UpdateScoringConfig(w http.ResponseWriter, r *http.Request) {
	tenantID, appErr := resolveTenant(r)
	if appErr != nil {
		respondError(w, r, appErr)
		return
	}

	var req UpdateScoringRequest
	if appErr := h.decodeBody(r, &req); appErr != nil {
		respondError(w, r, appErr)
		return
	}

	cfg, err := h.policies.UpdateScoringConfig(r.Context(), tenantID, req.ScoringConfigPatch, req.ClearMinScoreThreshold)
	if err != nil {
		respondError(w, r, toAppError(err, "更新评分配置失败"))
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// ClearScoreThreshold 清除最低分阈值
func (h *Handler) ClearScoreThreshold(w http.ResponseWriter, r *http.Request) {
	tenantID, appErr := resolveTenant(r)
	if appErr != nil {
		respondError(w, r, appErr)
		return
	}

	cfg, err := h.policies.ClearScoreThreshold(r.Context(), tenantID)
	if err != nil {
		respondError(w, r, toAppError(err, "清除阈值失败"))
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// Optimization 返回基于近期改选的权重优化建议
func (h *Handler) Optimization(w http.ResponseWriter, r *http.Request) {
	tenantID, appErr := resolveTenant(r)
	if appErr != nil {
		respondError(w, r, appErr)
		return
	}

	analysis, err := h.advisor.Analyze(r.Context(), tenantID)
	if err != nil {
		respondError(w, r, toAppError(err, "分析改选记录失败"))
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}
