package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paiban/shiftassign/internal/constraints"
	"github.com/paiban/shiftassign/internal/export"
	"github.com/paiban/shiftassign/internal/metrics"
	"github.com/paiban/shiftassign/internal/tenant"
	"github.com/paiban/shiftassign/pkg/assign"
	apperrors "github.com/paiban/shiftassign/pkg/errors"
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

// PreviewRequest 周预览请求
type PreviewRequest struct {
	WeekStart         string `json:"week_start" validate:"required"`
	IncludeOpenShifts bool   `json:"include_open_shifts"`
}

// ApplyRequest 落地请求
type ApplyRequest struct {
	WeekStart string `json:"week_start" validate:"required"`
	// ApplyTarget 为空时按 DRAFT 处理
	ApplyTarget string              `json:"apply_target"`
	Assignments []assign.Assignment `json:"assignments" validate:"dive"`
}

// Preview 生成周排班预览
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	preview, appErr := h.runPreview(r)
	if appErr != nil {
		respondError(w, r, appErr)
		return
	}
	respondJSON(w, http.StatusOK, preview)
}

// ExportPreview 生成周排班预览并以 Excel 下载
func (h *Handler) ExportPreview(w http.ResponseWriter, r *http.Request) {
	preview, appErr := h.runPreview(r)
	if appErr != nil {
		respondError(w, r, appErr)
		return
	}

	buf, filename, err := export.Preview(preview)
	if err != nil {
		respondError(w, r, apperrors.Wrap(err, apperrors.CodeInternal, "导出预览失败"))
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) runPreview(r *http.Request) (*assign.Preview, *apperrors.AppError) {
	tenantID, appErr := resolveTenant(r)
	if appErr != nil {
		return nil, appErr
	}

	var req PreviewRequest
	if appErr := h.decodeBody(r, &req); appErr != nil {
		return nil, appErr
	}
	weekStart, appErr := parseWeekStart(req.WeekStart)
	if appErr != nil {
		return nil, appErr
	}

	start := time.Now()
	preview, err := h.service.Preview(r.Context(), assign.PreviewRequest{
		TenantID:          tenantID,
		WeekStart:         weekStart,
		IncludeOpenShifts: req.IncludeOpenShifts,
	})
	metrics.RecordPreview(err == nil, time.Since(start))
	if err != nil {
		return nil, toAppError(err, "生成预览失败")
	}

	metrics.RecordFairness(tenantID.String(), preview.FairnessMetrics.HoursGini, preview.Coverage.OverallCoverage)
	return preview, nil
}

// Apply 落地人工确认的分配
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	tenantID, appErr := resolveTenant(r)
	if appErr != nil {
		respondError(w, r, appErr)
		return
	}

	var req ApplyRequest
	if appErr := h.decodeBody(r, &req); appErr != nil {
		respondError(w, r, appErr)
		return
	}
	weekStart, appErr := parseWeekStart(req.WeekStart)
	if appErr != nil {
		respondError(w, r, appErr)
		return
	}
	target := req.ApplyTarget
	if strings.TrimSpace(target) == "" {
		target = assign.ApplyTargetDraft
	}

	caller, _ := tenant.CallerFromContext(r.Context())
	result, err := h.service.Apply(r.Context(), assign.ApplyRequest{
		TenantID:    tenantID,
		WeekStart:   weekStart,
		ApplyTarget: target,
		Assignments: req.Assignments,
		ActorID:     caller.UserID,
	})
	if err != nil {
		respondError(w, r, toAppError(err, "落地分配失败"))
		return
	}

	rejections := make([][]string, len(result.Rejected))
	for i, rej := range result.Rejected {
		rejections[i] = constraint.ToStrings(rej.Reasons)
	}
	metrics.RecordApply(len(result.Applied), result.Overrides, rejections)

	respondJSON(w, http.StatusOK, result)
}

// ReasonCodes 返回原因码目录，可按 ?category= 过滤
func (h *Handler) ReasonCodes(w http.ResponseWriter, r *http.Request) {
	library := constraints.GetLibrary()
	if category := r.URL.Query().Get("category"); category != "" {
		library = constraints.GetByCategory(constraint.Category(strings.ToLower(category)))
	}
	respondJSON(w, http.StatusOK, constraints.LibraryResponse{Library: library})
}
