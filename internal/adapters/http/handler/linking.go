package handler

import (
	"fmt"
	"net/http"

	"github.com/ogurasousui/employee-link-api/internal/core/linking"
)

const nothingToLinkMessage = "no unlinked employee or available user to link"

// UnlinkedOverview は未紐付けの社員と紐付け可能なユーザーを返します。
func (h *Handler) UnlinkedOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.linking.Overview(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toOverviewResponse(overview))
}

// PreviewAutoLink は自動紐付けの計画を適用せずに返します。
func (h *Handler) PreviewAutoLink(w http.ResponseWriter, r *http.Request) {
	plan, err := h.linking.PreviewPlan(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toPlanResponse(plan))
}

// AutoLink は単一 UPDATE による自動紐付けを実行します。
func (h *Handler) AutoLink(w http.ResponseWriter, r *http.Request) {
	result, err := h.linking.AutoLink(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toAutoLinkResponse(autoLinkMessage(result), result))
}

// AutoLinkPerPair はペアごとの条件付き UPDATE による自動紐付けを実行します。
// 1 件も紐付かずに失敗したペアがある場合は、まとめて 500 を返します。
func (h *Handler) AutoLinkPerPair(w http.ResponseWriter, r *http.Request) {
	result, err := h.linking.AutoLinkPerPair(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toAutoLinkResponse(autoLinkMessage(result), result))
}

func (h *Handler) ManualLink(w http.ResponseWriter, r *http.Request) {
	var req manualLinkRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	linked, err := h.linking.ManualLink(r.Context(), *req.EmployeeID, *req.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, manualLinkResponse{
		Message:    "employee linked to user",
		EmployeeID: linked.EmployeeID,
		UserID:     linked.UserID,
	})
}

func (h *Handler) Unlink(w http.ResponseWriter, r *http.Request) {
	var req unlinkRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	result, err := h.linking.Unlink(r.Context(), *req.EmployeeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	msg := "employee unlinked"
	if !result.Changed() {
		msg = "employee was not linked"
	}
	h.writeJSON(w, r, http.StatusOK, unlinkResponse{
		Message:        msg,
		EmployeeID:     result.EmployeeID,
		PreviousUserID: result.PreviousUserID,
		Changed:        result.Changed(),
	})
}

func autoLinkMessage(r *linking.ApplyResult) string {
	if r.NothingToLink() {
		return nothingToLinkMessage
	}
	return fmt.Sprintf("%d employee(s) linked automatically", r.Affected)
}
