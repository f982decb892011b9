package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ogurasousui/employee-link-api/internal/core/employee"
)

// ListEmployees は社員一覧を返します。departement, statut, linked で絞り込めます。
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var in employee.ListEmployeesInput
	if query.Has("departement") {
		v := query.Get("departement")
		in.Departement = &v
	}
	if query.Has("statut") {
		v := query.Get("statut")
		in.Statut = &v
	}
	if query.Has("linked") {
		linked, err := strconv.ParseBool(query.Get("linked"))
		if err != nil {
			h.badRequest(w, r, fmt.Errorf("linked must be true or false, got %q", query.Get("linked")))
			return
		}
		in.Linked = &linked
	}

	employees, err := h.employees.ListEmployees(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res := make([]employeeResponse, 0, len(employees))
	for _, e := range employees {
		res = append(res, toEmployeeResponse(e))
	}
	h.writeJSON(w, r, http.StatusOK, res)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	found, err := h.employees.GetEmployee(r.Context(), employee.GetEmployeeInput{ID: id})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toEmployeeResponse(found))
}

func (h *Handler) GetEmployeeByUserID(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	found, err := h.employees.GetEmployeeByUserID(r.Context(), employee.GetEmployeeByUserIDInput{UserID: userID})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toEmployeeResponse(found))
}

// CreateEmployee は社員を作成し、201 で作成結果を返します。
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	created, err := h.employees.CreateEmployee(r.Context(), req.toInput())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, toEmployeeResponse(created))
}

// UpdateEmployee は送信されたキーのみを更新します。
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	var req updateEmployeeRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	updated, err := h.employees.UpdateEmployee(r.Context(), employee.UpdateEmployeeInput{ID: id, Patch: req.toPatch()})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toEmployeeResponse(updated))
}

func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.employees.DeleteEmployee(r.Context(), employee.DeleteEmployeeInput{ID: id}); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, messageResponse{Message: "employee deleted"})
}
