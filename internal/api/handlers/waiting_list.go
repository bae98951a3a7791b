// waiting_list.go — обработчики листа ожидания: разряды, сотрудники,
// заявки, очередь и назначение дома.
package handlers

import (
	"bytes"
	"net/http"

	apierrors "github.com/fazalktk93/accommodation-sub000/internal/api/errors"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
	"github.com/fazalktk93/accommodation-sub000/internal/service"
	"github.com/fazalktk93/accommodation-sub000/internal/xlsx"
)

// CreateBps — POST /api/v1/bps.
func (h *APIHandler) CreateBps(w http.ResponseWriter, r *http.Request) {
	var req bpsRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	b, err := h.waiting.CreateBps(r.Context(), req.Code, req.Rank)
	if err != nil {
		h.writeServiceError(w, r, "create_bps", err)
		return
	}

	writeJSON(w, http.StatusCreated, mapBps(b))
}

// ListBps — GET /api/v1/bps.
func (h *APIHandler) ListBps(w http.ResponseWriter, r *http.Request) {
	items, err := h.waiting.ListBps(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "list_bps", err)
		return
	}

	out := make([]bpsResponse, 0, len(items))
	for _, b := range items {
		out = append(out, mapBps(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// CreateEmployee — POST /api/v1/employees.
func (h *APIHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	e, err := h.waiting.CreateEmployee(r.Context(), service.EmployeeInput{
		Name:        req.Name,
		Designation: req.Designation,
		CNIC:        req.CNIC,
		Directorate: req.Directorate,
		BpsID:       req.BpsID,
	})
	if err != nil {
		h.writeServiceError(w, r, "create_employee", err)
		return
	}

	writeJSON(w, http.StatusCreated, mapEmployee(e))
}

// GetEmployee — GET /api/v1/employees/{id}.
func (h *APIHandler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	e, err := h.waiting.GetEmployee(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "get_employee", err)
		return
	}

	writeJSON(w, http.StatusOK, mapEmployee(e))
}

// SubmitApplication — POST /api/v1/applications.
func (h *APIHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	var req applicationRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	a, err := h.waiting.SubmitApplication(r.Context(), service.ApplicationInput{
		EmployeeID:      req.EmployeeID,
		BpsID:           req.BpsID,
		PreferredSector: req.PreferredSector,
		PriorityPoints:  req.PriorityPoints,
		Remarks:         req.Remarks,
	})
	if err != nil {
		h.writeServiceError(w, r, "submit_application", err)
		return
	}

	writeJSON(w, http.StatusCreated, mapApplication(a))
}

// GetApplication — GET /api/v1/applications/{id}.
func (h *APIHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.waiting.GetApplication(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "get_application", err)
		return
	}

	writeJSON(w, http.StatusOK, mapApplication(a))
}

// ApproveApplication — POST /api/v1/applications/{id}/approve.
// Ставит заявку в очередь, повторный вызов возвращает ту же позицию.
func (h *APIHandler) ApproveApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	e, err := h.waiting.Approve(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "approve_application", err)
		return
	}

	writeJSON(w, http.StatusOK, mapWaitingEntry(e))
}

// RejectApplication — POST /api/v1/applications/{id}/reject.
func (h *APIHandler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.waiting.RejectApplication(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "reject_application", err)
		return
	}

	writeJSON(w, http.StatusOK, mapApplication(a))
}

// ListWaiting — GET /api/v1/waiting-list.
// Фильтры: status (статус заявки), sector (желаемый сектор).
func (h *APIHandler) ListWaiting(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	f, ok := waitingFilter(w, r)
	if !ok {
		return
	}
	f.Limit, f.Offset = limit, offset

	items, total, err := h.waiting.List(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, "list_waiting", err)
		return
	}

	writeJSON(w, http.StatusOK, newList(items, total, limit, offset, mapWaitingEntry))
}

// waitingFilter читает фильтры листа ожидания из query.
func waitingFilter(w http.ResponseWriter, r *http.Request) (repository.WaitingFilter, bool) {
	f := repository.WaitingFilter{
		Status: queryString(r, "status"),
		Sector: queryString(r, "sector"),
	}
	if f.Status != nil {
		switch *f.Status {
		case model.ApplicationPending, model.ApplicationApproved,
			model.ApplicationRejected, model.ApplicationAllotted:
		default:
			apierrors.ValidationError(w, "Недопустимый статус заявки: "+*f.Status)
			return f, false
		}
	}
	return f, true
}

// ExportWaiting — GET /api/v1/waiting-list/export.
// Выгружает очередь целиком в порядке приоритета.
func (h *APIHandler) ExportWaiting(w http.ResponseWriter, r *http.Request) {
	f, ok := waitingFilter(w, r)
	if !ok {
		return
	}

	items, _, err := h.waiting.List(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, "export_waiting", err)
		return
	}

	var buf bytes.Buffer
	if err := xlsx.WriteWaitingList(&buf, items); err != nil {
		h.writeServiceError(w, r, "export_waiting", err)
		return
	}

	writeXLSX(w, "waiting-list", buf.Bytes())
}

// AssignHouse — POST /api/v1/waiting-list/{id}/assign.
// Создаёт аллотмент по позиции очереди, заявка получает статус allotted.
func (h *APIHandler) AssignHouse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req assignRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	a, err := h.waiting.Assign(r.Context(), id, req.HouseID)
	if err != nil {
		h.writeServiceError(w, r, "assign_house", err)
		return
	}

	writeJSON(w, http.StatusCreated, mapAllotment(a))
}
