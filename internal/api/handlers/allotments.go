// allotments.go — обработчики /api/v1/allotments: журнал проживания.
package handlers

import (
	"net/http"

	apierrors "github.com/fazalktk93/accommodation-sub000/internal/api/errors"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
	"github.com/fazalktk93/accommodation-sub000/internal/service"
)

// CreateAllotment — POST /api/v1/allotments.
func (h *APIHandler) CreateAllotment(w http.ResponseWriter, r *http.Request) {
	var req allotmentCreateRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	a, err := h.allotments.CreateAllotment(r.Context(), req.HouseID, service.OccupantInput{
		AllotteeName:   req.AllotteeName,
		Designation:    req.Designation,
		CNIC:           req.CNIC,
		Directorate:    req.Directorate,
		PayScale:       req.PayScale,
		AllotmentDate:  req.AllotmentDate.timePtr(),
		OccupationDate: req.OccupationDate.timePtr(),
		AllotteeStatus: req.AllotteeStatus,
		Notes:          req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, "create_allotment", err)
		return
	}

	writeJSON(w, http.StatusCreated, mapAllotment(a))
}

// ListAllotments — GET /api/v1/allotments.
// Фильтры: house_id, active=true.
func (h *APIHandler) ListAllotments(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	f := repository.AllotmentFilter{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("house_id"); raw != "" {
		houseID, err := queryInt(r, "house_id")
		if err != nil || *houseID <= 0 {
			apierrors.ValidationError(w, "Параметр house_id должен быть положительным числом")
			return
		}
		id := int64(*houseID)
		f.HouseID = &id
	}
	switch r.URL.Query().Get("active") {
	case "", "false":
	case "true":
		f.ActiveOnly = true
	default:
		apierrors.ValidationError(w, "Параметр active должен быть true или false")
		return
	}

	items, total, err := h.allotments.ListAllotments(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, "list_allotments", err)
		return
	}

	writeJSON(w, http.StatusOK, newList(items, total, limit, offset, mapAllotment))
}

// GetAllotment — GET /api/v1/allotments/{id}.
func (h *APIHandler) GetAllotment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.allotments.GetAllotment(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "get_allotment", err)
		return
	}

	writeJSON(w, http.StatusOK, mapAllotment(a))
}

// UpdateAllotment — PATCH /api/v1/allotments/{id}.
func (h *APIHandler) UpdateAllotment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req allotmentUpdateRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	a, err := h.allotments.UpdateAllotment(r.Context(), id, service.AllotmentUpdate{
		AllotteeName:   req.AllotteeName,
		Designation:    req.Designation,
		CNIC:           req.CNIC,
		Directorate:    req.Directorate,
		PayScale:       req.PayScale,
		AllotmentDate:  req.AllotmentDate.timePtr(),
		OccupationDate: req.OccupationDate.timePtr(),
		VacationDate:   req.VacationDate.timePtr(),
		AllotteeStatus: req.AllotteeStatus,
		Notes:          req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, "update_allotment", err)
		return
	}

	writeJSON(w, http.StatusOK, mapAllotment(a))
}

// EndAllotment — POST /api/v1/allotments/{id}/end.
// Тело необязательно: без vacation_date используется сегодняшняя дата.
func (h *APIHandler) EndAllotment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req allotmentEndRequest
	if !h.decodeOptionalJSON(w, r, &req) {
		return
	}

	a, err := h.allotments.EndAllotment(r.Context(), id, req.VacationDate.timePtr(), req.Notes)
	if err != nil {
		h.writeServiceError(w, r, "end_allotment", err)
		return
	}

	writeJSON(w, http.StatusOK, mapAllotment(a))
}

// ReleaseAllotment — POST /api/v1/allotments/{id}/release.
// Отменяет активный аллотмент, заявка остаётся в статусе allotted.
func (h *APIHandler) ReleaseAllotment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.waiting.Release(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "release_allotment", err)
		return
	}

	writeJSON(w, http.StatusOK, mapAllotment(a))
}
