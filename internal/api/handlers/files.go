// files.go — обработчики движения бумажных дел: выдача, возврат, журнал.
package handlers

import (
	"net/http"

	apierrors "github.com/fazalktk93/accommodation-sub000/internal/api/errors"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/service"
)

// IssueFile — POST /api/v1/files/issue.
// Дом задаётся house_id или file_no.
func (h *APIHandler) IssueFile(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if (req.HouseID == nil) == (req.FileNo == nil) {
		apierrors.ValidationError(w, "Требуется ровно одно из полей house_id или file_no")
		return
	}

	in := service.IssueInput{
		ToWhom:  req.ToWhom,
		Remarks: req.Remarks,
		MovedBy: movedBy(r),
	}

	var (
		m   *model.FileMovement
		err error
	)
	if req.HouseID != nil {
		m, err = h.custody.Issue(r.Context(), *req.HouseID, in)
	} else {
		m, err = h.custody.IssueByFileNo(r.Context(), *req.FileNo, in)
	}
	if err != nil {
		h.writeServiceError(w, r, "issue_file", err)
		return
	}

	writeJSON(w, http.StatusCreated, mapMovement(m))
}

// ReceiveFile — POST /api/v1/files/movements/{id}/receive.
// id — запись выдачи, которую закрывает возврат.
func (h *APIHandler) ReceiveFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req receiveRequest
	if !h.decodeOptionalJSON(w, r, &req) {
		return
	}

	m, err := h.custody.Receive(r.Context(), id, req.Remarks, movedBy(r))
	if err != nil {
		h.writeServiceError(w, r, "receive_file", err)
		return
	}

	writeJSON(w, http.StatusCreated, mapMovement(m))
}

// ListMovements — GET /api/v1/files/movements.
// Фильтр house_id необязателен, записи — новые первыми.
func (h *APIHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	var houseID *int64
	if r.URL.Query().Get("house_id") != "" {
		v, err := queryInt(r, "house_id")
		if err != nil || *v <= 0 {
			apierrors.ValidationError(w, "Параметр house_id должен быть положительным числом")
			return
		}
		id := int64(*v)
		houseID = &id
	}

	items, total, err := h.custody.ListMovements(r.Context(), houseID, limit, offset)
	if err != nil {
		h.writeServiceError(w, r, "list_movements", err)
		return
	}

	writeJSON(w, http.StatusOK, newList(items, total, limit, offset, mapMovement))
}

// ListOpenMovements — GET /api/v1/files/open.
// Дела, находящиеся на руках.
func (h *APIHandler) ListOpenMovements(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	items, total, err := h.custody.ListOpenMovements(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, "list_open_movements", err)
		return
	}

	writeJSON(w, http.StatusOK, newList(items, total, limit, offset, mapMovement))
}

// GetOpenMovement — GET /api/v1/houses/{id}/open-movement.
// 404, если дело дома не выдано.
func (h *APIHandler) GetOpenMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	m, err := h.custody.GetOpenMovement(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "get_open_movement", err)
		return
	}

	writeJSON(w, http.StatusOK, mapMovement(m))
}
