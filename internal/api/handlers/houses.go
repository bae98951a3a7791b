// houses.go — обработчики /api/v1/houses: реестр домов,
// пересчёт статуса, импорт и экспорт таблиц.
package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/fazalktk93/accommodation-sub000/internal/api/errors"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
	"github.com/fazalktk93/accommodation-sub000/internal/service"
	"github.com/fazalktk93/accommodation-sub000/internal/xlsx"
)

// maxImportBody — предельный размер загружаемой книги xlsx.
const maxImportBody = 20 << 20

// xlsxContentType — MIME-тип книги Excel.
const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CreateHouse — POST /api/v1/houses.
func (h *APIHandler) CreateHouse(w http.ResponseWriter, r *http.Request) {
	var req houseCreateRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	house, err := h.houses.CreateHouse(r.Context(), service.HouseInput{
		FileNo:       req.FileNo,
		QtrNo:        req.QtrNo,
		Street:       req.Street,
		Sector:       req.Sector,
		TypeCode:     req.TypeCode,
		Status:       req.Status,
		StatusManual: req.StatusManual,
	})
	if err != nil {
		h.writeServiceError(w, r, "create_house", err)
		return
	}

	writeJSON(w, http.StatusCreated, mapHouse(house))
}

// ListHouses — GET /api/v1/houses.
// Фильтры: q, sector, type_code, status; сортировка: sort, order=asc|desc.
func (h *APIHandler) ListHouses(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	f, ok := houseFilter(w, r)
	if !ok {
		return
	}
	f.Limit, f.Offset = limit, offset

	items, total, err := h.houses.ListHouses(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, "list_houses", err)
		return
	}

	writeJSON(w, http.StatusOK, newList(items, total, limit, offset, mapHouse))
}

// houseFilter читает фильтры списка домов из query.
func houseFilter(w http.ResponseWriter, r *http.Request) (repository.HouseFilter, bool) {
	q := r.URL.Query()
	f := repository.HouseFilter{
		Query:    q.Get("q"),
		Sector:   queryString(r, "sector"),
		TypeCode: queryString(r, "type_code"),
		Status:   queryString(r, "status"),
		Sort:     q.Get("sort"),
	}
	switch strings.ToLower(q.Get("order")) {
	case "", "asc":
	case "desc":
		f.Desc = true
	default:
		apierrors.ValidationError(w, "Параметр order должен быть asc или desc")
		return f, false
	}
	return f, true
}

// GetHouse — GET /api/v1/houses/{id}.
func (h *APIHandler) GetHouse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	house, err := h.houses.GetHouse(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "get_house", err)
		return
	}

	writeJSON(w, http.StatusOK, mapHouse(house))
}

// GetHouseByFileNo — GET /api/v1/houses/by-file-no/{fileNo}.
func (h *APIHandler) GetHouseByFileNo(w http.ResponseWriter, r *http.Request) {
	fileNo := strings.TrimSpace(chi.URLParam(r, "fileNo"))
	if fileNo == "" {
		apierrors.ValidationError(w, "Номер дела обязателен")
		return
	}

	house, err := h.houses.GetHouseByFileNo(r.Context(), fileNo)
	if err != nil {
		h.writeServiceError(w, r, "get_house_by_file_no", err)
		return
	}

	writeJSON(w, http.StatusOK, mapHouse(house))
}

// UpdateHouse — PATCH /api/v1/houses/{id}.
func (h *APIHandler) UpdateHouse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req houseUpdateRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	house, err := h.houses.UpdateHouse(r.Context(), id, service.HouseUpdate{
		FileNo:       req.FileNo,
		QtrNo:        req.QtrNo,
		Street:       req.Street,
		Sector:       req.Sector,
		TypeCode:     req.TypeCode,
		Status:       req.Status,
		StatusManual: req.StatusManual,
	})
	if err != nil {
		h.writeServiceError(w, r, "update_house", err)
		return
	}

	writeJSON(w, http.StatusOK, mapHouse(house))
}

// DeleteHouse — DELETE /api/v1/houses/{id}.
func (h *APIHandler) DeleteHouse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.houses.DeleteHouse(r.Context(), id); err != nil {
		h.writeServiceError(w, r, "delete_house", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RecomputeHouseStatus — POST /api/v1/houses/{id}/recompute-status.
func (h *APIHandler) RecomputeHouseStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	house, err := h.status.RecomputeHouse(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "recompute_house", err)
		return
	}

	writeJSON(w, http.StatusOK, mapHouse(house))
}

// RecomputeAllStatuses — POST /api/v1/houses/recompute-status.
func (h *APIHandler) RecomputeAllStatuses(w http.ResponseWriter, r *http.Request) {
	res, err := h.status.RecomputeAll(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "recompute_all", err)
		return
	}

	writeJSON(w, http.StatusOK, recomputeAllResponse{Checked: res.Checked, Changed: res.Changed})
}

// ImportHouses — POST /api/v1/houses/import.
// Тело запроса — книга xlsx (или multipart-поле file).
func (h *APIHandler) ImportHouses(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)

	body := r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			apierrors.ValidationError(w, "Ожидается поле file с книгой xlsx: "+err.Error())
			return
		}
		defer file.Close()
		body = file
	}

	rows, err := xlsx.ReadHouses(body)
	if err != nil {
		apierrors.ValidationError(w, "Не удалось прочитать книгу: "+err.Error())
		return
	}

	res, err := h.houses.ImportHouses(r.Context(), rows)
	if err != nil {
		h.writeServiceError(w, r, "import_houses", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ExportHouses — GET /api/v1/houses/export.
// Выгружает дома по тем же фильтрам, что и список, без пагинации.
func (h *APIHandler) ExportHouses(w http.ResponseWriter, r *http.Request) {
	f, ok := houseFilter(w, r)
	if !ok {
		return
	}

	items, _, err := h.houses.ListHouses(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, "export_houses", err)
		return
	}

	var buf bytes.Buffer
	if err := xlsx.WriteHouses(&buf, items); err != nil {
		h.writeServiceError(w, r, "export_houses", err)
		return
	}

	writeXLSX(w, "houses", buf.Bytes())
}

// writeXLSX отдаёт книгу как вложение с датой в имени файла.
func writeXLSX(w http.ResponseWriter, name string, data []byte) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
