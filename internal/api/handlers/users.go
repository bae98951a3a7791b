// users.go — обработчики /api/v1/users: учётные записи.
// Доступ: право users:manage.
package handlers

import (
	"net/http"

	"github.com/fazalktk93/accommodation-sub000/internal/service"
)

// CreateUser — POST /api/v1/users.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	u, err := h.identity.CreateUser(r.Context(), service.UserInput{
		Username: req.Username,
		FullName: req.FullName,
		Role:     req.Role,
		Password: req.Password,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.writeServiceError(w, r, "create_user", err)
		return
	}

	writeJSON(w, http.StatusCreated, mapUser(u))
}

// ListUsers — GET /api/v1/users.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	items, total, err := h.identity.ListUsers(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, "list_users", err)
		return
	}

	writeJSON(w, http.StatusOK, newList(items, total, limit, offset, mapUser))
}

// GetUser — GET /api/v1/users/{id}.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	u, err := h.identity.GetUser(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "get_user", err)
		return
	}

	writeJSON(w, http.StatusOK, mapUser(u))
}

// UpdateUser — PATCH /api/v1/users/{id}.
// Поле permissions принимается, но права всегда вычисляются из роли.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req userUpdateRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	u, err := h.identity.UpdateUser(r.Context(), id, service.UserUpdate{
		FullName:    req.FullName,
		Role:        req.Role,
		IsActive:    req.IsActive,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.writeServiceError(w, r, "update_user", err)
		return
	}

	writeJSON(w, http.StatusOK, mapUser(u))
}

// SetPassword — PUT /api/v1/users/{id}/password.
func (h *APIHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req passwordRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.identity.SetPassword(r.Context(), id, req.Password); err != nil {
		h.writeServiceError(w, r, "set_password", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
