// auth.go — обработчики /api/v1/auth и публичного JWKS.
package handlers

import (
	"net/http"

	apierrors "github.com/fazalktk93/accommodation-sub000/internal/api/errors"
	"github.com/fazalktk93/accommodation-sub000/internal/api/middleware"
)

// Login — POST /api/v1/auth/login.
// Проверяет логин и пароль, выпускает токен доступа.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	res, err := h.identity.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: res.Token.Token,
		TokenType:   "Bearer",
		ExpiresAt:   res.Token.ExpiresAt,
		User:        mapUser(res.User),
	})
}

// Me — GET /api/v1/auth/me.
// Возвращает текущего субъекта и его права.
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if p == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		ID:          p.UserID,
		Username:    p.Username,
		Role:        p.Role,
		Permissions: p.Permissions,
	})
}

// JWKS — GET /.well-known/jwks.json.
// Публичные ключи для проверки токенов другими сервисами.
func (h *APIHandler) JWKS(w http.ResponseWriter, r *http.Request) {
	raw, err := h.identity.JWKS(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "jwks", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// movedBy возвращает ID текущего пользователя для журналов.
func movedBy(r *http.Request) *int64 {
	p := middleware.PrincipalFromContext(r.Context())
	if p == nil {
		return nil
	}
	id := p.UserID
	return &id
}
