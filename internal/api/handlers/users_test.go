package handlers

import (
	"net/http"
	"testing"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/rbac"
)

func TestUsers_Lifecycle(t *testing.T) {
	api := newTestAPI(t)

	var u userResponse
	expect(t, api.do(t, rbac.RoleAdmin, http.MethodPost, "/api/v1/users", map[string]any{
		"username": "clerk", "full_name": "Делопроизводитель", "role": "operator", "password": "clerk-password",
	}), http.StatusCreated, &u)
	if u.Role != rbac.RoleManager || !u.IsActive {
		t.Errorf("пользователь = %+v, ожидается активный manager", u)
	}

	// Повторный логин
	expect(t, api.do(t, rbac.RoleAdmin, http.MethodPost, "/api/v1/users", map[string]any{
		"username": "clerk", "password": "other-password",
	}), http.StatusConflict, nil)

	// Короткий пароль
	expect(t, api.do(t, rbac.RoleAdmin, http.MethodPost, "/api/v1/users", map[string]any{
		"username": "shorty", "password": "123",
	}), http.StatusBadRequest, nil)

	// Права не назначаются напрямую, только через роль
	var upd userResponse
	expect(t, api.do(t, rbac.RoleAdmin, http.MethodPatch, pathf("/api/v1/users/%d", u.ID), map[string]any{
		"role": rbac.RoleViewer, "permissions": []string{rbac.PermUsersManage},
	}), http.StatusOK, &upd)
	if upd.Role != rbac.RoleViewer || len(upd.Permissions) != len(rbac.Permissions(rbac.RoleViewer)) {
		t.Errorf("после обновления: %+v", upd)
	}

	expect(t, api.do(t, rbac.RoleAdmin, http.MethodPut, pathf("/api/v1/users/%d/password", u.ID),
		map[string]string{"password": "new-clerk-password"}), http.StatusNoContent, nil)

	expect(t, api.do(t, "", http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "clerk", "password": "clerk-password",
	}), http.StatusUnauthorized, nil)
	expect(t, api.do(t, "", http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "clerk", "password": "new-clerk-password",
	}), http.StatusOK, nil)

	var got userResponse
	expect(t, api.do(t, rbac.RoleAdmin, http.MethodGet, pathf("/api/v1/users/%d", u.ID), nil), http.StatusOK, &got)
	if got.Username != "clerk" || got.FullName != "Делопроизводитель" {
		t.Errorf("пользователь = %+v", got)
	}

	expect(t, api.do(t, rbac.RoleAdmin, http.MethodGet, "/api/v1/users/9999", nil), http.StatusNotFound, nil)
}

func TestUsers_InvalidRole(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, rbac.RoleAdmin, http.MethodPost, "/api/v1/users", map[string]any{
		"username": "someone", "role": "superuser", "password": "someone-password",
	})
	expect(t, rec, http.StatusBadRequest, nil)
	if code := errorCodeOf(t, rec); code != "VALIDATION_ERROR" {
		t.Errorf("код = %q, ожидается VALIDATION_ERROR", code)
	}
}
