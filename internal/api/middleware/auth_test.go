package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/rbac"
	"github.com/fazalktk93/accommodation-sub000/internal/service"
)

// mockAuthorizer — мок для Authorizer.
// tokens сопоставляет токен с ролью субъекта, err возвращается для любого токена.
type mockAuthorizer struct {
	tokens map[string]string
	err    error
	calls  int
}

func (m *mockAuthorizer) Authorize(_ context.Context, token string, required ...string) (*model.Principal, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	role, ok := m.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: неизвестный токен", service.ErrUnauthorized)
	}
	if !rbac.HasAll(role, required...) {
		return nil, service.ErrForbidden
	}
	return &model.Principal{
		UserID:      1,
		Username:    "user-" + role,
		Role:        role,
		Permissions: rbac.Permissions(role),
	}, nil
}

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// errorCode извлекает код ошибки из тела ответа.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("не удалось разобрать тело ошибки: %v", err)
	}
	return body.Error.Code
}

func TestAuth_ValidToken(t *testing.T) {
	authz := &mockAuthorizer{tokens: map[string]string{"good": rbac.RoleManager}}
	auth := NewAuth(authz, testLogger())

	var got *model.Principal
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/houses", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}
	if got == nil || got.Role != rbac.RoleManager {
		t.Fatalf("субъект в контексте = %+v, ожидается роль manager", got)
	}
}

func TestAuth_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		authzErr error
		wantCode int
		wantBody string
	}{
		{name: "без заголовка", header: "", wantCode: http.StatusUnauthorized, wantBody: "UNAUTHORIZED"},
		{name: "не Bearer", header: "Basic dXNlcjpwYXNz", wantCode: http.StatusUnauthorized, wantBody: "UNAUTHORIZED"},
		{name: "пустой токен", header: "Bearer ", wantCode: http.StatusUnauthorized, wantBody: "UNAUTHORIZED"},
		{name: "неизвестный токен", header: "Bearer bad", wantCode: http.StatusUnauthorized, wantBody: "UNAUTHORIZED"},
		{
			name: "ошибка хранилища", header: "Bearer good",
			authzErr: errors.New("соединение разорвано"),
			wantCode: http.StatusInternalServerError, wantBody: "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authz := &mockAuthorizer{tokens: map[string]string{"good": rbac.RoleAdmin}, err: tt.authzErr}
			handler := NewAuth(authz, testLogger()).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler не должен быть вызван")
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("ожидался статус %d, получен %d", tt.wantCode, rec.Code)
			}
			if code := errorCode(t, rec); code != tt.wantBody {
				t.Errorf("код ошибки = %q, ожидается %q", code, tt.wantBody)
			}
		})
	}
}

func TestAuth_UnauthorizedSetsChallenge(t *testing.T) {
	handler := NewAuth(&mockAuthorizer{}, testLogger()).Middleware()(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate = %q, ожидается Bearer", got)
	}
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		perms    []string
		wantCode int
	}{
		{name: "viewer читает", role: rbac.RoleViewer, perms: []string{rbac.PermHousesRead}, wantCode: http.StatusOK},
		{name: "viewer пишет", role: rbac.RoleViewer, perms: []string{rbac.PermHousesWrite}, wantCode: http.StatusForbidden},
		{name: "manager пишет", role: rbac.RoleManager, perms: []string{rbac.PermFilesWrite}, wantCode: http.StatusOK},
		{name: "manager управляет пользователями", role: rbac.RoleManager, perms: []string{rbac.PermUsersManage}, wantCode: http.StatusForbidden},
		{name: "admin всё", role: rbac.RoleAdmin, perms: []string{rbac.PermUsersManage, rbac.PermWaitingWrite}, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequirePermission(tt.perms...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			ctx := WithPrincipal(context.Background(), &model.Principal{Username: "u", Role: tt.role})
			req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("ожидался статус %d, получен %d", tt.wantCode, rec.Code)
			}
		})
	}
}

func TestRequirePermission_NoPrincipal(t *testing.T) {
	handler := RequirePermission(rbac.PermHousesRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

func TestPrincipalFromContext_Empty(t *testing.T) {
	if p := PrincipalFromContext(context.Background()); p != nil {
		t.Errorf("ожидался nil, получен %+v", p)
	}
}
