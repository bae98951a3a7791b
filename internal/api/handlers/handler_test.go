package handlers

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/fazalktk93/accommodation-sub000/internal/api/middleware"
	"github.com/fazalktk93/accommodation-sub000/internal/auth"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/rbac"
	"github.com/fazalktk93/accommodation-sub000/internal/lock"
	"github.com/fazalktk93/accommodation-sub000/internal/repository/memory"
	"github.com/fazalktk93/accommodation-sub000/internal/service"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

// signingKey возвращает RSA-ключ, общий для всех тестов пакета.
func signingKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testAPI — HTTP API поверх хранилища в памяти с пользователями трёх ролей.
type testAPI struct {
	router   http.Handler
	identity *service.IdentityService
	tokens   map[string]string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	logger := testLogger()
	store := memory.New()
	locker := lock.NewKeyedMutex(5 * time.Second)

	tm, err := auth.NewTokenManager(signingKey(t), auth.TokenOptions{
		KeyID: "test", Issuer: "accommodation", TTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenManager() ошибка: %v", err)
	}
	identity := service.NewIdentityService(store, tm, auth.NewPasswordHasher(bcrypt.MinCost), 100, time.Minute, logger)

	status := service.NewStatusService(store, locker, logger)
	allotments := service.NewAllotmentService(store, locker, status, logger)
	h := NewAPIHandler(
		NewHealthHandler(store, nil),
		status,
		service.NewHouseService(store, locker, status, logger),
		allotments,
		service.NewCustodyService(store, locker, logger),
		service.NewWaitingListService(store, locker, allotments, logger),
		identity,
		logger,
	)

	router := chi.NewRouter()
	router.Use(middleware.RequestID())
	h.Register(router, middleware.NewAuth(identity, logger))

	api := &testAPI{router: router, identity: identity, tokens: map[string]string{}}
	for _, role := range []string{rbac.RoleAdmin, rbac.RoleManager, rbac.RoleViewer} {
		if _, err := identity.CreateUser(ctx, service.UserInput{
			Username: role, Role: role, Password: role + "-password",
		}); err != nil {
			t.Fatalf("CreateUser(%s) ошибка: %v", role, err)
		}
		res, err := identity.Authenticate(ctx, role, role+"-password")
		if err != nil {
			t.Fatalf("Authenticate(%s) ошибка: %v", role, err)
		}
		api.tokens[role] = res.Token.Token
	}
	return api
}

// do выполняет запрос от имени роли (пустая роль — без токена).
func (a *testAPI) do(t *testing.T, role, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal: %v", err)
		}
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[role])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// expect проверяет статус ответа и разбирает тело в out (если out != nil).
func expect(t *testing.T, rec *httptest.ResponseRecorder, status int, out any) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("статус = %d, ожидается %d; тело: %s", rec.Code, status, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("не удалось разобрать ответ: %v; тело: %s", err, rec.Body.String())
		}
	}
}

func pathf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

// errorCodeOf возвращает код ошибки из тела ответа.
func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("не удалось разобрать ошибку: %v; тело: %s", err, rec.Body.String())
	}
	return body.Error.Code
}

// mustCreateHouse создаёт дом через API.
func (a *testAPI) mustCreateHouse(t *testing.T, fileNo string) houseResponse {
	t.Helper()
	var h houseResponse
	expect(t, a.do(t, rbac.RoleManager, http.MethodPost, "/api/v1/houses", map[string]any{
		"file_no": fileNo, "qtr_no": "1", "street": "5", "sector": "G-6", "type_code": "C",
	}), http.StatusCreated, &h)
	return h
}

func TestWriteServiceError(t *testing.T) {
	h := &APIHandler{logger: testLogger()}

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "валидация", err: service.ErrValidation, wantCode: http.StatusBadRequest, wantBody: "VALIDATION_ERROR"},
		{name: "не найдено", err: service.ErrNotFound, wantCode: http.StatusNotFound, wantBody: "NOT_FOUND"},
		{name: "конфликт", err: service.ErrConflict, wantCode: http.StatusConflict, wantBody: "CONFLICT"},
		{name: "состояние", err: service.ErrInvalidState, wantCode: http.StatusUnprocessableEntity, wantBody: "INVALID_STATE"},
		{name: "аутентификация", err: service.ErrUnauthorized, wantCode: http.StatusUnauthorized, wantBody: "UNAUTHORIZED"},
		{name: "права", err: service.ErrForbidden, wantCode: http.StatusForbidden, wantBody: "FORBIDDEN"},
		{name: "прочее", err: io.ErrUnexpectedEOF, wantCode: http.StatusInternalServerError, wantBody: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), "test", tt.err)

			if rec.Code != tt.wantCode {
				t.Errorf("статус = %d, ожидается %d", rec.Code, tt.wantCode)
			}
			if code := errorCodeOf(t, rec); code != tt.wantBody {
				t.Errorf("код = %q, ожидается %q", code, tt.wantBody)
			}
		})
	}
}

func TestPaginationDefaults(t *testing.T) {
	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name       string
		limit      *int
		offset     *int
		wantLimit  int
		wantOffset int
	}{
		{name: "по умолчанию", wantLimit: 100, wantOffset: 0},
		{name: "в пределах", limit: intPtr(20), offset: intPtr(40), wantLimit: 20, wantOffset: 40},
		{name: "ноль", limit: intPtr(0), wantLimit: 1},
		{name: "больше максимума", limit: intPtr(5000), wantLimit: 1000},
		{name: "отрицательный offset", offset: intPtr(-3), wantLimit: 100, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, o := paginationDefaults(tt.limit, tt.offset)
			if l != tt.wantLimit || o != tt.wantOffset {
				t.Errorf("paginationDefaults() = (%d, %d), ожидается (%d, %d)", l, o, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestDate_JSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-03-15"`), &d); err != nil {
		t.Fatalf("Unmarshal(YYYY-MM-DD) ошибка: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.March || d.Day() != 15 {
		t.Errorf("дата = %v, ожидается 2024-03-15", d.Time)
	}

	if err := json.Unmarshal([]byte(`"2024-03-15T10:00:00Z"`), &d); err != nil {
		t.Fatalf("Unmarshal(RFC3339) ошибка: %v", err)
	}

	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal ошибка: %v", err)
	}
	if string(out) != `"2024-03-15"` {
		t.Errorf("Marshal = %s, ожидается \"2024-03-15\"", out)
	}

	if err := json.Unmarshal([]byte(`"15/03/2024"`), &d); err == nil {
		t.Error("ожидалась ошибка для даты в неверном формате")
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	var live healthLiveResponse
	expect(t, api.do(t, "", http.MethodGet, "/health/live", nil), http.StatusOK, &live)
	if live.Status != "ok" || live.Service != serviceName {
		t.Errorf("live = %+v", live)
	}

	var ready healthReadyResponse
	expect(t, api.do(t, "", http.MethodGet, "/health/ready", nil), http.StatusOK, &ready)
	if ready.Status != "ok" || ready.Checks.Storage.Status != "ok" || ready.Checks.Lock.Status != "ok" {
		t.Errorf("ready = %+v", ready)
	}
}

// failingChecker — зависимость, которая всегда недоступна.
type failingChecker struct{}

func (failingChecker) CheckReady() (string, string) { return "fail", "недоступно" }

func TestHealthReady_Fail(t *testing.T) {
	h := NewHealthHandler(failingChecker{}, nil)
	rec := httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("статус = %d, ожидается 503", rec.Code)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"ok", "ok"}, "ok"},
		{[]string{"ok", "degraded"}, "degraded"},
		{[]string{"degraded", "fail"}, "fail"},
	}
	for _, tt := range tests {
		if got := overallStatus(tt.in...); got != tt.want {
			t.Errorf("overallStatus(%v) = %q, ожидается %q", tt.in, got, tt.want)
		}
	}
}
