package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestID_GeneratesAndKeeps(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	// Без входящего заголовка генерируется UUID
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(seen) != 36 {
		t.Errorf("сгенерированный request_id = %q, ожидается UUID", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("заголовок ответа = %q, ожидается %q", rec.Header().Get(HeaderRequestID), seen)
	}

	// Входящий заголовок сохраняется
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "req-42" {
		t.Errorf("request_id = %q, ожидается req-42", seen)
	}
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "успех", status: http.StatusOK, wantLevel: "INFO"},
		{name: "ошибка клиента", status: http.StatusConflict, wantLevel: "WARN"},
		{name: "ошибка сервера", status: http.StatusInternalServerError, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			handler := RequestID()(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("ok"))
			})))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/files/issue", nil))

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("запись лога не JSON: %v", err)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, ожидается %s", entry["level"], tt.wantLevel)
			}
			if entry["path"] != "/api/v1/files/issue" {
				t.Errorf("path = %v", entry["path"])
			}
			if entry["bytes"] != float64(2) {
				t.Errorf("bytes = %v, ожидается 2", entry["bytes"])
			}
			if entry["request_id"] == nil {
				t.Error("в записи лога нет request_id")
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health/live", "/health/live"},
		{"/api/v1/houses", "/api/v1/houses"},
		{"/api/v1/houses/42", "/api/v1/houses/{id}"},
		{"/api/v1/houses/42/open-movement", "/api/v1/houses/{id}/open-movement"},
		{"/api/v1/houses/by-file-no/ABC-1", "/api/v1/houses/by-file-no/{fileNo}"},
		{"/api/v1/houses/by-file-no/1001", "/api/v1/houses/by-file-no/{fileNo}"},
		{"/api/v1/files/movements/7/receive", "/api/v1/files/movements/{id}/receive"},
		{"/api/v1/waiting-list/3/assign", "/api/v1/waiting-list/{id}/assign"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, ожидается %q", tt.path, got, tt.want)
			}
		})
	}
}
