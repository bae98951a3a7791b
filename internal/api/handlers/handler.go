// handler.go — основной обработчик HTTP API.
// Объединяет все доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/fazalktk93/accommodation-sub000/internal/api/errors"
	"github.com/fazalktk93/accommodation-sub000/internal/service"
)

// maxJSONBody — предельный размер JSON-тела запроса.
const maxJSONBody = 1 << 20

// APIHandler — основной обработчик HTTP API.
type APIHandler struct {
	health     *HealthHandler
	status     *service.StatusService
	houses     *service.HouseService
	allotments *service.AllotmentService
	custody    *service.CustodyService
	waiting    *service.WaitingListService
	identity   *service.IdentityService
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	status *service.StatusService,
	houses *service.HouseService,
	allotments *service.AllotmentService,
	custody *service.CustodyService,
	waiting *service.WaitingListService,
	identity *service.IdentityService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:     health,
		status:     status,
		houses:     houses,
		allotments: allotments,
		custody:    custody,
		waiting:    waiting,
		identity:   identity,
		validate:   newValidator(),
		logger:     logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// newValidator создаёт валидатор, использующий json-имена полей в сообщениях.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON разбирает тело запроса в dst и проверяет его теги validate.
// При ошибке пишет ответ 400 и возвращает false.
func (h *APIHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		apierrors.ValidationError(w, validationMessage(err))
		return false
	}
	return true
}

// decodeOptionalJSON — как decodeJSON, но пустое тело допустимо.
func (h *APIHandler) decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		apierrors.ValidationError(w, validationMessage(err))
		return false
	}
	return true
}

// validationMessage формирует сообщение из ошибок валидатора: поле → тег.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return "Ошибка валидации: " + strings.Join(parts, "; ")
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
// Неожиданные ошибки логируются и возвращаются как INTERNAL_ERROR.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		apierrors.InvalidState(w, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		apierrors.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "Ошибка обработки запроса",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// pathID извлекает положительный числовой параметр пути.
// При ошибке пишет ответ 400 и возвращает false.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный идентификатор %s: %q", name, raw))
		return 0, false
	}
	return id, true
}

// queryInt разбирает необязательный целочисленный query-параметр.
func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("параметр %s должен быть целым числом", name)
	}
	return &v, nil
}

// queryString возвращает указатель на непустой query-параметр.
func queryString(r *http.Request, name string) *string {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	return &raw
}

// pagination читает limit/offset из query и нормализует их.
// При ошибке пишет ответ 400 и возвращает false.
func pagination(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return 0, 0, false
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return 0, 0, false
	}
	l, o := paginationDefaults(limit, offset)
	return l, o, true
}

// paginationDefaults нормализует параметры пагинации.
// Возвращает корректные limit и offset.
func paginationDefaults(limit *int, offset *int) (int, int) {
	l := 100
	o := 0

	if limit != nil {
		l = *limit
		if l < 1 {
			l = 1
		}
		if l > 1000 {
			l = 1000
		}
	}

	if offset != nil {
		o = *offset
		if o < 0 {
			o = 0
		}
	}

	return l, o
}

// listResponse — страница списка с общим количеством.
type listResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// newList строит страницу, преобразуя элементы через mapFn.
func newList[S, T any](items []S, total, limit, offset int, mapFn func(S) T) listResponse[T] {
	out := make([]T, 0, len(items))
	for _, it := range items {
		out = append(out, mapFn(it))
	}
	return listResponse[T]{Items: out, Total: total, Limit: limit, Offset: offset}
}
