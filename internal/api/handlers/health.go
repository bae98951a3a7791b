// health.go — обработчики health endpoints.
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (хранилище и блокировки доступны)
// /metrics — Prometheus метрики
package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fazalktk93/accommodation-sub000/internal/config"
)

// serviceName — имя сервиса в ответах health endpoints.
const serviceName = "accommodation"

// ReadinessChecker — интерфейс проверки готовности зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
	CheckReady() (status string, message string)
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	storageChecker ReadinessChecker
	lockChecker    ReadinessChecker
	promHandler    http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
// storageChecker — проверка хранилища (nil — "fail").
// lockChecker — проверка Redis-блокировок (nil — локальные блокировки, всегда "ok").
func NewHealthHandler(storageChecker, lockChecker ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		storageChecker: storageChecker,
		lockChecker:    lockChecker,
		promHandler:    promhttp.Handler(),
	}
}

// healthCheckResult — результат проверки одной зависимости.
type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthLiveResponse — ответ liveness probe.
type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

// healthReadyResponse — ответ readiness probe.
type healthReadyResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
	Checks    struct {
		Storage healthCheckResult `json:"storage"`
		Lock    healthCheckResult `json:"lock"`
	} `json:"checks"`
}

// HealthLive — liveness probe. Возвращает 200 если процесс жив.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	resp := healthLiveResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthReady — readiness probe. Проверяет хранилище и блокировки.
// Возвращает 200 (ok/degraded) или 503 (fail).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	resp := healthReadyResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	}

	if h.storageChecker != nil {
		st, msg := h.storageChecker.CheckReady()
		resp.Checks.Storage = healthCheckResult{Status: st, Message: msg}
	} else {
		resp.Checks.Storage = healthCheckResult{Status: "fail", Message: "не инициализировано"}
	}

	if h.lockChecker != nil {
		st, msg := h.lockChecker.CheckReady()
		resp.Checks.Lock = healthCheckResult{Status: st, Message: msg}
	} else {
		resp.Checks.Lock = healthCheckResult{Status: "ok", Message: "локальные блокировки"}
	}

	resp.Status = overallStatus(resp.Checks.Storage.Status, resp.Checks.Lock.Status)

	status := http.StatusOK
	if resp.Status == "fail" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

// overallStatus определяет итоговый статус из статусов зависимостей.
// Если хотя бы одна зависимость fail — итог fail.
// Если хотя бы одна degraded — итог degraded.
// Иначе — ok.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		if s == "fail" {
			return "fail"
		}
		if s == "degraded" {
			hasDegraded = true
		}
	}
	if hasDegraded {
		return "degraded"
	}
	return "ok"
}
