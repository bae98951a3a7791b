// status_sync.go — фоновая сверка статусов домов.
//
// StatusSyncService запускает горутину с ticker (ACC_STATUS_SYNC_INTERVAL),
// которая пересчитывает статус всех домов через StatusService.RecomputeAll.
// Дома с ручным статусом не изменяются.
//
// Prometheus-метрики:
//   - acc_status_sync_duration_seconds — длительность сверки
//   - acc_status_sync_changed_total — количество домов со сменой статуса
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	statusSyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "acc_status_sync_duration_seconds",
		Help:    "Длительность сверки статусов домов",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms … ~82s
	})

	statusSyncChangedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acc_status_sync_changed_total",
		Help: "Количество домов, статус которых исправлен сверкой",
	})
)

// StatusSyncService — фоновый сервис сверки статусов.
type StatusSyncService struct {
	status   *StatusService
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewStatusSyncService создаёт сервис сверки статусов.
func NewStatusSyncService(status *StatusService, interval time.Duration, logger *slog.Logger) *StatusSyncService {
	return &StatusSyncService{
		status:   status,
		interval: interval,
		logger:   logger.With(slog.String("component", "status_sync")),
	}
}

// Start запускает фоновую горутину. Вызывается один раз при старте приложения.
// При interval <= 0 сверка не запускается.
func (s *StatusSyncService) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Периодическая сверка статусов отключена")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info("Периодическая сверка статусов запущена",
			slog.String("interval", s.interval.String()),
		)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Периодическая сверка статусов остановлена")
				return
			case <-ticker.C:
				if _, err := s.SyncNow(ctx); err != nil {
					s.logger.Error("Ошибка сверки статусов", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Stop останавливает фоновую горутину и ждёт завершения.
func (s *StatusSyncService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// SyncNow выполняет сверку немедленно.
func (s *StatusSyncService) SyncNow(ctx context.Context) (*RecomputeResult, error) {
	start := time.Now()
	res, err := s.status.RecomputeAll(ctx)
	statusSyncDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	statusSyncChangedTotal.Add(float64(res.Changed))
	if res.Changed > 0 {
		s.logger.Warn("Сверка исправила статусы домов",
			slog.Int("checked", res.Checked),
			slog.Int("changed", res.Changed),
		)
	}
	return res, nil
}
