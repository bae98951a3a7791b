// metrics.go — доменные Prometheus-метрики.
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// custodyConflictsTotal — отказы в выдаче дела, которое уже выдано.
	custodyConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "acc_custody_conflicts_total",
			Help: "Количество отказов в выдаче уже выданного дела",
		},
	)

	// allotmentsTotal — операции с аллотментами по виду.
	allotmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acc_allotments_total",
			Help: "Количество операций с аллотментами",
		},
		[]string{"op"},
	)

	// userCacheHits, userCacheMisses — обращения к кэшу пользователей при авторизации.
	userCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "acc_user_cache_hits_total",
			Help: "Попадания в кэш пользователей",
		},
	)
	userCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "acc_user_cache_misses_total",
			Help: "Промахи кэша пользователей",
		},
	)
)

// Виды операций для acc_allotments_total.
const (
	opCreate  = "create"
	opEnd     = "end"
	opUpdate  = "update"
	opAssign  = "assign"
	opRelease = "release"
)

// LockKeysSource — блокировки, сообщающие число захваченных или ожидаемых ключей.
type LockKeysSource interface {
	Len() int
}

// RegisterLockMetrics регистрирует gauge acc_lock_keys для локальных блокировок.
func RegisterLockMetrics(reg prometheus.Registerer, src LockKeysSource) error {
	return reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "acc_lock_keys",
			Help: "Количество ключей блокировок домов, захваченных или ожидаемых",
		},
		func() float64 { return float64(src.Len()) },
	))
}
