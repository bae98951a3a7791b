package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// keyPrefix — префикс ключей блокировок в Redis.
const keyPrefix = "accommodation:lock:"

// retryBackoff — интервал повторных попыток захвата.
const retryBackoff = 50 * time.Millisecond

// RedisLocker — распределённые блокировки через Redis (bsm/redislock).
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	logger *slog.Logger
}

// NewRedisLocker создаёт распределённый Locker.
// ttl — время жизни блокировки, wait — максимальное ожидание захвата.
// Пока блокировка удерживается, её TTL продлевается каждые ttl/2.
func NewRedisLocker(rdb redis.Scripter, ttl, wait time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		wait:   wait,
		logger: logger.With(slog.String("component", "redis_locker")),
	}
}

// Lock захватывает ключ, повторяя попытки с линейным интервалом до истечения wait.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	retries := int(l.wait / retryBackoff)
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(retryBackoff), retries),
	}

	lk, err := l.client.Obtain(ctx, keyPrefix+key, l.ttl, opts)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
		}
		return nil, fmt.Errorf("ошибка захвата блокировки %s: %w", key, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(context.WithoutCancel(ctx), lk, key, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			// Освобождение не зависит от отмены контекста запроса
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			if err := lk.Release(releaseCtx); err != nil {
				l.logger.Warn("Блокировка не освобождена",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			}
		})
	}, nil
}

// keepAlive продлевает TTL захваченной блокировки каждые ttl/2,
// пока держатель не вызовет функцию освобождения.
// Если блокировка потеряна, продление прекращается.
func (l *RedisLocker) keepAlive(ctx context.Context, lk *redislock.Lock, key string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := l.ttl / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(ctx, interval)
			err := lk.Refresh(refreshCtx, l.ttl, nil)
			cancel()
			if err != nil {
				l.logger.Warn("Блокировка не продлена",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				return
			}
		}
	}
}

// Pinger — клиент Redis, поддерживающий PING.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisReadinessChecker — проверка готовности Redis для health endpoint.
type RedisReadinessChecker struct {
	client Pinger
}

// NewRedisReadinessChecker создаёт проверку готовности Redis.
func NewRedisReadinessChecker(client Pinger) *RedisReadinessChecker {
	return &RedisReadinessChecker{client: client}
}

// CheckReady проверяет доступность Redis через PING.
func (c *RedisReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return "fail", fmt.Sprintf("Redis недоступен: %v", err)
	}
	return "ok", "подключение активно"
}
