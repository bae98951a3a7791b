// Пакет lock — взаимоисключение операций над одним домом.
//
// Ключ блокировки — "house:<id>", разные дома блокировок не разделяют.
// KeyedMutex работает в пределах процесса, RedisLocker — между экземплярами
// сервиса через Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotObtained — блокировку не удалось получить за отведённое время.
var ErrNotObtained = errors.New("блокировка не получена")

// Locker — захват именованной блокировки.
type Locker interface {
	// Lock захватывает ключ и возвращает функцию освобождения.
	// Повторный вызов функции освобождения ничего не делает.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// HouseKey возвращает ключ блокировки дома.
func HouseKey(houseID int64) string {
	return fmt.Sprintf("house:%d", houseID)
}

// KeyedMutex — блокировки по ключу в памяти процесса.
// Записи ключей удаляются, когда их никто не ждёт.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	wait  time.Duration
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewKeyedMutex создаёт блокировки в памяти.
// wait > 0 ограничивает ожидание захвата.
func NewKeyedMutex(wait time.Duration) *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock), wait: wait}
}

// Lock захватывает ключ, ожидая не дольше wait и не дольше жизни ctx.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	if m.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.wait)
		defer cancel()
	}

	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-l.sem
				m.release(key, l)
			})
		}, nil
	case <-ctx.Done():
		m.release(key, l)
		return nil, fmt.Errorf("%w: %s: %w", ErrNotObtained, key, ctx.Err())
	}
}

func (m *KeyedMutex) release(key string, l *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

// Len возвращает число ключей, которые захвачены или ожидаются.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
