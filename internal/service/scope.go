package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/lock"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

// houseScope — сериализация операций над одним домом:
// блокировка ключа дома, транзакция и блокировка строки дома.
type houseScope struct {
	store  repository.Store
	locker lock.Locker
}

// run выполняет fn под блокировкой дома в одной транзакции.
// В fn передаётся строка дома, заблокированная до конца транзакции.
func (s houseScope) run(ctx context.Context, houseID int64, fn func(r *repository.Repos, h *model.House) error) error {
	unlock, err := s.locker.Lock(ctx, lock.HouseKey(houseID))
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			return fmt.Errorf("%w: дом %d занят другой операцией", ErrConflict, houseID)
		}
		return fmt.Errorf("блокировка дома %d: %w", houseID, err)
	}
	defer unlock()

	return s.store.RunInTx(ctx, func(r *repository.Repos) error {
		h, err := r.Houses.GetForUpdate(ctx, houseID)
		if err != nil {
			return fromRepo(err, fmt.Sprintf("дом %d", houseID))
		}
		return fn(r, h)
	})
}

// today возвращает текущую дату (UTC, без времени).
func today() time.Time {
	return dateOnly(time.Now())
}

// dateOnly отбрасывает время суток.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dateOnlyPtr — dateOnly для необязательной даты.
func dateOnlyPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := dateOnly(*t)
	return &d
}
