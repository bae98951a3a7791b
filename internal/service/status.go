// status.go — пересчёт статуса дома по журналу аллотментов.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/occupancy"
	"github.com/fazalktk93/accommodation-sub000/internal/lock"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

// recomputeBatch — размер страницы при полном пересчёте.
const recomputeBatch = 500

// StatusService — сервис вычисления статуса дома.
type StatusService struct {
	store  repository.Store
	scope  houseScope
	logger *slog.Logger
}

// NewStatusService создаёт сервис вычисления статуса.
func NewStatusService(store repository.Store, locker lock.Locker, logger *slog.Logger) *StatusService {
	return &StatusService{
		store:  store,
		scope:  houseScope{store: store, locker: locker},
		logger: logger.With(slog.String("component", "status_service")),
	}
}

// Apply вычисляет статус дома h в транзакции вызывающего.
// Статус записывается, только если он не ручной и отличается от текущего.
// Возвращает вычисленное значение; h обновляется на месте.
func (s *StatusService) Apply(ctx context.Context, r *repository.Repos, h *model.House) (string, error) {
	latest, err := r.Allotments.Latest(ctx, h.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("чтение последнего аллотмента: %w", err)
	}
	if errors.Is(err, repository.ErrNotFound) {
		latest = nil
	}

	derived := occupancy.Derive(latest)
	prev := h.Status
	if occupancy.Apply(h, derived) {
		if err := r.Houses.UpdateStatus(ctx, h.ID, derived); err != nil {
			return "", fromRepo(err, fmt.Sprintf("дом %d", h.ID))
		}
		s.logger.Info("Статус дома пересчитан",
			slog.Int64("house_id", h.ID),
			slog.String("from", prev),
			slog.String("to", derived),
		)
	}
	return derived, nil
}

// RecomputeHouse пересчитывает статус одного дома.
func (s *StatusService) RecomputeHouse(ctx context.Context, houseID int64) (*model.House, error) {
	var out *model.House
	err := s.scope.run(ctx, houseID, func(r *repository.Repos, h *model.House) error {
		if _, err := s.Apply(ctx, r, h); err != nil {
			return err
		}
		out = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecomputeResult — итог полного пересчёта.
type RecomputeResult struct {
	// Checked — проверено домов
	Checked int
	// Changed — домов со сменой статуса
	Changed int
}

// RecomputeAll пересчитывает статус всех домов постранично.
// Дома, удалённые во время обхода, пропускаются.
func (s *StatusService) RecomputeAll(ctx context.Context) (*RecomputeResult, error) {
	res := &RecomputeResult{}

	for offset := 0; ; offset += recomputeBatch {
		houses, _, err := s.store.Repos().Houses.List(ctx, repository.HouseFilter{
			Sort:   "id",
			Limit:  recomputeBatch,
			Offset: offset,
		})
		if err != nil {
			return nil, fmt.Errorf("получение списка домов: %w", err)
		}
		if len(houses) == 0 {
			break
		}

		for _, h := range houses {
			before := h.Status
			updated, err := s.RecomputeHouse(ctx, h.ID)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			res.Checked++
			if updated.Status != before {
				res.Changed++
			}
		}
		if len(houses) < recomputeBatch {
			break
		}
	}

	s.logger.Info("Статусы домов пересчитаны",
		slog.Int("checked", res.Checked),
		slog.Int("changed", res.Changed),
	)
	return res, nil
}
