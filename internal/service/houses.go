// houses.go — реестр домов.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/lock"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

// HouseInput — поля нового дома.
type HouseInput struct {
	FileNo       string
	QtrNo        string
	Street       string
	Sector       string
	TypeCode     string
	Status       string
	StatusManual bool
}

// HouseUpdate — частичное обновление дома. nil — поле не меняется.
type HouseUpdate struct {
	FileNo       *string
	QtrNo        *string
	Street       *string
	Sector       *string
	TypeCode     *string
	Status       *string
	StatusManual *bool
}

// HouseService — сервис реестра домов.
type HouseService struct {
	store  repository.Store
	scope  houseScope
	status *StatusService
	logger *slog.Logger
}

// NewHouseService создаёт сервис реестра домов.
func NewHouseService(store repository.Store, locker lock.Locker, status *StatusService, logger *slog.Logger) *HouseService {
	return &HouseService{
		store:  store,
		scope:  houseScope{store: store, locker: locker},
		status: status,
		logger: logger.With(slog.String("component", "house_service")),
	}
}

// newHouse валидирует поля и собирает модель.
func newHouse(in HouseInput) (*model.House, error) {
	h := &model.House{
		FileNo:       strings.TrimSpace(in.FileNo),
		QtrNo:        strings.TrimSpace(in.QtrNo),
		Street:       strings.TrimSpace(in.Street),
		Sector:       strings.TrimSpace(in.Sector),
		TypeCode:     strings.ToUpper(strings.TrimSpace(in.TypeCode)),
		Status:       strings.TrimSpace(in.Status),
		StatusManual: in.StatusManual,
	}
	if h.Status == "" {
		h.Status = model.HouseVacant
	}
	if err := validateHouse(h); err != nil {
		return nil, err
	}
	return h, nil
}

func validateHouse(h *model.House) error {
	if h.FileNo == "" {
		return fmt.Errorf("%w: номер дела обязателен", ErrValidation)
	}
	if !model.IsValidTypeCode(h.TypeCode) {
		return fmt.Errorf("%w: недопустимый тип дома %q", ErrValidation, h.TypeCode)
	}
	if !model.IsValidHouseStatus(h.Status) {
		return fmt.Errorf("%w: недопустимый статус %q", ErrValidation, h.Status)
	}
	return nil
}

// CreateHouse регистрирует дом. ErrConflict при повторном номере дела.
func (s *HouseService) CreateHouse(ctx context.Context, in HouseInput) (*model.House, error) {
	h, err := newHouse(in)
	if err != nil {
		return nil, err
	}

	if err := s.store.Repos().Houses.Create(ctx, h); err != nil {
		return nil, fromRepo(err, fmt.Sprintf("дом с номером дела %q", h.FileNo))
	}

	s.logger.Info("Дом зарегистрирован",
		slog.Int64("id", h.ID),
		slog.String("file_no", h.FileNo),
	)
	return h, nil
}

// CreateOrGetHouse возвращает существующий дом с тем же номером дела
// или создаёт новый. created сообщает, был ли дом создан.
func (s *HouseService) CreateOrGetHouse(ctx context.Context, in HouseInput) (*model.House, bool, error) {
	h, err := newHouse(in)
	if err != nil {
		return nil, false, err
	}

	repos := s.store.Repos()
	existing, err := repos.Houses.GetByFileNo(ctx, h.FileNo)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("поиск дома по номеру дела: %w", err)
	}

	if err := repos.Houses.Create(ctx, h); err != nil {
		// Параллельный импорт мог создать дом между чтением и вставкой
		if errors.Is(err, repository.ErrConflict) {
			existing, getErr := repos.Houses.GetByFileNo(ctx, h.FileNo)
			if getErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fromRepo(err, fmt.Sprintf("дом с номером дела %q", h.FileNo))
	}

	s.logger.Info("Дом зарегистрирован при импорте",
		slog.Int64("id", h.ID),
		slog.String("file_no", h.FileNo),
	)
	return h, true, nil
}

// GetHouse возвращает дом по ID.
func (s *HouseService) GetHouse(ctx context.Context, id int64) (*model.House, error) {
	h, err := s.store.Repos().Houses.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, fmt.Sprintf("дом %d", id))
	}
	return h, nil
}

// GetHouseByFileNo возвращает дом по номеру дела.
func (s *HouseService) GetHouseByFileNo(ctx context.Context, fileNo string) (*model.House, error) {
	fileNo = strings.TrimSpace(fileNo)
	h, err := s.store.Repos().Houses.GetByFileNo(ctx, fileNo)
	if err != nil {
		return nil, fromRepo(err, fmt.Sprintf("дом с номером дела %q", fileNo))
	}
	return h, nil
}

// ListHouses возвращает страницу домов и общее количество.
func (s *HouseService) ListHouses(ctx context.Context, f repository.HouseFilter) ([]*model.House, int, error) {
	if f.Sort != "" && !repository.IsValidHouseSort(f.Sort) {
		return nil, 0, fmt.Errorf("%w: недопустимое поле сортировки %q", ErrValidation, f.Sort)
	}
	if f.Status != nil && !model.IsValidHouseStatus(*f.Status) {
		return nil, 0, fmt.Errorf("%w: недопустимый статус %q", ErrValidation, *f.Status)
	}
	f.Query = strings.TrimSpace(f.Query)

	items, total, err := s.store.Repos().Houses.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("получение списка домов: %w", err)
	}
	return items, total, nil
}

// UpdateHouse частично обновляет дом.
// Явная смена статуса — ручная установка (status_manual = true),
// если флаг не передан явно. Снятие флага сразу пересчитывает статус.
func (s *HouseService) UpdateHouse(ctx context.Context, id int64, upd HouseUpdate) (*model.House, error) {
	var out *model.House
	err := s.scope.run(ctx, id, func(r *repository.Repos, h *model.House) error {
		if upd.FileNo != nil {
			h.FileNo = strings.TrimSpace(*upd.FileNo)
		}
		if upd.QtrNo != nil {
			h.QtrNo = strings.TrimSpace(*upd.QtrNo)
		}
		if upd.Street != nil {
			h.Street = strings.TrimSpace(*upd.Street)
		}
		if upd.Sector != nil {
			h.Sector = strings.TrimSpace(*upd.Sector)
		}
		if upd.TypeCode != nil {
			h.TypeCode = strings.ToUpper(strings.TrimSpace(*upd.TypeCode))
		}
		if upd.Status != nil {
			h.Status = strings.TrimSpace(*upd.Status)
			h.StatusManual = true
		}
		if upd.StatusManual != nil {
			h.StatusManual = *upd.StatusManual
		}
		if err := validateHouse(h); err != nil {
			return err
		}

		if err := r.Houses.Update(ctx, h); err != nil {
			return fromRepo(err, fmt.Sprintf("дом с номером дела %q", h.FileNo))
		}
		if !h.StatusManual {
			if _, err := s.status.Apply(ctx, r, h); err != nil {
				return err
			}
		}
		out = h
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Дом обновлён",
		slog.Int64("id", out.ID),
		slog.String("status", out.Status),
		slog.Bool("status_manual", out.StatusManual),
	)
	return out, nil
}

// DeleteHouse удаляет дом, у которого нет истории.
// ErrInvalidState, если у дома есть аллотменты или движения дела:
// история аллотментов и журнал дел не удаляются.
func (s *HouseService) DeleteHouse(ctx context.Context, id int64) error {
	err := s.scope.run(ctx, id, func(r *repository.Repos, h *model.House) error {
		_, err := r.Allotments.ActiveByHouse(ctx, id)
		if err == nil {
			return fmt.Errorf("%w: у дома %d есть активный аллотмент", ErrInvalidState, id)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("проверка активного аллотмента: %w", err)
		}

		_, err = r.Movements.OpenByHouse(ctx, id)
		if err == nil {
			return fmt.Errorf("%w: дело дома %d выдано", ErrInvalidState, id)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("проверка выдачи дела: %w", err)
		}

		_, err = r.Allotments.Latest(ctx, id)
		if err == nil {
			return fmt.Errorf("%w: у дома %d есть история аллотментов", ErrInvalidState, id)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("проверка истории аллотментов: %w", err)
		}

		_, moves, err := r.Movements.List(ctx, &id, 1, 0)
		if err != nil {
			return fmt.Errorf("проверка журнала дела: %w", err)
		}
		if moves > 0 {
			return fmt.Errorf("%w: у дома %d есть журнал движения дела", ErrInvalidState, id)
		}

		return fromRepo(r.Houses.Delete(ctx, id), fmt.Sprintf("дом %d", id))
	})
	if err != nil {
		return err
	}

	s.logger.Info("Дом удалён", slog.Int64("id", id))
	return nil
}
