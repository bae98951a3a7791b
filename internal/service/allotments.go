// allotments.go — журнал аллотментов (заселений).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/lock"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

// releasedNote — примечание при отмене аллотмента.
const releasedNote = "released"

// OccupantInput — сведения о жильце и датах нового аллотмента.
type OccupantInput struct {
	AllotteeName   string
	Designation    string
	CNIC           string
	Directorate    string
	PayScale       string
	AllotmentDate  *time.Time
	OccupationDate *time.Time
	AllotteeStatus string
	Notes          string
}

// AllotmentUpdate — частичное обновление аллотмента. nil — поле не меняется.
// Notes заменяет примечания целиком.
type AllotmentUpdate struct {
	AllotteeName   *string
	Designation    *string
	CNIC           *string
	Directorate    *string
	PayScale       *string
	AllotmentDate  *time.Time
	OccupationDate *time.Time
	VacationDate   *time.Time
	AllotteeStatus *string
	Notes          *string
}

// AllotmentService — сервис журнала аллотментов.
type AllotmentService struct {
	store  repository.Store
	scope  houseScope
	status *StatusService
	logger *slog.Logger
}

// NewAllotmentService создаёт сервис аллотментов.
func NewAllotmentService(store repository.Store, locker lock.Locker, status *StatusService, logger *slog.Logger) *AllotmentService {
	return &AllotmentService{
		store:  store,
		scope:  houseScope{store: store, locker: locker},
		status: status,
		logger: logger.With(slog.String("component", "allotment_service")),
	}
}

// CreateAllotment заселяет дом. ErrInvalidState, если в доме уже есть активный аллотмент.
func (s *AllotmentService) CreateAllotment(ctx context.Context, houseID int64, in OccupantInput) (*model.Allotment, error) {
	a := &model.Allotment{
		HouseID:        houseID,
		AllotteeName:   strings.TrimSpace(in.AllotteeName),
		Designation:    strings.TrimSpace(in.Designation),
		CNIC:           strings.TrimSpace(in.CNIC),
		Directorate:    strings.TrimSpace(in.Directorate),
		PayScale:       strings.TrimSpace(in.PayScale),
		AllotmentDate:  dateOnlyPtr(in.AllotmentDate),
		OccupationDate: dateOnlyPtr(in.OccupationDate),
		QtrStatus:      model.QtrActive,
		AllotteeStatus: strings.TrimSpace(in.AllotteeStatus),
		Notes:          strings.TrimSpace(in.Notes),
	}
	if a.AllotteeStatus == "" {
		a.AllotteeStatus = model.AllotteeInService
	}
	if err := validateAllotment(a); err != nil {
		return nil, err
	}

	err := s.scope.run(ctx, houseID, func(r *repository.Repos, h *model.House) error {
		return s.insertActive(ctx, r, h, a)
	})
	if err != nil {
		return nil, err
	}

	allotmentsTotal.WithLabelValues(opCreate).Inc()
	s.logger.Info("Аллотмент создан",
		slog.Int64("id", a.ID),
		slog.Int64("house_id", houseID),
	)
	return a, nil
}

// insertActive добавляет активный аллотмент дома h и пересчитывает статус.
// Вызывается под блокировкой дома.
func (s *AllotmentService) insertActive(ctx context.Context, r *repository.Repos, h *model.House, a *model.Allotment) error {
	active, err := r.Allotments.ActiveByHouse(ctx, h.ID)
	if err == nil {
		return fmt.Errorf("%w: дом %d уже занят (аллотмент %d)", ErrInvalidState, h.ID, active.ID)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("проверка активного аллотмента: %w", err)
	}

	a.HouseID = h.ID
	if err := r.Allotments.Create(ctx, a); err != nil {
		return fromRepo(err, fmt.Sprintf("активный аллотмент дома %d", h.ID))
	}
	_, err = s.status.Apply(ctx, r, h)
	return err
}

// EndAllotment завершает аллотмент. Повторный вызов возвращает
// текущее состояние без изменений. Дата освобождения по умолчанию — сегодня.
func (s *AllotmentService) EndAllotment(ctx context.Context, id int64, vacationDate *time.Time, notes string) (*model.Allotment, error) {
	current, err := s.GetAllotment(ctx, id)
	if err != nil {
		return nil, err
	}

	var out *model.Allotment
	changed := false
	err = s.scope.run(ctx, current.HouseID, func(r *repository.Repos, h *model.House) error {
		a, err := r.Allotments.GetByID(ctx, id)
		if err != nil {
			return fromRepo(err, fmt.Sprintf("аллотмент %d", id))
		}
		if !a.IsActive() {
			out = a
			return nil
		}

		a.QtrStatus = model.QtrEnded
		a.VacationDate = endDate(vacationDate)
		a.Notes = appendNote(a.Notes, notes)
		if err := s.finish(ctx, r, h, a); err != nil {
			return err
		}
		out, changed = a, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		allotmentsTotal.WithLabelValues(opEnd).Inc()
		s.logger.Info("Аллотмент завершён",
			slog.Int64("id", id),
			slog.Int64("house_id", out.HouseID),
		)
	}
	return out, nil
}

// finish сохраняет завершённый аллотмент и пересчитывает статус дома.
func (s *AllotmentService) finish(ctx context.Context, r *repository.Repos, h *model.House, a *model.Allotment) error {
	if err := r.Allotments.Update(ctx, a); err != nil {
		return fromRepo(err, fmt.Sprintf("аллотмент %d", a.ID))
	}
	_, err := s.status.Apply(ctx, r, h)
	return err
}

// release отменяет активный аллотмент: жилец — cancelled, дата освобождения — сегодня.
// ErrInvalidState, если аллотмент уже завершён.
func (s *AllotmentService) release(ctx context.Context, id int64) (*model.Allotment, error) {
	current, err := s.GetAllotment(ctx, id)
	if err != nil {
		return nil, err
	}

	var out *model.Allotment
	err = s.scope.run(ctx, current.HouseID, func(r *repository.Repos, h *model.House) error {
		a, err := r.Allotments.GetByID(ctx, id)
		if err != nil {
			return fromRepo(err, fmt.Sprintf("аллотмент %d", id))
		}
		if !a.IsActive() {
			return fmt.Errorf("%w: аллотмент %d уже завершён", ErrInvalidState, id)
		}

		a.QtrStatus = model.QtrEnded
		a.AllotteeStatus = model.AllotteeCancelled
		a.VacationDate = endDate(nil)
		a.Notes = appendNote(a.Notes, releasedNote)
		if err := s.finish(ctx, r, h, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	allotmentsTotal.WithLabelValues(opRelease).Inc()
	s.logger.Info("Аллотмент отменён",
		slog.Int64("id", id),
		slog.Int64("house_id", out.HouseID),
	)
	return out, nil
}

// UpdateAllotment обновляет сведения о жильце, даты, статус жильца и примечания.
// Состояние (active/ended) меняется только через EndAllotment.
func (s *AllotmentService) UpdateAllotment(ctx context.Context, id int64, upd AllotmentUpdate) (*model.Allotment, error) {
	current, err := s.GetAllotment(ctx, id)
	if err != nil {
		return nil, err
	}

	var out *model.Allotment
	err = s.scope.run(ctx, current.HouseID, func(r *repository.Repos, h *model.House) error {
		a, err := r.Allotments.GetByID(ctx, id)
		if err != nil {
			return fromRepo(err, fmt.Sprintf("аллотмент %d", id))
		}

		applyAllotmentUpdate(a, upd)
		if err := validateAllotment(a); err != nil {
			return err
		}
		if err := r.Allotments.Update(ctx, a); err != nil {
			return fromRepo(err, fmt.Sprintf("аллотмент %d", id))
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	allotmentsTotal.WithLabelValues(opUpdate).Inc()
	s.logger.Info("Аллотмент обновлён", slog.Int64("id", id))
	return out, nil
}

func applyAllotmentUpdate(a *model.Allotment, upd AllotmentUpdate) {
	setTrimmed := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setTrimmed(&a.AllotteeName, upd.AllotteeName)
	setTrimmed(&a.Designation, upd.Designation)
	setTrimmed(&a.CNIC, upd.CNIC)
	setTrimmed(&a.Directorate, upd.Directorate)
	setTrimmed(&a.PayScale, upd.PayScale)
	setTrimmed(&a.AllotteeStatus, upd.AllotteeStatus)
	setTrimmed(&a.Notes, upd.Notes)

	if upd.AllotmentDate != nil {
		a.AllotmentDate = dateOnlyPtr(upd.AllotmentDate)
	}
	if upd.OccupationDate != nil {
		a.OccupationDate = dateOnlyPtr(upd.OccupationDate)
	}
	if upd.VacationDate != nil {
		a.VacationDate = dateOnlyPtr(upd.VacationDate)
	}
}

func validateAllotment(a *model.Allotment) error {
	if a.AllotteeName == "" {
		return fmt.Errorf("%w: имя жильца обязательно", ErrValidation)
	}
	if !model.IsValidAllotteeStatus(a.AllotteeStatus) {
		return fmt.Errorf("%w: недопустимый статус жильца %q", ErrValidation, a.AllotteeStatus)
	}
	return nil
}

// GetAllotment возвращает аллотмент по ID.
func (s *AllotmentService) GetAllotment(ctx context.Context, id int64) (*model.Allotment, error) {
	a, err := s.store.Repos().Allotments.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, fmt.Sprintf("аллотмент %d", id))
	}
	return a, nil
}

// ListAllotments возвращает страницу аллотментов (новые первыми) и общее количество.
func (s *AllotmentService) ListAllotments(ctx context.Context, f repository.AllotmentFilter) ([]*model.Allotment, int, error) {
	items, total, err := s.store.Repos().Allotments.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("получение списка аллотментов: %w", err)
	}
	return items, total, nil
}

// endDate возвращает дату освобождения: переданную или сегодняшнюю.
func endDate(d *time.Time) *time.Time {
	if d != nil {
		return dateOnlyPtr(d)
	}
	t := today()
	return &t
}

// appendNote дописывает примечание новой строкой.
func appendNote(notes, add string) string {
	add = strings.TrimSpace(add)
	switch {
	case add == "":
		return notes
	case notes == "":
		return add
	default:
		return notes + "\n" + add
	}
}
