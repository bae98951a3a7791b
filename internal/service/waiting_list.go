// waiting_list.go — заявки сотрудников, лист ожидания и распределение домов.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/queue"
	"github.com/fazalktk93/accommodation-sub000/internal/lock"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

// EmployeeInput — поля нового сотрудника.
type EmployeeInput struct {
	Name        string
	Designation string
	CNIC        string
	Directorate string
	BpsID       int64
}

// ApplicationInput — поля новой заявки.
type ApplicationInput struct {
	EmployeeID int64
	// BpsID — разряд заявки, по умолчанию разряд сотрудника
	BpsID           *int64
	PreferredSector *string
	PriorityPoints  int
	Remarks         string
}

// WaitingListService — сервис листа ожидания.
type WaitingListService struct {
	store      repository.Store
	scope      houseScope
	allotments *AllotmentService
	logger     *slog.Logger
}

// NewWaitingListService создаёт сервис листа ожидания.
func NewWaitingListService(store repository.Store, locker lock.Locker, allotments *AllotmentService, logger *slog.Logger) *WaitingListService {
	return &WaitingListService{
		store:      store,
		scope:      houseScope{store: store, locker: locker},
		allotments: allotments,
		logger:     logger.With(slog.String("component", "waiting_list_service")),
	}
}

// CreateBps добавляет разряд оплаты. ErrConflict при повторном коде.
func (s *WaitingListService) CreateBps(ctx context.Context, code string, rank int) (*model.Bps, error) {
	b := &model.Bps{Code: strings.TrimSpace(code), Rank: rank}
	if b.Code == "" {
		return nil, fmt.Errorf("%w: код разряда обязателен", ErrValidation)
	}
	if rank < 0 || rank >= 1<<31/queue.Bucket {
		return nil, fmt.Errorf("%w: недопустимый ранг %d", ErrValidation, rank)
	}

	if err := s.store.Repos().Bps.Create(ctx, b); err != nil {
		return nil, fromRepo(err, fmt.Sprintf("разряд %q", b.Code))
	}

	s.logger.Info("Разряд добавлен",
		slog.Int64("id", b.ID),
		slog.String("code", b.Code),
		slog.Int("rank", b.Rank),
	)
	return b, nil
}

// ListBps возвращает разряды по возрастанию ранга.
func (s *WaitingListService) ListBps(ctx context.Context) ([]*model.Bps, error) {
	items, err := s.store.Repos().Bps.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение списка разрядов: %w", err)
	}
	return items, nil
}

// CreateEmployee регистрирует сотрудника. ErrConflict при повторном CNIC.
func (s *WaitingListService) CreateEmployee(ctx context.Context, in EmployeeInput) (*model.Employee, error) {
	e := &model.Employee{
		Name:        strings.TrimSpace(in.Name),
		Designation: strings.TrimSpace(in.Designation),
		CNIC:        strings.TrimSpace(in.CNIC),
		Directorate: strings.TrimSpace(in.Directorate),
		BpsID:       in.BpsID,
	}
	if e.Name == "" || e.CNIC == "" {
		return nil, fmt.Errorf("%w: имя и CNIC сотрудника обязательны", ErrValidation)
	}

	if err := s.store.Repos().Employees.Create(ctx, e); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: разряд %d", ErrNotFound, e.BpsID)
		}
		return nil, fromRepo(err, fmt.Sprintf("сотрудник с CNIC %q", e.CNIC))
	}

	s.logger.Info("Сотрудник зарегистрирован", slog.Int64("id", e.ID))
	return e, nil
}

// GetEmployee возвращает сотрудника по ID.
func (s *WaitingListService) GetEmployee(ctx context.Context, id int64) (*model.Employee, error) {
	e, err := s.store.Repos().Employees.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, fmt.Sprintf("сотрудник %d", id))
	}
	return e, nil
}

// SubmitApplication регистрирует заявку в статусе pending.
func (s *WaitingListService) SubmitApplication(ctx context.Context, in ApplicationInput) (*model.Application, error) {
	if in.PriorityPoints < 0 {
		return nil, fmt.Errorf("%w: баллы приоритета не могут быть отрицательными", ErrValidation)
	}

	repos := s.store.Repos()
	emp, err := repos.Employees.GetByID(ctx, in.EmployeeID)
	if err != nil {
		return nil, fromRepo(err, fmt.Sprintf("сотрудник %d", in.EmployeeID))
	}

	a := &model.Application{
		EmployeeID:      emp.ID,
		BpsID:           emp.BpsID,
		Status:          model.ApplicationPending,
		PreferredSector: trimmedPtr(in.PreferredSector),
		PriorityPoints:  in.PriorityPoints,
		Remarks:         strings.TrimSpace(in.Remarks),
	}
	if in.BpsID != nil {
		a.BpsID = *in.BpsID
	}

	if err := repos.Applications.Create(ctx, a); err != nil {
		return nil, fromRepo(err, fmt.Sprintf("разряд %d", a.BpsID))
	}

	s.logger.Info("Заявка зарегистрирована",
		slog.Int64("id", a.ID),
		slog.Int64("employee_id", a.EmployeeID),
	)
	return a, nil
}

// GetApplication возвращает заявку по ID.
func (s *WaitingListService) GetApplication(ctx context.Context, id int64) (*model.Application, error) {
	a, err := s.store.Repos().Applications.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, fmt.Sprintf("заявка %d", id))
	}
	return a, nil
}

// RejectApplication отклоняет заявку в статусе pending или approved.
// Позиция одобренной заявки удаляется из листа ожидания.
func (s *WaitingListService) RejectApplication(ctx context.Context, id int64) (*model.Application, error) {
	var out *model.Application
	err := s.store.RunInTx(ctx, func(r *repository.Repos) error {
		a, err := r.Applications.GetForUpdate(ctx, id)
		if err != nil {
			return fromRepo(err, fmt.Sprintf("заявка %d", id))
		}
		switch a.Status {
		case model.ApplicationPending:
		case model.ApplicationApproved:
			entry, err := r.WaitingList.GetByApplicationID(ctx, id)
			if err == nil {
				err = r.WaitingList.Delete(ctx, entry.ID)
			}
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("удаление позиции листа ожидания: %w", err)
			}
		default:
			return fmt.Errorf("%w: заявку в статусе %s нельзя отклонить", ErrInvalidState, a.Status)
		}

		if err := r.Applications.UpdateStatus(ctx, id, model.ApplicationRejected); err != nil {
			return fromRepo(err, fmt.Sprintf("заявка %d", id))
		}
		a.Status = model.ApplicationRejected
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Заявка отклонена", slog.Int64("id", id))
	return out, nil
}

// Approve одобряет заявку и ставит её в лист ожидания.
// Приоритет: rank*Bucket + порядковый номер одобрения внутри ранга.
func (s *WaitingListService) Approve(ctx context.Context, applicationID int64) (*model.WaitingEntry, error) {
	var out *model.WaitingEntry
	err := s.store.RunInTx(ctx, func(r *repository.Repos) error {
		a, err := r.Applications.GetForUpdate(ctx, applicationID)
		if err != nil {
			return fromRepo(err, fmt.Sprintf("заявка %d", applicationID))
		}
		if a.Status != model.ApplicationPending && a.Status != model.ApplicationRejected {
			return fmt.Errorf("%w: заявку в статусе %s нельзя одобрить", ErrInvalidState, a.Status)
		}

		bps, err := r.Bps.GetByID(ctx, a.BpsID)
		if err != nil {
			return fromRepo(err, fmt.Sprintf("разряд %d", a.BpsID))
		}
		if err := r.WaitingList.LockRank(ctx, bps.Rank); err != nil {
			return err
		}
		count, maxPriority, err := r.WaitingList.RankStats(ctx, bps.Rank)
		if err != nil {
			return fmt.Errorf("статистика ранга %d: %w", bps.Rank, err)
		}
		priority, err := queue.NextPriority(bps.Rank, count, maxPriority)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}

		entry := &model.WaitingEntry{
			ApplicationID: a.ID,
			Priority:      priority,
			Rank:          bps.Rank,
		}
		if err := r.WaitingList.Insert(ctx, entry); err != nil {
			return fromRepo(err, fmt.Sprintf("позиция листа ожидания для заявки %d", a.ID))
		}
		if err := r.Applications.UpdateStatus(ctx, a.ID, model.ApplicationApproved); err != nil {
			return fromRepo(err, fmt.Sprintf("заявка %d", a.ID))
		}

		out, err = r.WaitingList.GetByID(ctx, entry.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Заявка одобрена",
		slog.Int64("application_id", applicationID),
		slog.Int64("waiting_id", out.ID),
		slog.Int("priority", out.Priority),
	)
	return out, nil
}

// Assign распределяет свободный дом заявителю из листа ожидания.
// В одной транзакции: активный аллотмент, заявка → allotted,
// пересчёт статуса дома, удаление позиции из листа.
// Ручной статус дома снимается, дом становится occupied.
func (s *WaitingListService) Assign(ctx context.Context, waitingID, houseID int64) (*model.Allotment, error) {
	if _, err := s.store.Repos().WaitingList.GetByID(ctx, waitingID); err != nil {
		return nil, fromRepo(err, fmt.Sprintf("позиция листа ожидания %d", waitingID))
	}

	var (
		out           *model.Allotment
		manualCleared bool
	)
	err := s.scope.run(ctx, houseID, func(r *repository.Repos, h *model.House) error {
		entry, err := r.WaitingList.GetByID(ctx, waitingID)
		if err != nil {
			return fromRepo(err, fmt.Sprintf("позиция листа ожидания %d", waitingID))
		}
		if h.Status != model.HouseVacant {
			return fmt.Errorf("%w: дом %d не свободен (%s)", ErrInvalidState, h.ID, h.Status)
		}

		app, err := r.Applications.GetForUpdate(ctx, entry.ApplicationID)
		if err != nil {
			return fromRepo(err, fmt.Sprintf("заявка %d", entry.ApplicationID))
		}
		if app.Status != model.ApplicationApproved {
			return fmt.Errorf("%w: заявка %d в статусе %s", ErrInvalidState, app.ID, app.Status)
		}
		emp, err := r.Employees.GetByID(ctx, app.EmployeeID)
		if err != nil {
			return fromRepo(err, fmt.Sprintf("сотрудник %d", app.EmployeeID))
		}
		bps, err := r.Bps.GetByID(ctx, app.BpsID)
		if err != nil {
			return fromRepo(err, fmt.Sprintf("разряд %d", app.BpsID))
		}

		allotted := today()
		a := &model.Allotment{
			ApplicationID:  &app.ID,
			AllotteeName:   emp.Name,
			Designation:    emp.Designation,
			CNIC:           emp.CNIC,
			Directorate:    emp.Directorate,
			PayScale:       bps.Code,
			AllotmentDate:  &allotted,
			QtrStatus:      model.QtrActive,
			AllotteeStatus: model.AllotteeInService,
		}
		// Распределение возвращает дом под вычисляемый статус
		if h.StatusManual {
			h.StatusManual = false
			if err := r.Houses.Update(ctx, h); err != nil {
				return fromRepo(err, fmt.Sprintf("дом %d", h.ID))
			}
			manualCleared = true
		}
		if err := s.allotments.insertActive(ctx, r, h, a); err != nil {
			return err
		}
		if err := r.Applications.UpdateStatus(ctx, app.ID, model.ApplicationAllotted); err != nil {
			return fromRepo(err, fmt.Sprintf("заявка %d", app.ID))
		}
		if err := r.WaitingList.Delete(ctx, entry.ID); err != nil {
			return fromRepo(err, fmt.Sprintf("позиция листа ожидания %d", entry.ID))
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	allotmentsTotal.WithLabelValues(opAssign).Inc()
	s.logger.Info("Дом распределён",
		slog.Int64("waiting_id", waitingID),
		slog.Int64("house_id", houseID),
		slog.Int64("allotment_id", out.ID),
		slog.Bool("manual_status_cleared", manualCleared),
	)
	return out, nil
}

// Release отменяет распределение: аллотмент завершается как cancelled,
// дом становится свободным. ErrInvalidState, если аллотмент уже завершён.
func (s *WaitingListService) Release(ctx context.Context, allotmentID int64) (*model.Allotment, error) {
	return s.allotments.release(ctx, allotmentID)
}

// List возвращает лист ожидания в порядке очереди и общее количество.
func (s *WaitingListService) List(ctx context.Context, f repository.WaitingFilter) ([]*model.WaitingEntry, int, error) {
	f.Sector = trimmedPtr(f.Sector)
	items, total, err := s.store.Repos().WaitingList.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("получение листа ожидания: %w", err)
	}
	return items, total, nil
}

// trimmedPtr обрезает пробелы; пустая строка превращается в nil.
func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
