// custody.go — учёт выдачи и возврата дел домов.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/custody"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/lock"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

// IssueInput — параметры выдачи дела.
type IssueInput struct {
	ToWhom  string
	Remarks string
	// MovedBy — пользователь, оформивший выдачу (необязательно)
	MovedBy *int64
}

// CustodyService — сервис движения дел.
type CustodyService struct {
	store  repository.Store
	scope  houseScope
	logger *slog.Logger
}

// NewCustodyService создаёт сервис движения дел.
func NewCustodyService(store repository.Store, locker lock.Locker, logger *slog.Logger) *CustodyService {
	return &CustodyService{
		store:  store,
		scope:  houseScope{store: store, locker: locker},
		logger: logger.With(slog.String("component", "custody_service")),
	}
}

// Issue выдаёт дело дома. ErrConflict, если дело уже выдано.
func (s *CustodyService) Issue(ctx context.Context, houseID int64, in IssueInput) (*model.FileMovement, error) {
	toWhom := strings.TrimSpace(in.ToWhom)
	if toWhom == "" {
		return nil, fmt.Errorf("%w: получатель дела обязателен", ErrValidation)
	}

	m := &model.FileMovement{
		HouseID:  houseID,
		Movement: model.MovementIssue,
		ToWhom:   toWhom,
		Remarks:  strings.TrimSpace(in.Remarks),
		MovedBy:  in.MovedBy,
	}
	err := s.scope.run(ctx, houseID, func(r *repository.Repos, h *model.House) error {
		open, err := r.Movements.OpenByHouse(ctx, houseID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("чтение открытой выдачи: %w", err)
		}
		if _, err := custody.Next(custody.StateOf(open != nil), model.MovementIssue); err != nil {
			return fmt.Errorf("%w: дело дома %d уже выдано (%v)", ErrConflict, houseID, err)
		}

		m.FileNo = h.FileNo
		m.MovedAt = time.Now().UTC()
		if err := r.Movements.Insert(ctx, m); err != nil {
			return fromRepo(err, fmt.Sprintf("дом %d", houseID))
		}
		if err := r.Movements.Open(ctx, houseID, m.ID); err != nil {
			return fromRepo(err, fmt.Sprintf("дело дома %d уже выдано", houseID))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			custodyConflictsTotal.Inc()
		}
		return nil, err
	}

	s.logger.Info("Дело выдано",
		slog.Int64("movement_id", m.ID),
		slog.Int64("house_id", houseID),
		slog.String("to_whom", m.ToWhom),
	)
	return m, nil
}

// IssueByFileNo выдаёт дело по номеру дела.
func (s *CustodyService) IssueByFileNo(ctx context.Context, fileNo string, in IssueInput) (*model.FileMovement, error) {
	fileNo = strings.TrimSpace(fileNo)
	h, err := s.store.Repos().Houses.GetByFileNo(ctx, fileNo)
	if err != nil {
		return nil, fromRepo(err, fmt.Sprintf("дом с номером дела %q", fileNo))
	}
	return s.Issue(ctx, h.ID, in)
}

// Receive принимает выданное дело обратно.
// ErrInvalidState, если movementID — строка возврата или уже закрытая выдача.
func (s *CustodyService) Receive(ctx context.Context, movementID int64, remarks string, movedBy *int64) (*model.FileMovement, error) {
	issue, err := s.store.Repos().Movements.GetByID(ctx, movementID)
	if err != nil {
		return nil, fromRepo(err, fmt.Sprintf("движение дела %d", movementID))
	}
	if issue.Movement != model.MovementIssue {
		return nil, fmt.Errorf("%w: движение %d не является выдачей", ErrInvalidState, movementID)
	}

	m := &model.FileMovement{
		HouseID:  issue.HouseID,
		Movement: model.MovementReceive,
		ToWhom:   issue.ToWhom,
		Remarks:  strings.TrimSpace(remarks),
		MovedBy:  movedBy,
		IssueID:  &issue.ID,
	}
	err = s.scope.run(ctx, issue.HouseID, func(r *repository.Repos, h *model.House) error {
		open, err := r.Movements.IsOpen(ctx, movementID)
		if err != nil {
			return fmt.Errorf("проверка открытой выдачи: %w", err)
		}
		if _, err := custody.Next(custody.StateOf(open), model.MovementReceive); err != nil {
			return fmt.Errorf("%w: выдача %d уже закрыта (%v)", ErrInvalidState, movementID, err)
		}

		m.FileNo = h.FileNo
		m.MovedAt = time.Now().UTC()
		if err := r.Movements.Insert(ctx, m); err != nil {
			return fromRepo(err, fmt.Sprintf("возврат по выдаче %d", movementID))
		}
		if err := r.Movements.Close(ctx, movementID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: выдача %d уже закрыта", ErrInvalidState, movementID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Дело возвращено",
		slog.Int64("movement_id", m.ID),
		slog.Int64("issue_id", movementID),
		slog.Int64("house_id", m.HouseID),
	)
	return m, nil
}

// GetOpenMovement возвращает открытую выдачу дома.
func (s *CustodyService) GetOpenMovement(ctx context.Context, houseID int64) (*model.FileMovement, error) {
	repos := s.store.Repos()
	if _, err := repos.Houses.GetByID(ctx, houseID); err != nil {
		return nil, fromRepo(err, fmt.Sprintf("дом %d", houseID))
	}
	m, err := repos.Movements.OpenByHouse(ctx, houseID)
	if err != nil {
		return nil, fromRepo(err, fmt.Sprintf("открытая выдача дела дома %d", houseID))
	}
	return m, nil
}

// ListOpenMovements возвращает открытые выдачи и их количество.
func (s *CustodyService) ListOpenMovements(ctx context.Context, limit, offset int) ([]*model.FileMovement, int, error) {
	items, total, err := s.store.Repos().Movements.ListOpen(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение открытых выдач: %w", err)
	}
	return items, total, nil
}

// ListMovements возвращает журнал движения дел (всех или одного дома).
func (s *CustodyService) ListMovements(ctx context.Context, houseID *int64, limit, offset int) ([]*model.FileMovement, int, error) {
	items, total, err := s.store.Repos().Movements.List(ctx, houseID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение журнала движения дел: %w", err)
	}
	return items, total, nil
}
