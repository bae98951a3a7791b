package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
)

// ApplicationRepository — заявки на предоставление дома (таблица applications).
type ApplicationRepository interface {
	// Create создаёт заявку. Заполняет ID, CreatedAt, UpdatedAt.
	Create(ctx context.Context, a *model.Application) error
	// GetByID возвращает заявку по ID.
	GetByID(ctx context.Context, id int64) (*model.Application, error)
	// GetForUpdate возвращает заявку и блокирует строку до конца транзакции.
	GetForUpdate(ctx context.Context, id int64) (*model.Application, error)
	// UpdateStatus меняет статус заявки.
	UpdateStatus(ctx context.Context, id int64, status string) error
}

type applicationRepo struct {
	db DBTX
}

// NewApplicationRepository создаёт репозиторий заявок.
func NewApplicationRepository(db DBTX) ApplicationRepository {
	return &applicationRepo{db: db}
}

const applicationColumns = `id, employee_id, bps_id, status, preferred_sector,
	priority_points, remarks, created_at, updated_at`

func scanApplication(row pgx.Row) (*model.Application, error) {
	a := &model.Application{}
	err := row.Scan(
		&a.ID, &a.EmployeeID, &a.BpsID, &a.Status, &a.PreferredSector,
		&a.PriorityPoints, &a.Remarks, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func (r *applicationRepo) Create(ctx context.Context, a *model.Application) error {
	query := `
		INSERT INTO applications (employee_id, bps_id, status, preferred_sector, priority_points, remarks)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		a.EmployeeID, a.BpsID, a.Status, a.PreferredSector, a.PriorityPoints, a.Remarks,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: сотрудник или разряд", ErrNotFound)
		}
		return fmt.Errorf("ошибка создания заявки: %w", err)
	}
	return nil
}

func (r *applicationRepo) GetByID(ctx context.Context, id int64) (*model.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE id = $1`, applicationColumns)
	return r.getOne(ctx, query, id)
}

func (r *applicationRepo) GetForUpdate(ctx context.Context, id int64) (*model.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE id = $1 FOR UPDATE`, applicationColumns)
	return r.getOne(ctx, query, id)
}

func (r *applicationRepo) getOne(ctx context.Context, query string, id int64) (*model.Application, error) {
	a, err := scanApplication(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения заявки: %w", err)
	}
	return a, nil
}

func (r *applicationRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE applications SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса заявки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
