package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
)

// BpsRepository — справочник разрядов оплаты (таблица bps).
type BpsRepository interface {
	// Create создаёт разряд. ErrConflict при повторном коде.
	Create(ctx context.Context, b *model.Bps) error
	// GetByID возвращает разряд по ID.
	GetByID(ctx context.Context, id int64) (*model.Bps, error)
	// List возвращает все разряды по возрастанию ранга.
	List(ctx context.Context) ([]*model.Bps, error)
}

// EmployeeRepository — сотрудники (таблица employees).
type EmployeeRepository interface {
	// Create создаёт сотрудника. ErrConflict при повторном CNIC.
	Create(ctx context.Context, e *model.Employee) error
	// GetByID возвращает сотрудника по ID.
	GetByID(ctx context.Context, id int64) (*model.Employee, error)
}

type bpsRepo struct {
	db DBTX
}

// NewBpsRepository создаёт репозиторий разрядов.
func NewBpsRepository(db DBTX) BpsRepository {
	return &bpsRepo{db: db}
}

func (r *bpsRepo) Create(ctx context.Context, b *model.Bps) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO bps (code, rank) VALUES ($1, $2) RETURNING id`,
		b.Code, b.Rank,
	).Scan(&b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: разряд %q уже существует", ErrConflict, b.Code)
		}
		return fmt.Errorf("ошибка создания разряда: %w", err)
	}
	return nil
}

func (r *bpsRepo) GetByID(ctx context.Context, id int64) (*model.Bps, error) {
	b := &model.Bps{}
	err := r.db.QueryRow(ctx, `SELECT id, code, rank FROM bps WHERE id = $1`, id).
		Scan(&b.ID, &b.Code, &b.Rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения разряда: %w", err)
	}
	return b, nil
}

func (r *bpsRepo) List(ctx context.Context) ([]*model.Bps, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, rank FROM bps ORDER BY rank, id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка разрядов: %w", err)
	}
	defer rows.Close()

	var result []*model.Bps
	for rows.Next() {
		b := &model.Bps{}
		if err := rows.Scan(&b.ID, &b.Code, &b.Rank); err != nil {
			return nil, fmt.Errorf("ошибка сканирования разряда: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

type employeeRepo struct {
	db DBTX
}

// NewEmployeeRepository создаёт репозиторий сотрудников.
func NewEmployeeRepository(db DBTX) EmployeeRepository {
	return &employeeRepo{db: db}
}

func (r *employeeRepo) Create(ctx context.Context, e *model.Employee) error {
	query := `
		INSERT INTO employees (name, designation, cnic, directorate, bps_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		e.Name, e.Designation, e.CNIC, e.Directorate, e.BpsID,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: сотрудник с CNIC %q уже существует", ErrConflict, e.CNIC)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: разряд %d", ErrNotFound, e.BpsID)
		}
		return fmt.Errorf("ошибка создания сотрудника: %w", err)
	}
	return nil
}

func (r *employeeRepo) GetByID(ctx context.Context, id int64) (*model.Employee, error) {
	query := `
		SELECT id, name, designation, cnic, directorate, bps_id, created_at
		FROM employees WHERE id = $1`

	e := &model.Employee{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.Name, &e.Designation, &e.CNIC, &e.Directorate, &e.BpsID, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сотрудника: %w", err)
	}
	return e, nil
}
