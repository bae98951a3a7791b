package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
)

// waitingLockClass — первый ключ advisory-блокировки рангов листа ожидания.
const waitingLockClass = 7301

// WaitingFilter — параметры выборки листа ожидания.
type WaitingFilter struct {
	// Status — статус заявки
	Status *string
	// Sector — желаемый сектор (колония) заявки
	Sector *string
	Limit  int
	Offset int
}

// WaitingListRepository — позиции листа ожидания (таблица waiting_list).
type WaitingListRepository interface {
	// LockRank сериализует одобрения внутри ранга до конца транзакции.
	LockRank(ctx context.Context, rank int) error
	// RankStats возвращает число позиций ранга и наибольший приоритет среди них.
	RankStats(ctx context.Context, rank int) (count int, maxPriority *int, err error)
	// Insert создаёт позицию. ErrConflict при повторной заявке или приоритете.
	Insert(ctx context.Context, e *model.WaitingEntry) error
	// GetByID возвращает позицию по ID (с полями заявки).
	GetByID(ctx context.Context, id int64) (*model.WaitingEntry, error)
	// GetByApplicationID возвращает позицию заявки.
	GetByApplicationID(ctx context.Context, applicationID int64) (*model.WaitingEntry, error)
	// Delete удаляет позицию.
	Delete(ctx context.Context, id int64) error
	// List возвращает позиции в порядке очереди и общее количество.
	List(ctx context.Context, f WaitingFilter) ([]*model.WaitingEntry, int, error)
}

type waitingListRepo struct {
	db DBTX
}

// NewWaitingListRepository создаёт репозиторий листа ожидания.
func NewWaitingListRepository(db DBTX) WaitingListRepository {
	return &waitingListRepo{db: db}
}

const waitingColumns = `w.id, w.application_id, w.priority, w.rank, w.created_at,
	a.priority_points, a.status, a.preferred_sector, e.name, b.code`

const waitingFrom = `
		FROM waiting_list w
		JOIN applications a ON a.id = w.application_id
		JOIN employees e ON e.id = a.employee_id
		JOIN bps b ON b.id = a.bps_id`

func scanWaiting(row pgx.Row) (*model.WaitingEntry, error) {
	w := &model.WaitingEntry{}
	err := row.Scan(
		&w.ID, &w.ApplicationID, &w.Priority, &w.Rank, &w.CreatedAt,
		&w.PriorityPoints, &w.ApplicationStatus, &w.PreferredSector, &w.EmployeeName, &w.BpsCode,
	)
	return w, err
}

func (r *waitingListRepo) LockRank(ctx context.Context, rank int) error {
	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, waitingLockClass, rank); err != nil {
		return fmt.Errorf("ошибка блокировки ранга %d: %w", rank, err)
	}
	return nil
}

func (r *waitingListRepo) RankStats(ctx context.Context, rank int) (int, *int, error) {
	var count int
	var maxPriority *int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), MAX(priority) FROM waiting_list WHERE rank = $1`, rank,
	).Scan(&count, &maxPriority)
	if err != nil {
		return 0, nil, fmt.Errorf("ошибка подсчёта позиций ранга: %w", err)
	}
	return count, maxPriority, nil
}

func (r *waitingListRepo) Insert(ctx context.Context, e *model.WaitingEntry) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO waiting_list (application_id, priority, rank) VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		e.ApplicationID, e.Priority, e.Rank,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: заявка или приоритет %d уже в листе ожидания", ErrConflict, e.Priority)
		}
		return fmt.Errorf("ошибка добавления в лист ожидания: %w", err)
	}
	return nil
}

func (r *waitingListRepo) GetByID(ctx context.Context, id int64) (*model.WaitingEntry, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE w.id = $1`, waitingColumns, waitingFrom)
	return r.getOne(ctx, query, id)
}

func (r *waitingListRepo) GetByApplicationID(ctx context.Context, applicationID int64) (*model.WaitingEntry, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE w.application_id = $1`, waitingColumns, waitingFrom)
	return r.getOne(ctx, query, applicationID)
}

func (r *waitingListRepo) getOne(ctx context.Context, query string, id int64) (*model.WaitingEntry, error) {
	w, err := scanWaiting(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения позиции листа ожидания: %w", err)
	}
	return w, nil
}

func (r *waitingListRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM waiting_list WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления позиции листа ожидания: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *waitingListRepo) List(ctx context.Context, f WaitingFilter) ([]*model.WaitingEntry, int, error) {
	var conditions []string
	var args []any
	argNum := 1

	if f.Status != nil {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", argNum))
		args = append(args, *f.Status)
		argNum++
	}
	if f.Sector != nil {
		conditions = append(conditions, fmt.Sprintf("a.preferred_sector = $%d", argNum))
		args = append(args, *f.Sector)
		argNum++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) "+waitingFrom+" "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта листа ожидания: %w", err)
	}

	page, args := pageClause(argNum, f.Limit, f.Offset, args)
	query := fmt.Sprintf(`
		SELECT %s
		%s
		%s
		ORDER BY w.priority ASC, a.priority_points DESC, w.id ASC
		%s`, waitingColumns, waitingFrom, where, page)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения листа ожидания: %w", err)
	}
	defer rows.Close()

	var result []*model.WaitingEntry
	for rows.Next() {
		w, err := scanWaiting(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования позиции листа ожидания: %w", err)
		}
		result = append(result, w)
	}
	return result, total, rows.Err()
}
