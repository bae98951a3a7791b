package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
)

// AllotmentFilter — параметры выборки аллотментов.
type AllotmentFilter struct {
	HouseID    *int64
	ActiveOnly bool
	Limit      int
	Offset     int
}

// AllotmentRepository — интерфейс для таблицы allotments.
// Записи не удаляются, завершение — через Update с qtr_status = ended.
type AllotmentRepository interface {
	// Create создаёт аллотмент. Заполняет ID, CreatedAt, UpdatedAt.
	Create(ctx context.Context, a *model.Allotment) error
	// GetByID возвращает аллотмент по ID.
	GetByID(ctx context.Context, id int64) (*model.Allotment, error)
	// Update обновляет все изменяемые поля аллотмента.
	Update(ctx context.Context, a *model.Allotment) error
	// Latest возвращает последний по порядку вставки аллотмент дома.
	Latest(ctx context.Context, houseID int64) (*model.Allotment, error)
	// ActiveByHouse возвращает активный аллотмент дома.
	ActiveByHouse(ctx context.Context, houseID int64) (*model.Allotment, error)
	// List возвращает страницу аллотментов (ID по убыванию) и общее количество.
	List(ctx context.Context, f AllotmentFilter) ([]*model.Allotment, int, error)
}

// allotmentRepo — реализация AllotmentRepository.
type allotmentRepo struct {
	db DBTX
}

// NewAllotmentRepository создаёт репозиторий аллотментов.
func NewAllotmentRepository(db DBTX) AllotmentRepository {
	return &allotmentRepo{db: db}
}

const allotmentColumns = `id, house_id, application_id, allottee_name, designation, cnic,
	directorate, pay_scale, allotment_date, occupation_date, vacation_date,
	qtr_status, allottee_status, notes, created_at, updated_at`

// scanAllotment сканирует строку результата в модель Allotment.
func scanAllotment(row pgx.Row) (*model.Allotment, error) {
	a := &model.Allotment{}
	err := row.Scan(
		&a.ID, &a.HouseID, &a.ApplicationID, &a.AllotteeName, &a.Designation, &a.CNIC,
		&a.Directorate, &a.PayScale, &a.AllotmentDate, &a.OccupationDate, &a.VacationDate,
		&a.QtrStatus, &a.AllotteeStatus, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func (r *allotmentRepo) Create(ctx context.Context, a *model.Allotment) error {
	query := `
		INSERT INTO allotments (house_id, application_id, allottee_name, designation, cnic,
			directorate, pay_scale, allotment_date, occupation_date, vacation_date,
			qtr_status, allottee_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		a.HouseID, a.ApplicationID, a.AllotteeName, a.Designation, a.CNIC,
		a.Directorate, a.PayScale, a.AllotmentDate, a.OccupationDate, a.VacationDate,
		a.QtrStatus, a.AllotteeStatus, a.Notes,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: у дома %d уже есть активный аллотмент", ErrConflict, a.HouseID)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: дом %d", ErrNotFound, a.HouseID)
		}
		return fmt.Errorf("ошибка создания аллотмента: %w", err)
	}
	return nil
}

func (r *allotmentRepo) GetByID(ctx context.Context, id int64) (*model.Allotment, error) {
	query := fmt.Sprintf(`SELECT %s FROM allotments WHERE id = $1`, allotmentColumns)
	return r.getOne(ctx, query, id)
}

func (r *allotmentRepo) Latest(ctx context.Context, houseID int64) (*model.Allotment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM allotments
		WHERE house_id = $1
		ORDER BY id DESC
		LIMIT 1`, allotmentColumns)
	return r.getOne(ctx, query, houseID)
}

func (r *allotmentRepo) ActiveByHouse(ctx context.Context, houseID int64) (*model.Allotment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM allotments
		WHERE house_id = $1 AND qtr_status = 'active'
		ORDER BY id DESC
		LIMIT 1`, allotmentColumns)
	return r.getOne(ctx, query, houseID)
}

func (r *allotmentRepo) getOne(ctx context.Context, query string, arg any) (*model.Allotment, error) {
	a, err := scanAllotment(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения аллотмента: %w", err)
	}
	return a, nil
}

func (r *allotmentRepo) Update(ctx context.Context, a *model.Allotment) error {
	query := `
		UPDATE allotments
		SET allottee_name = $2, designation = $3, cnic = $4, directorate = $5, pay_scale = $6,
			allotment_date = $7, occupation_date = $8, vacation_date = $9,
			qtr_status = $10, allottee_status = $11, notes = $12
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		a.ID, a.AllotteeName, a.Designation, a.CNIC, a.Directorate, a.PayScale,
		a.AllotmentDate, a.OccupationDate, a.VacationDate,
		a.QtrStatus, a.AllotteeStatus, a.Notes,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: у дома %d уже есть активный аллотмент", ErrConflict, a.HouseID)
		}
		return fmt.Errorf("ошибка обновления аллотмента: %w", err)
	}
	return nil
}

func (r *allotmentRepo) List(ctx context.Context, f AllotmentFilter) ([]*model.Allotment, int, error) {
	var conditions []string
	var args []any
	argNum := 1

	if f.HouseID != nil {
		conditions = append(conditions, fmt.Sprintf("house_id = $%d", argNum))
		args = append(args, *f.HouseID)
		argNum++
	}
	if f.ActiveOnly {
		conditions = append(conditions, "qtr_status = 'active'")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM allotments "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта аллотментов: %w", err)
	}

	page, args := pageClause(argNum, f.Limit, f.Offset, args)
	query := fmt.Sprintf(`
		SELECT %s
		FROM allotments
		%s
		ORDER BY id DESC
		%s`, allotmentColumns, where, page)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка аллотментов: %w", err)
	}
	defer rows.Close()

	var result []*model.Allotment
	for rows.Next() {
		a, err := scanAllotment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования аллотмента: %w", err)
		}
		result = append(result, a)
	}
	return result, total, rows.Err()
}
