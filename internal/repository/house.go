package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
)

// Допустимые поля сортировки домов.
var houseSortColumns = map[string]string{
	"file_no":    "file_no",
	"qtr_no":     "qtr_no",
	"sector":     "sector",
	"type_code":  "type_code",
	"status":     "status",
	"created_at": "created_at",
	"id":         "id",
}

// IsValidHouseSort проверяет поле сортировки домов.
func IsValidHouseSort(field string) bool {
	_, ok := houseSortColumns[field]
	return ok
}

// HouseFilter — параметры выборки домов.
type HouseFilter struct {
	// Query — поиск по подстроке (file_no, qtr_no, street, sector, type_code)
	Query string
	// Sector, TypeCode, Status — точные фильтры
	Sector   *string
	TypeCode *string
	Status   *string
	// Sort — поле сортировки (по умолчанию file_no), Desc — по убыванию
	Sort string
	Desc bool
	// Limit, Offset — пагинация
	Limit  int
	Offset int
}

// HouseRepository — интерфейс CRUD для таблицы houses.
type HouseRepository interface {
	// Create создаёт дом. Заполняет ID, CreatedAt, UpdatedAt.
	Create(ctx context.Context, h *model.House) error
	// GetByID возвращает дом по ID.
	GetByID(ctx context.Context, id int64) (*model.House, error)
	// GetForUpdate возвращает дом и блокирует строку до конца транзакции.
	GetForUpdate(ctx context.Context, id int64) (*model.House, error)
	// GetByFileNo возвращает дом по номеру дела.
	GetByFileNo(ctx context.Context, fileNo string) (*model.House, error)
	// Update обновляет все изменяемые поля дома.
	Update(ctx context.Context, h *model.House) error
	// UpdateStatus обновляет только статус дома.
	UpdateStatus(ctx context.Context, id int64, status string) error
	// Delete удаляет дом без истории.
	// ErrReferenced, если у дома есть аллотменты или движения дела.
	Delete(ctx context.Context, id int64) error
	// List возвращает страницу домов и общее количество по фильтру.
	List(ctx context.Context, f HouseFilter) ([]*model.House, int, error)
}

// houseRepo — реализация HouseRepository.
type houseRepo struct {
	db DBTX
}

// NewHouseRepository создаёт репозиторий домов.
func NewHouseRepository(db DBTX) HouseRepository {
	return &houseRepo{db: db}
}

const houseColumns = `id, file_no, qtr_no, street, sector, type_code,
	status, status_manual, created_at, updated_at`

// scanHouse сканирует строку результата в модель House.
func scanHouse(row pgx.Row) (*model.House, error) {
	h := &model.House{}
	err := row.Scan(
		&h.ID, &h.FileNo, &h.QtrNo, &h.Street, &h.Sector, &h.TypeCode,
		&h.Status, &h.StatusManual, &h.CreatedAt, &h.UpdatedAt,
	)
	return h, err
}

func (r *houseRepo) Create(ctx context.Context, h *model.House) error {
	query := `
		INSERT INTO houses (file_no, qtr_no, street, sector, type_code, status, status_manual)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		h.FileNo, h.QtrNo, h.Street, h.Sector, h.TypeCode, h.Status, h.StatusManual,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: дом с номером дела %q уже существует", ErrConflict, h.FileNo)
		}
		return fmt.Errorf("ошибка создания дома: %w", err)
	}
	return nil
}

func (r *houseRepo) GetByID(ctx context.Context, id int64) (*model.House, error) {
	query := fmt.Sprintf(`SELECT %s FROM houses WHERE id = $1`, houseColumns)
	return r.getOne(ctx, query, id)
}

func (r *houseRepo) GetForUpdate(ctx context.Context, id int64) (*model.House, error) {
	query := fmt.Sprintf(`SELECT %s FROM houses WHERE id = $1 FOR UPDATE`, houseColumns)
	return r.getOne(ctx, query, id)
}

func (r *houseRepo) GetByFileNo(ctx context.Context, fileNo string) (*model.House, error) {
	query := fmt.Sprintf(`SELECT %s FROM houses WHERE file_no = $1`, houseColumns)
	return r.getOne(ctx, query, fileNo)
}

func (r *houseRepo) getOne(ctx context.Context, query string, arg any) (*model.House, error) {
	h, err := scanHouse(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения дома: %w", err)
	}
	return h, nil
}

func (r *houseRepo) Update(ctx context.Context, h *model.House) error {
	query := `
		UPDATE houses
		SET file_no = $2, qtr_no = $3, street = $4, sector = $5,
			type_code = $6, status = $7, status_manual = $8
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		h.ID, h.FileNo, h.QtrNo, h.Street, h.Sector, h.TypeCode, h.Status, h.StatusManual,
	).Scan(&h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: дом с номером дела %q уже существует", ErrConflict, h.FileNo)
		}
		return fmt.Errorf("ошибка обновления дома: %w", err)
	}
	return nil
}

func (r *houseRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE houses SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса дома: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *houseRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM houses WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: дом %d", ErrReferenced, id)
		}
		return fmt.Errorf("ошибка удаления дома: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *houseRepo) List(ctx context.Context, f HouseFilter) ([]*model.House, int, error) {
	// Динамическое построение WHERE
	var conditions []string
	var args []any
	argNum := 1

	if q := strings.TrimSpace(f.Query); q != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(file_no ILIKE $%[1]d OR qtr_no ILIKE $%[1]d OR street ILIKE $%[1]d OR sector ILIKE $%[1]d OR type_code ILIKE $%[1]d)",
			argNum))
		args = append(args, "%"+escapeLike(q)+"%")
		argNum++
	}
	if f.Sector != nil {
		conditions = append(conditions, fmt.Sprintf("sector = $%d", argNum))
		args = append(args, *f.Sector)
		argNum++
	}
	if f.TypeCode != nil {
		conditions = append(conditions, fmt.Sprintf("type_code = $%d", argNum))
		args = append(args, *f.TypeCode)
		argNum++
	}
	if f.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *f.Status)
		argNum++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM houses "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта домов: %w", err)
	}

	column, ok := houseSortColumns[f.Sort]
	if !ok {
		column = "file_no"
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	order := fmt.Sprintf("%s %s, id %s", column, dir, dir)
	if column == "id" {
		order = "id " + dir
	}

	page, args := pageClause(argNum, f.Limit, f.Offset, args)
	query := fmt.Sprintf(`
		SELECT %s
		FROM houses
		%s
		ORDER BY %s
		%s`, houseColumns, where, order, page)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка домов: %w", err)
	}
	defer rows.Close()

	var result []*model.House
	for rows.Next() {
		h, err := scanHouse(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования дома: %w", err)
		}
		result = append(result, h)
	}
	return result, total, rows.Err()
}

// escapeLike экранирует спецсимволы шаблона LIKE.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
