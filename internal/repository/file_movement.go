package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
)

// FileMovementRepository — журнал движения дел (file_movements)
// и таблица текущих открытых выдач (file_custody).
type FileMovementRepository interface {
	// Insert добавляет строку журнала. Заполняет ID.
	Insert(ctx context.Context, m *model.FileMovement) error
	// GetByID возвращает строку журнала по ID.
	GetByID(ctx context.Context, id int64) (*model.FileMovement, error)
	// OpenByHouse возвращает открытую выдачу дома.
	OpenByHouse(ctx context.Context, houseID int64) (*model.FileMovement, error)
	// Open отмечает выдачу открытой. ErrConflict, если у дома уже есть открытая выдача.
	Open(ctx context.Context, houseID, movementID int64) error
	// Close снимает отметку открытой выдачи. ErrNotFound, если выдача не открыта.
	Close(ctx context.Context, movementID int64) error
	// IsOpen сообщает, открыта ли выдача.
	IsOpen(ctx context.Context, movementID int64) (bool, error)
	// ListOpen возвращает открытые выдачи (moved_at, id по убыванию) и их количество.
	ListOpen(ctx context.Context, limit, offset int) ([]*model.FileMovement, int, error)
	// List возвращает журнал (moved_at, id по убыванию) и общее количество.
	List(ctx context.Context, houseID *int64, limit, offset int) ([]*model.FileMovement, int, error)
}

// fileMovementRepo — реализация FileMovementRepository.
type fileMovementRepo struct {
	db DBTX
}

// NewFileMovementRepository создаёт репозиторий движения дел.
func NewFileMovementRepository(db DBTX) FileMovementRepository {
	return &fileMovementRepo{db: db}
}

const movementColumns = `m.id, m.house_id, h.file_no, m.movement, m.to_whom, m.remarks,
	m.moved_at, m.moved_by, m.issue_id`

// scanMovement сканирует строку результата в модель FileMovement.
func scanMovement(row pgx.Row) (*model.FileMovement, error) {
	m := &model.FileMovement{}
	err := row.Scan(
		&m.ID, &m.HouseID, &m.FileNo, &m.Movement, &m.ToWhom, &m.Remarks,
		&m.MovedAt, &m.MovedBy, &m.IssueID,
	)
	return m, err
}

func (r *fileMovementRepo) Insert(ctx context.Context, m *model.FileMovement) error {
	query := `
		INSERT INTO file_movements (house_id, movement, to_whom, remarks, moved_at, moved_by, issue_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		m.HouseID, m.Movement, m.ToWhom, m.Remarks, m.MovedAt, m.MovedBy, m.IssueID,
	).Scan(&m.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: выдача уже закрыта", ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: дом %d", ErrNotFound, m.HouseID)
		}
		return fmt.Errorf("ошибка записи движения дела: %w", err)
	}
	return nil
}

func (r *fileMovementRepo) GetByID(ctx context.Context, id int64) (*model.FileMovement, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM file_movements m JOIN houses h ON h.id = m.house_id
		WHERE m.id = $1`, movementColumns)
	return r.getOne(ctx, query, id)
}

func (r *fileMovementRepo) OpenByHouse(ctx context.Context, houseID int64) (*model.FileMovement, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM file_custody c
		JOIN file_movements m ON m.id = c.movement_id
		JOIN houses h ON h.id = m.house_id
		WHERE c.house_id = $1`, movementColumns)
	return r.getOne(ctx, query, houseID)
}

func (r *fileMovementRepo) getOne(ctx context.Context, query string, arg any) (*model.FileMovement, error) {
	m, err := scanMovement(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения движения дела: %w", err)
	}
	return m, nil
}

func (r *fileMovementRepo) Open(ctx context.Context, houseID, movementID int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO file_custody (house_id, movement_id) VALUES ($1, $2)`,
		houseID, movementID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: дело дома %d уже выдано", ErrConflict, houseID)
		}
		return fmt.Errorf("ошибка открытия выдачи: %w", err)
	}
	return nil
}

func (r *fileMovementRepo) Close(ctx context.Context, movementID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM file_custody WHERE movement_id = $1`, movementID)
	if err != nil {
		return fmt.Errorf("ошибка закрытия выдачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fileMovementRepo) IsOpen(ctx context.Context, movementID int64) (bool, error) {
	var open bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM file_custody WHERE movement_id = $1)`, movementID,
	).Scan(&open)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки выдачи: %w", err)
	}
	return open, nil
}

func (r *fileMovementRepo) ListOpen(ctx context.Context, limit, offset int) ([]*model.FileMovement, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM file_custody`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта открытых выдач: %w", err)
	}

	page, args := pageClause(1, limit, offset, nil)
	query := fmt.Sprintf(`
		SELECT %s
		FROM file_custody c
		JOIN file_movements m ON m.id = c.movement_id
		JOIN houses h ON h.id = m.house_id
		ORDER BY m.moved_at DESC, m.id DESC
		%s`, movementColumns, page)

	items, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *fileMovementRepo) List(ctx context.Context, houseID *int64, limit, offset int) ([]*model.FileMovement, int, error) {
	where := ""
	var args []any
	argNum := 1
	if houseID != nil {
		where = "WHERE m.house_id = $1"
		args = append(args, *houseID)
		argNum++
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM file_movements m "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта движений дел: %w", err)
	}

	page, args := pageClause(argNum, limit, offset, args)
	query := fmt.Sprintf(`
		SELECT %s
		FROM file_movements m JOIN houses h ON h.id = m.house_id
		%s
		ORDER BY m.moved_at DESC, m.id DESC
		%s`, movementColumns, where, page)

	items, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *fileMovementRepo) query(ctx context.Context, query string, args ...any) ([]*model.FileMovement, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала движений: %w", err)
	}
	defer rows.Close()

	var result []*model.FileMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования движения дела: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
