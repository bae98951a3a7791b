package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
)

// UserRepository — локальные учётные записи (таблица users).
type UserRepository interface {
	// Create создаёт пользователя. ErrConflict при повторном логине.
	Create(ctx context.Context, u *model.User) error
	// GetByID возвращает пользователя по ID.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByUsername возвращает пользователя по логину.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// List возвращает страницу пользователей (по ID) и общее количество.
	List(ctx context.Context, limit, offset int) ([]*model.User, int, error)
	// Update обновляет имя, роль, права и активность.
	Update(ctx context.Context, u *model.User) error
	// SetPassword заменяет хэш пароля.
	SetPassword(ctx context.Context, id int64, hashed string) error
}

type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, username, full_name, role, permissions, hashed_password,
	is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.FullName, &u.Role, &u.Permissions, &u.HashedPassword,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (username, full_name, role, permissions, hashed_password, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		u.Username, u.FullName, u.Role, u.Permissions, u.HashedPassword, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: пользователь %q уже существует", ErrConflict, u.Username)
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return r.getOne(ctx, query, id)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)
	return r.getOne(ctx, query, username)
}

func (r *userRepo) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) List(ctx context.Context, limit, offset int) ([]*model.User, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}

	page, args := pageClause(1, limit, offset, nil)
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY id %s`, userColumns, page)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	var result []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		result = append(result, u)
	}
	return result, total, rows.Err()
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	query := `
		UPDATE users
		SET full_name = $2, role = $3, permissions = $4, is_active = $5
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		u.ID, u.FullName, u.Role, u.Permissions, u.IsActive,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) SetPassword(ctx context.Context, id int64, hashed string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET hashed_password = $2 WHERE id = $1`, id, hashed)
	if err != nil {
		return fmt.Errorf("ошибка смены пароля: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
