// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — запись уже существует")
	// ErrReferenced — на запись ссылается история (аллотменты, журнал дел).
	ErrReferenced = errors.New("на запись ссылается история")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repos — набор репозиториев, привязанных к одному соединению или транзакции.
type Repos struct {
	Houses       HouseRepository
	Allotments   AllotmentRepository
	Movements    FileMovementRepository
	Bps          BpsRepository
	Employees    EmployeeRepository
	Applications ApplicationRepository
	WaitingList  WaitingListRepository
	Users        UserRepository
}

// NewRepos создаёт набор PostgreSQL-репозиториев поверх db.
func NewRepos(db DBTX) *Repos {
	return &Repos{
		Houses:       NewHouseRepository(db),
		Allotments:   NewAllotmentRepository(db),
		Movements:    NewFileMovementRepository(db),
		Bps:          NewBpsRepository(db),
		Employees:    NewEmployeeRepository(db),
		Applications: NewApplicationRepository(db),
		WaitingList:  NewWaitingListRepository(db),
		Users:        NewUserRepository(db),
	}
}

// Store — хранилище с поддержкой транзакций.
// Реализуется TxRunner (PostgreSQL) и memory.Store (в памяти).
type Store interface {
	// Repos возвращает репозитории вне транзакции.
	Repos() *Repos
	// RunInTx выполняет fn в одной транзакции.
	// Ошибка fn откатывает все изменения.
	RunInTx(ctx context.Context, fn func(r *Repos) error) error
}

// TxRunner позволяет выполнять операции в транзакции PostgreSQL.
type TxRunner struct {
	pool  *pgxpool.Pool
	repos *Repos
}

// NewTxRunner создаёт TxRunner для управления транзакциями.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool, repos: NewRepos(pool)}
}

// Repos возвращает репозитории, работающие через пул.
func (r *TxRunner) Repos() *Repos {
	return r.repos
}

// RunInTx выполняет fn внутри транзакции (read committed).
// При ошибке fn — транзакция откатывается.
// При успехе — коммитится.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(r *Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// isForeignKeyViolation проверяет нарушение внешнего ключа.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}

// pageClause возвращает LIMIT/OFFSET с номерами параметров, начиная с argNum.
// limit <= 0 означает выборку без ограничения.
func pageClause(argNum, limit, offset int, args []any) (string, []any) {
	if limit <= 0 {
		return fmt.Sprintf("OFFSET $%d", argNum), append(args, offset)
	}
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", argNum, argNum+1), append(args, limit, offset)
}
