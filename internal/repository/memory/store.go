// Пакет memory — хранилище в памяти с той же семантикой, что и PostgreSQL:
// уникальные ограничения, каскадное удаление, порядок выборок и транзакции.
//
// Транзакция работает с копией состояния под глобальной блокировкой
// и заменяет состояние целиком при успехе. Используется в тестах
// и при ACC_STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

// Проверка соответствия интерфейсу на этапе компиляции.
var _ repository.Store = (*Store)(nil)

// state — содержимое всех таблиц.
type state struct {
	houses       map[int64]model.House
	allotments   map[int64]model.Allotment
	movements    map[int64]model.FileMovement
	custody      map[int64]int64 // house_id → movement_id
	bps          map[int64]model.Bps
	employees    map[int64]model.Employee
	applications map[int64]model.Application
	waiting      map[int64]model.WaitingEntry
	users        map[int64]model.User
	seq          map[string]int64
}

func newState() *state {
	return &state{
		houses:       make(map[int64]model.House),
		allotments:   make(map[int64]model.Allotment),
		movements:    make(map[int64]model.FileMovement),
		custody:      make(map[int64]int64),
		bps:          make(map[int64]model.Bps),
		employees:    make(map[int64]model.Employee),
		applications: make(map[int64]model.Application),
		waiting:      make(map[int64]model.WaitingEntry),
		users:        make(map[int64]model.User),
		seq:          make(map[string]int64),
	}
}

// clone копирует состояние. Значения-указатели внутри записей
// не изменяются на месте, поэтому копируются только срезы.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.houses {
		c.houses[k] = v
	}
	for k, v := range s.allotments {
		c.allotments[k] = v
	}
	for k, v := range s.movements {
		c.movements[k] = v
	}
	for k, v := range s.custody {
		c.custody[k] = v
	}
	for k, v := range s.bps {
		c.bps[k] = v
	}
	for k, v := range s.employees {
		c.employees[k] = v
	}
	for k, v := range s.applications {
		c.applications[k] = v
	}
	for k, v := range s.waiting {
		c.waiting[k] = v
	}
	for k, v := range s.users {
		c.users[k] = cloneUser(v)
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

// next возвращает следующий идентификатор таблицы.
func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// Store — хранилище в памяти.
type Store struct {
	mu    sync.Mutex
	state *state
	nowFn func() time.Time
	repos *repository.Repos
}

// Option настраивает Store.
type Option func(*Store)

// WithClock задаёт источник времени для created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.nowFn = now }
}

// New создаёт пустое хранилище.
func New(opts ...Option) *Store {
	s := &Store{state: newState(), nowFn: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.repos = newRepos(&view{store: s})
	return s
}

// Repos возвращает репозитории вне транзакции.
// Каждый вызов метода выполняется под блокировкой хранилища.
func (s *Store) Repos() *repository.Repos {
	return s.repos
}

// RunInTx выполняет fn над копией состояния.
// Все транзакции сериализуются: блокировки строк и рангов не требуются.
func (s *Store) RunInTx(ctx context.Context, fn func(r *repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := s.state.clone()
	if err := fn(newRepos(&view{store: s, tx: tx})); err != nil {
		return err
	}
	s.state = tx
	return nil
}

// CheckReady реализует проверку готовности: хранилище в памяти всегда доступно.
func (s *Store) CheckReady() (status string, message string) {
	return "ok", "хранилище в памяти, данные не сохраняются между перезапусками"
}

// view — доступ к состоянию: либо к зафиксированному под блокировкой,
// либо к копии текущей транзакции.
type view struct {
	store *Store
	tx    *state
}

func (v *view) run(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.state)
}

func (v *view) now() time.Time {
	return v.store.nowFn().UTC()
}

func newRepos(v *view) *repository.Repos {
	return &repository.Repos{
		Houses:       &houseRepo{v},
		Allotments:   &allotmentRepo{v},
		Movements:    &movementRepo{v},
		Bps:          &bpsRepo{v},
		Employees:    &employeeRepo{v},
		Applications: &applicationRepo{v},
		WaitingList:  &waitingRepo{v},
		Users:        &userRepo{v},
	}
}

// page применяет limit/offset к отсортированной выборке.
// limit <= 0 означает выборку без ограничения.
func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneUser(u model.User) model.User {
	u.Permissions = append([]string(nil), u.Permissions...)
	return u
}
