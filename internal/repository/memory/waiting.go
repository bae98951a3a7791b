package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/queue"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

type bpsRepo struct {
	*view
}

func (r *bpsRepo) Create(_ context.Context, b *model.Bps) error {
	return r.run(func(st *state) error {
		for _, other := range st.bps {
			if other.Code == b.Code {
				return fmt.Errorf("%w: разряд %q уже существует", repository.ErrConflict, b.Code)
			}
		}
		b.ID = st.next("bps")
		st.bps[b.ID] = *b
		return nil
	})
}

func (r *bpsRepo) GetByID(_ context.Context, id int64) (*model.Bps, error) {
	var out *model.Bps
	err := r.run(func(st *state) error {
		b, ok := st.bps[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *bpsRepo) List(_ context.Context) ([]*model.Bps, error) {
	var items []*model.Bps
	err := r.run(func(st *state) error {
		for _, b := range st.bps {
			items = append(items, &b)
		}
		return nil
	})
	slices.SortFunc(items, func(a, b *model.Bps) int {
		if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return items, err
}

type employeeRepo struct {
	*view
}

func (r *employeeRepo) Create(_ context.Context, e *model.Employee) error {
	return r.run(func(st *state) error {
		if _, ok := st.bps[e.BpsID]; !ok {
			return fmt.Errorf("%w: разряд %d", repository.ErrNotFound, e.BpsID)
		}
		for _, other := range st.employees {
			if other.CNIC == e.CNIC {
				return fmt.Errorf("%w: сотрудник с CNIC %q уже существует", repository.ErrConflict, e.CNIC)
			}
		}
		e.ID = st.next("employees")
		e.CreatedAt = r.now()
		st.employees[e.ID] = *e
		return nil
	})
}

func (r *employeeRepo) GetByID(_ context.Context, id int64) (*model.Employee, error) {
	var out *model.Employee
	err := r.run(func(st *state) error {
		e, ok := st.employees[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &e
		return nil
	})
	return out, err
}

type applicationRepo struct {
	*view
}

func (r *applicationRepo) Create(_ context.Context, a *model.Application) error {
	return r.run(func(st *state) error {
		if _, ok := st.employees[a.EmployeeID]; !ok {
			return fmt.Errorf("%w: сотрудник или разряд", repository.ErrNotFound)
		}
		if _, ok := st.bps[a.BpsID]; !ok {
			return fmt.Errorf("%w: сотрудник или разряд", repository.ErrNotFound)
		}
		a.ID = st.next("applications")
		a.CreatedAt = r.now()
		a.UpdatedAt = a.CreatedAt
		st.applications[a.ID] = *a
		return nil
	})
}

func (r *applicationRepo) GetByID(_ context.Context, id int64) (*model.Application, error) {
	var out *model.Application
	err := r.run(func(st *state) error {
		a, ok := st.applications[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *applicationRepo) GetForUpdate(ctx context.Context, id int64) (*model.Application, error) {
	return r.GetByID(ctx, id)
}

func (r *applicationRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	return r.run(func(st *state) error {
		a, ok := st.applications[id]
		if !ok {
			return repository.ErrNotFound
		}
		a.Status = status
		a.UpdatedAt = r.now()
		st.applications[id] = a
		return nil
	})
}

type waitingRepo struct {
	*view
}

// LockRank ничего не делает: транзакции хранилища сериализованы.
func (r *waitingRepo) LockRank(context.Context, int) error {
	return nil
}

func (r *waitingRepo) RankStats(_ context.Context, rank int) (int, *int, error) {
	var count int
	var maxPriority *int
	err := r.run(func(st *state) error {
		for _, w := range st.waiting {
			if w.Rank != rank {
				continue
			}
			count++
			if maxPriority == nil || w.Priority > *maxPriority {
				p := w.Priority
				maxPriority = &p
			}
		}
		return nil
	})
	return count, maxPriority, err
}

func (r *waitingRepo) Insert(_ context.Context, e *model.WaitingEntry) error {
	return r.run(func(st *state) error {
		if _, ok := st.applications[e.ApplicationID]; !ok {
			return fmt.Errorf("%w: заявка %d", repository.ErrNotFound, e.ApplicationID)
		}
		for _, other := range st.waiting {
			if other.ApplicationID == e.ApplicationID || other.Priority == e.Priority {
				return fmt.Errorf("%w: заявка или приоритет %d уже в листе ожидания", repository.ErrConflict, e.Priority)
			}
		}
		e.ID = st.next("waiting_list")
		e.CreatedAt = r.now()
		st.waiting[e.ID] = model.WaitingEntry{
			ID: e.ID, ApplicationID: e.ApplicationID, Priority: e.Priority, Rank: e.Rank, CreatedAt: e.CreatedAt,
		}
		return nil
	})
}

func (r *waitingRepo) GetByID(_ context.Context, id int64) (*model.WaitingEntry, error) {
	var out *model.WaitingEntry
	err := r.run(func(st *state) error {
		w, ok := st.waiting[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = joinWaiting(st, w)
		return nil
	})
	return out, err
}

func (r *waitingRepo) GetByApplicationID(_ context.Context, applicationID int64) (*model.WaitingEntry, error) {
	var out *model.WaitingEntry
	err := r.run(func(st *state) error {
		for _, w := range st.waiting {
			if w.ApplicationID == applicationID {
				out = joinWaiting(st, w)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *waitingRepo) Delete(_ context.Context, id int64) error {
	return r.run(func(st *state) error {
		if _, ok := st.waiting[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.waiting, id)
		return nil
	})
}

func (r *waitingRepo) List(_ context.Context, f repository.WaitingFilter) ([]*model.WaitingEntry, int, error) {
	var items []*model.WaitingEntry
	err := r.run(func(st *state) error {
		for _, w := range st.waiting {
			e := joinWaiting(st, w)
			if f.Status != nil && e.ApplicationStatus != *f.Status {
				continue
			}
			if f.Sector != nil && (e.PreferredSector == nil || *e.PreferredSector != *f.Sector) {
				continue
			}
			items = append(items, e)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	queue.Sort(items)
	return page(items, f.Limit, f.Offset), len(items), nil
}

// joinWaiting дополняет позицию полями заявки, сотрудника и разряда.
func joinWaiting(st *state, w model.WaitingEntry) *model.WaitingEntry {
	app := st.applications[w.ApplicationID]
	w.PriorityPoints = app.PriorityPoints
	w.ApplicationStatus = app.Status
	w.PreferredSector = app.PreferredSector
	w.EmployeeName = st.employees[app.EmployeeID].Name
	w.BpsCode = st.bps[app.BpsID].Code
	return &w
}
