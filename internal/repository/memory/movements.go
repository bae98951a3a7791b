package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

type movementRepo struct {
	*view
}

func (r *movementRepo) Insert(_ context.Context, m *model.FileMovement) error {
	return r.run(func(st *state) error {
		if _, ok := st.houses[m.HouseID]; !ok {
			return fmt.Errorf("%w: дом %d", repository.ErrNotFound, m.HouseID)
		}
		if m.IssueID != nil {
			for _, other := range st.movements {
				if other.IssueID != nil && *other.IssueID == *m.IssueID {
					return fmt.Errorf("%w: выдача уже закрыта", repository.ErrConflict)
				}
			}
		}
		m.ID = st.next("file_movements")
		if m.MovedAt.IsZero() {
			m.MovedAt = r.now()
		}
		st.movements[m.ID] = *m
		return nil
	})
}

func (r *movementRepo) GetByID(_ context.Context, id int64) (*model.FileMovement, error) {
	var out *model.FileMovement
	err := r.run(func(st *state) error {
		m, ok := st.movements[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = withFileNo(st, m)
		return nil
	})
	return out, err
}

func (r *movementRepo) OpenByHouse(_ context.Context, houseID int64) (*model.FileMovement, error) {
	var out *model.FileMovement
	err := r.run(func(st *state) error {
		id, ok := st.custody[houseID]
		if !ok {
			return repository.ErrNotFound
		}
		out = withFileNo(st, st.movements[id])
		return nil
	})
	return out, err
}

func (r *movementRepo) Open(_ context.Context, houseID, movementID int64) error {
	return r.run(func(st *state) error {
		if _, ok := st.custody[houseID]; ok {
			return fmt.Errorf("%w: дело дома %d уже выдано", repository.ErrConflict, houseID)
		}
		for _, id := range st.custody {
			if id == movementID {
				return fmt.Errorf("%w: выдача %d уже открыта", repository.ErrConflict, movementID)
			}
		}
		st.custody[houseID] = movementID
		return nil
	})
}

func (r *movementRepo) Close(_ context.Context, movementID int64) error {
	return r.run(func(st *state) error {
		for houseID, id := range st.custody {
			if id == movementID {
				delete(st.custody, houseID)
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r *movementRepo) IsOpen(_ context.Context, movementID int64) (bool, error) {
	var open bool
	err := r.run(func(st *state) error {
		for _, id := range st.custody {
			if id == movementID {
				open = true
			}
		}
		return nil
	})
	return open, err
}

func (r *movementRepo) ListOpen(_ context.Context, limit, offset int) ([]*model.FileMovement, int, error) {
	var items []*model.FileMovement
	err := r.run(func(st *state) error {
		for _, id := range st.custody {
			items = append(items, withFileNo(st, st.movements[id]))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sortMovements(items)
	return page(items, limit, offset), len(items), nil
}

func (r *movementRepo) List(_ context.Context, houseID *int64, limit, offset int) ([]*model.FileMovement, int, error) {
	var items []*model.FileMovement
	err := r.run(func(st *state) error {
		for _, m := range st.movements {
			if houseID != nil && m.HouseID != *houseID {
				continue
			}
			items = append(items, withFileNo(st, m))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sortMovements(items)
	return page(items, limit, offset), len(items), nil
}

// sortMovements упорядочивает журнал: moved_at и id по убыванию.
func sortMovements(items []*model.FileMovement) {
	slices.SortFunc(items, func(a, b *model.FileMovement) int {
		if c := b.MovedAt.Compare(a.MovedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

func withFileNo(st *state, m model.FileMovement) *model.FileMovement {
	m.FileNo = st.houses[m.HouseID].FileNo
	return &m
}
