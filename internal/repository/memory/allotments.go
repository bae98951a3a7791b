package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/occupancy"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

type allotmentRepo struct {
	*view
}

func (r *allotmentRepo) Create(_ context.Context, a *model.Allotment) error {
	return r.run(func(st *state) error {
		if _, ok := st.houses[a.HouseID]; !ok {
			return fmt.Errorf("%w: дом %d", repository.ErrNotFound, a.HouseID)
		}
		if a.IsActive() && activeTaken(st, a.HouseID, 0) {
			return fmt.Errorf("%w: у дома %d уже есть активный аллотмент", repository.ErrConflict, a.HouseID)
		}
		a.ID = st.next("allotments")
		a.CreatedAt = r.now()
		a.UpdatedAt = a.CreatedAt
		st.allotments[a.ID] = *a
		return nil
	})
}

func (r *allotmentRepo) GetByID(_ context.Context, id int64) (*model.Allotment, error) {
	var out *model.Allotment
	err := r.run(func(st *state) error {
		a, ok := st.allotments[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *allotmentRepo) Update(_ context.Context, a *model.Allotment) error {
	return r.run(func(st *state) error {
		cur, ok := st.allotments[a.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if a.IsActive() && activeTaken(st, cur.HouseID, a.ID) {
			return fmt.Errorf("%w: у дома %d уже есть активный аллотмент", repository.ErrConflict, cur.HouseID)
		}
		a.HouseID = cur.HouseID
		a.ApplicationID = cur.ApplicationID
		a.CreatedAt = cur.CreatedAt
		a.UpdatedAt = r.now()
		st.allotments[a.ID] = *a
		return nil
	})
}

func (r *allotmentRepo) Latest(_ context.Context, houseID int64) (*model.Allotment, error) {
	return r.last(houseID, false)
}

func (r *allotmentRepo) ActiveByHouse(_ context.Context, houseID int64) (*model.Allotment, error) {
	return r.last(houseID, true)
}

func (r *allotmentRepo) last(houseID int64, activeOnly bool) (*model.Allotment, error) {
	var out *model.Allotment
	err := r.run(func(st *state) error {
		var candidates []*model.Allotment
		for _, a := range st.allotments {
			if a.HouseID != houseID || (activeOnly && !a.IsActive()) {
				continue
			}
			candidates = append(candidates, &a)
		}
		out = occupancy.Latest(candidates)
		if out == nil {
			return repository.ErrNotFound
		}
		return nil
	})
	return out, err
}

func (r *allotmentRepo) List(_ context.Context, f repository.AllotmentFilter) ([]*model.Allotment, int, error) {
	var items []*model.Allotment
	err := r.run(func(st *state) error {
		for _, a := range st.allotments {
			if f.HouseID != nil && a.HouseID != *f.HouseID {
				continue
			}
			if f.ActiveOnly && !a.IsActive() {
				continue
			}
			items = append(items, &a)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	slices.SortFunc(items, func(a, b *model.Allotment) int { return cmp.Compare(b.ID, a.ID) })
	return page(items, f.Limit, f.Offset), len(items), nil
}

func activeTaken(st *state, houseID, exceptID int64) bool {
	for id, a := range st.allotments {
		if id != exceptID && a.HouseID == houseID && a.IsActive() {
			return true
		}
	}
	return false
}
