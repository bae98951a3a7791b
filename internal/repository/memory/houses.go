package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

type houseRepo struct {
	*view
}

func (r *houseRepo) Create(_ context.Context, h *model.House) error {
	return r.run(func(st *state) error {
		if fileNoTaken(st, h.FileNo, 0) {
			return fmt.Errorf("%w: дом с номером дела %q уже существует", repository.ErrConflict, h.FileNo)
		}
		h.ID = st.next("houses")
		h.CreatedAt = r.now()
		h.UpdatedAt = h.CreatedAt
		st.houses[h.ID] = *h
		return nil
	})
}

func (r *houseRepo) GetByID(_ context.Context, id int64) (*model.House, error) {
	var out *model.House
	err := r.run(func(st *state) error {
		h, ok := st.houses[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &h
		return nil
	})
	return out, err
}

// GetForUpdate совпадает с GetByID: транзакции хранилища сериализованы.
func (r *houseRepo) GetForUpdate(ctx context.Context, id int64) (*model.House, error) {
	return r.GetByID(ctx, id)
}

func (r *houseRepo) GetByFileNo(_ context.Context, fileNo string) (*model.House, error) {
	var out *model.House
	err := r.run(func(st *state) error {
		for _, h := range st.houses {
			if h.FileNo == fileNo {
				out = &h
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *houseRepo) Update(_ context.Context, h *model.House) error {
	return r.run(func(st *state) error {
		cur, ok := st.houses[h.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if fileNoTaken(st, h.FileNo, h.ID) {
			return fmt.Errorf("%w: дом с номером дела %q уже существует", repository.ErrConflict, h.FileNo)
		}
		h.CreatedAt = cur.CreatedAt
		h.UpdatedAt = r.now()
		st.houses[h.ID] = *h
		return nil
	})
}

func (r *houseRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	return r.run(func(st *state) error {
		h, ok := st.houses[id]
		if !ok {
			return repository.ErrNotFound
		}
		h.Status = status
		h.UpdatedAt = r.now()
		st.houses[id] = h
		return nil
	})
}

// Delete удаляет дом без истории.
// ErrReferenced, если у дома есть аллотменты или движения дела.
func (r *houseRepo) Delete(_ context.Context, id int64) error {
	return r.run(func(st *state) error {
		if _, ok := st.houses[id]; !ok {
			return repository.ErrNotFound
		}
		for _, a := range st.allotments {
			if a.HouseID == id {
				return fmt.Errorf("%w: дом %d", repository.ErrReferenced, id)
			}
		}
		for _, m := range st.movements {
			if m.HouseID == id {
				return fmt.Errorf("%w: дом %d", repository.ErrReferenced, id)
			}
		}
		delete(st.houses, id)
		delete(st.custody, id)
		return nil
	})
}

func (r *houseRepo) List(_ context.Context, f repository.HouseFilter) ([]*model.House, int, error) {
	var items []*model.House
	err := r.run(func(st *state) error {
		q := strings.ToLower(strings.TrimSpace(f.Query))
		for _, h := range st.houses {
			if q != "" && !houseMatches(h, q) {
				continue
			}
			if f.Sector != nil && h.Sector != *f.Sector {
				continue
			}
			if f.TypeCode != nil && h.TypeCode != *f.TypeCode {
				continue
			}
			if f.Status != nil && h.Status != *f.Status {
				continue
			}
			items = append(items, &h)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	key := houseSortKey(f.Sort)
	slices.SortFunc(items, func(a, b *model.House) int {
		c := key(a, b)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if f.Desc {
			return -c
		}
		return c
	})
	return page(items, f.Limit, f.Offset), len(items), nil
}

func houseMatches(h model.House, q string) bool {
	for _, v := range []string{h.FileNo, h.QtrNo, h.Street, h.Sector, h.TypeCode} {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

func houseSortKey(field string) func(a, b *model.House) int {
	switch field {
	case "qtr_no":
		return func(a, b *model.House) int { return strings.Compare(a.QtrNo, b.QtrNo) }
	case "sector":
		return func(a, b *model.House) int { return strings.Compare(a.Sector, b.Sector) }
	case "type_code":
		return func(a, b *model.House) int { return strings.Compare(a.TypeCode, b.TypeCode) }
	case "status":
		return func(a, b *model.House) int { return strings.Compare(a.Status, b.Status) }
	case "created_at":
		return func(a, b *model.House) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case "id":
		return func(a, b *model.House) int { return 0 }
	default:
		return func(a, b *model.House) int { return strings.Compare(a.FileNo, b.FileNo) }
	}
}

func fileNoTaken(st *state, fileNo string, exceptID int64) bool {
	for id, h := range st.houses {
		if id != exceptID && h.FileNo == fileNo {
			return true
		}
	}
	return false
}
