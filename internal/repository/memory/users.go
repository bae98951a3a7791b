package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

type userRepo struct {
	*view
}

func (r *userRepo) Create(_ context.Context, u *model.User) error {
	return r.run(func(st *state) error {
		for _, other := range st.users {
			if other.Username == u.Username {
				return fmt.Errorf("%w: пользователь %q уже существует", repository.ErrConflict, u.Username)
			}
		}
		u.ID = st.next("users")
		u.CreatedAt = r.now()
		u.UpdatedAt = u.CreatedAt
		st.users[u.ID] = cloneUser(*u)
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	var out *model.User
	err := r.run(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneUser(u)
		out = &c
		return nil
	})
	return out, err
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	var out *model.User
	err := r.run(func(st *state) error {
		for _, u := range st.users {
			if u.Username == username {
				c := cloneUser(u)
				out = &c
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *userRepo) List(_ context.Context, limit, offset int) ([]*model.User, int, error) {
	var items []*model.User
	err := r.run(func(st *state) error {
		for _, u := range st.users {
			c := cloneUser(u)
			items = append(items, &c)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	slices.SortFunc(items, func(a, b *model.User) int { return cmp.Compare(a.ID, b.ID) })
	return page(items, limit, offset), len(items), nil
}

func (r *userRepo) Update(_ context.Context, u *model.User) error {
	return r.run(func(st *state) error {
		cur, ok := st.users[u.ID]
		if !ok {
			return repository.ErrNotFound
		}
		cur.FullName = u.FullName
		cur.Role = u.Role
		cur.Permissions = append([]string(nil), u.Permissions...)
		cur.IsActive = u.IsActive
		cur.UpdatedAt = r.now()
		u.UpdatedAt = cur.UpdatedAt
		st.users[u.ID] = cur
		return nil
	})
}

func (r *userRepo) SetPassword(_ context.Context, id int64, hashed string) error {
	return r.run(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		u.HashedPassword = hashed
		u.UpdatedAt = r.now()
		st.users[id] = u
		return nil
	})
}
