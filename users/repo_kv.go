package users

import (
	"context"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/storage"
	"github.com/pkg/errors"
)

var _ Repo = (*KVRepo)(nil)

// KVRepo stores every user in the "users" collection.
type KVRepo struct {
	users *storage.Collection[User]
}

func NewKVRepo(store storage.Store) *KVRepo {
	return &KVRepo{users: storage.NewCollection[User](store, storage.KeyUsers)}
}

// Insert fails with ErrDuplicateUsername when the username is already
// stored. The check and the write happen under the collection lock.
func (r *KVRepo) Insert(ctx context.Context, user *User) error {
	return r.users.Update(ctx, func(items []User) ([]User, error) {
		for i := range items {
			if items[i].Username == user.Username {
				return nil, errors.Wrapf(apperrors.ErrDuplicateUsername, "username %q", user.Username)
			}
		}
		return append(items, *user), nil
	})
}

func (r *KVRepo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.find(ctx, func(u *User) bool { return u.ID == id })
}

func (r *KVRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.find(ctx, func(u *User) bool { return u.Username == username })
}

func (r *KVRepo) List(ctx context.Context) ([]*User, error) {
	items, err := r.users.Load(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]*User, len(items))
	for i := range items {
		list[i] = &items[i]
	}
	return list, nil
}

func (r *KVRepo) Update(ctx context.Context, id string, fn func(u *User) error) (*User, error) {
	var updated *User
	err := r.users.Update(ctx, func(items []User) ([]User, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if err := fn(&items[i]); err != nil {
				return nil, err
			}
			u := items[i]
			updated = &u
			return items, nil
		}
		return nil, errors.Wrapf(apperrors.ErrNotFound, "user %s", id)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *KVRepo) Delete(ctx context.Context, id string) error {
	return r.users.Update(ctx, func(items []User) ([]User, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, errors.Wrapf(apperrors.ErrNotFound, "user %s", id)
	})
}

func (r *KVRepo) find(ctx context.Context, match func(u *User) bool) (*User, error) {
	items, err := r.users.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if match(&items[i]) {
			return &items[i], nil
		}
	}
	return nil, apperrors.ErrNotFound
}
