package token

import (
	"context"
	"sort"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/storage"
	"github.com/pkg/errors"
)

var _ Repo = (*KVRepo)(nil)

// KVRepo keeps all tokens as one collection in a storage.Store.
type KVRepo struct {
	tokens *storage.Collection[AuthToken]
}

func NewKVRepo(store storage.Store) *KVRepo {
	return &KVRepo{tokens: storage.NewCollection[AuthToken](store, storage.KeyTokens)}
}

func (r *KVRepo) Insert(ctx context.Context, t *AuthToken) error {
	return r.tokens.Update(ctx, func(items []AuthToken) ([]AuthToken, error) {
		return append(items, *t), nil
	})
}

func (r *KVRepo) Get(ctx context.Context, id string) (*AuthToken, error) {
	items, err := r.tokens.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, errors.Wrapf(apperrors.ErrNotFound, "token %s", id)
}

func (r *KVRepo) ListByUser(ctx context.Context, userID string) ([]*AuthToken, error) {
	items, err := r.tokens.Load(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]*AuthToken, 0)
	for i := range items {
		if items[i].UserID == userID {
			list = append(list, &items[i])
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (r *KVRepo) Update(ctx context.Context, id string, fn func(t *AuthToken) error) (*AuthToken, error) {
	var updated *AuthToken
	err := r.tokens.Update(ctx, func(items []AuthToken) ([]AuthToken, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if err := fn(&items[i]); err != nil {
				return nil, err
			}
			t := items[i]
			updated = &t
			return items, nil
		}
		return nil, errors.Wrapf(apperrors.ErrNotFound, "token %s", id)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
