package tokenrequests

import (
	"context"
	"sort"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/storage"
	"github.com/pkg/errors"
)

type Repo interface {
	// Insert stores r after check accepts the current requests. check
	// and the write happen atomically with respect to other Inserts.
	Insert(ctx context.Context, r *Request, check func(existing []Request) error) error
	Get(ctx context.Context, id string) (*Request, error)
	List(ctx context.Context) ([]Request, error)
	Update(ctx context.Context, id string, fn func(r *Request) error) (*Request, error)
}

var _ Repo = (*KVRepo)(nil)

type KVRepo struct {
	requests *storage.Collection[Request]
}

func NewKVRepo(store storage.Store) *KVRepo {
	return &KVRepo{requests: storage.NewCollection[Request](store, storage.KeyTokenRequests)}
}

func (r *KVRepo) Insert(ctx context.Context, req *Request, check func(existing []Request) error) error {
	return r.requests.Update(ctx, func(items []Request) ([]Request, error) {
		if check != nil {
			if err := check(items); err != nil {
				return nil, err
			}
		}
		return append(items, *req), nil
	})
}

func (r *KVRepo) Get(ctx context.Context, id string) (*Request, error) {
	items, err := r.requests.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, errors.Wrapf(apperrors.ErrNotFound, "token request %s", id)
}

// List returns every request, newest first.
func (r *KVRepo) List(ctx context.Context) ([]Request, error) {
	items, err := r.requests.Load(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (r *KVRepo) Update(ctx context.Context, id string, fn func(req *Request) error) (*Request, error) {
	var updated *Request
	err := r.requests.Update(ctx, func(items []Request) ([]Request, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if err := fn(&items[i]); err != nil {
				return nil, err
			}
			req := items[i]
			updated = &req
			return items, nil
		}
		return nil, errors.Wrapf(apperrors.ErrNotFound, "token request %s", id)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
