package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/pkg/errors"
)

// Collection reads and writes a slice of records stored under one key.
// Update serializes writers within this process; writers in other
// processes sharing the same store can still race.
type Collection[T any] struct {
	store Store
	key   string
	mu    sync.Mutex
}

func NewCollection[T any](store Store, key string) *Collection[T] {
	return &Collection[T]{store: store, key: key}
}

// Load returns every record; a missing key is an empty collection.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	raw, err := c.store.Get(ctx, c.key)
	if errors.Is(err, ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", apperrors.ErrStorage, c.key, err)
	}
	items := []T{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", apperrors.ErrStorage, c.key, err)
	}
	return items, nil
}

// Update loads the collection, applies fn and writes the result back.
// When fn returns an error nothing is written.
func (c *Collection[T]) Update(ctx context.Context, fn func(items []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.Load(ctx)
	if err != nil {
		return err
	}
	items, err = fn(items)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", apperrors.ErrStorage, c.key, err)
	}
	if err := c.store.Set(ctx, c.key, raw); err != nil {
		return fmt.Errorf("%w: save %s: %v", apperrors.ErrStorage, c.key, err)
	}
	return nil
}
