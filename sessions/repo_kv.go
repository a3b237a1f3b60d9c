package sessions

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/storage"
)

var _ Repo = (*KVRepo)(nil)

type KVRepo struct {
	sessions *storage.Collection[Session]
}

func NewKVRepo(store storage.Store) *KVRepo {
	return &KVRepo{sessions: storage.NewCollection[Session](store, storage.KeySessions)}
}

func (r *KVRepo) Upsert(ctx context.Context, s *Session) error {
	return r.sessions.Update(ctx, func(items []Session) ([]Session, error) {
		for i := range items {
			if items[i].ID == s.ID {
				items[i] = *s
				return items, nil
			}
		}
		return append(items, *s), nil
	})
}

func (r *KVRepo) Get(ctx context.Context, id string) (*Session, error) {
	items, err := r.sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, apperrors.ErrSessionNotFound
}

func (r *KVRepo) Delete(ctx context.Context, id string) error {
	n, err := r.deleteWhere(ctx, func(s *Session) bool { return s.ID == id })
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

func (r *KVRepo) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	items, err := r.sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]*Session, 0)
	for i := range items {
		if items[i].UserID == userID {
			list = append(list, &items[i])
		}
	}
	return list, nil
}

func (r *KVRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	return r.deleteWhere(ctx, func(s *Session) bool { return s.UserID == userID })
}

func (r *KVRepo) ReplaceForUser(ctx context.Context, s *Session) (int, error) {
	replaced := 0
	err := r.sessions.Update(ctx, func(items []Session) ([]Session, error) {
		kept := items[:0]
		for i := range items {
			if items[i].UserID == s.UserID {
				replaced++
				continue
			}
			kept = append(kept, items[i])
		}
		return append(kept, *s), nil
	})
	if err != nil {
		return 0, err
	}
	return replaced, nil
}

func (r *KVRepo) Renew(ctx context.Context, id string, now time.Time, ttl time.Duration) (*Session, error) {
	var (
		renewed Session
		expired bool
	)
	err := r.sessions.Update(ctx, func(items []Session) ([]Session, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if items[i].Expired(now) {
				expired = true
				return append(items[:i], items[i+1:]...), nil
			}
			items[i].LastHeartbeat = now
			items[i].ExpiresAt = now.Add(ttl)
			renewed = items[i]
			return items, nil
		}
		return nil, apperrors.ErrSessionNotFound
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, apperrors.ErrSessionExpired
	}
	return &renewed, nil
}

func (r *KVRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return r.deleteWhere(ctx, func(s *Session) bool { return s.Expired(now) })
}

func (r *KVRepo) deleteWhere(ctx context.Context, match func(s *Session) bool) (int, error) {
	removed := 0
	err := r.sessions.Update(ctx, func(items []Session) ([]Session, error) {
		kept := items[:0]
		for i := range items {
			if match(&items[i]) {
				removed++
				continue
			}
			kept = append(kept, items[i])
		}
		return kept, nil
	})
	return removed, err
}
