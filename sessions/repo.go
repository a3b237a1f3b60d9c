package sessions

import (
	"context"
	"time"
)

// Repo defines the interface for session storage operations.
type Repo interface {
	// Upsert creates or replaces a session
	Upsert(ctx context.Context, s *Session) error

	// Get retrieves a session by ID
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session by ID
	Delete(ctx context.Context, id string) error

	// ListByUser returns every stored session of a user
	ListByUser(ctx context.Context, userID string) ([]*Session, error)

	// DeleteByUser removes every session of a user and returns how many were removed
	DeleteByUser(ctx context.Context, userID string) (int, error)

	// ReplaceForUser removes every session of s.UserID and stores s in one
	// write. It returns how many sessions were replaced.
	ReplaceForUser(ctx context.Context, s *Session) (int, error)

	// Renew moves a live session's expiry to now+ttl in one write. A missing
	// session is ErrSessionNotFound. An expired one is removed and reported
	// as ErrSessionExpired.
	Renew(ctx context.Context, id string, now time.Time, ttl time.Duration) (*Session, error)

	// DeleteExpired removes sessions whose expiry is before now
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
