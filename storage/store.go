// Package storage is the persistence substrate: a narrow key-value store
// whose values are whole JSON collections. Every write replaces the full
// value of one key; there are no partial updates and no transactions that
// span keys.
package storage

import (
	"context"
	"fmt"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
)

// Well-known keys.
const (
	KeyUsers         = "users"
	KeySessions      = "sessions"
	KeyTokens        = "tokens"
	KeyAuditLogs     = "audit_logs"
	KeyTokenRequests = "token_requests"
	KeyEventName     = "event_name"
	KeyGameStateBase = "game_state:"
)

var ErrNotFound = fmt.Errorf("storage key: %w", apperrors.ErrNotFound)

// Store is implemented by every storage driver. Set replaces the value
// atomically; Get returns ErrNotFound for unknown keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}
