package token

import (
	"time"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
)

// IsValid reports whether the token may be used to log in at now: it is
// not revoked and either permanent or not yet expired.
func (t *AuthToken) IsValid(now time.Time) bool {
	if t.RevokedAt != nil {
		return false
	}
	return t.ExpiresAt == nil || now.Before(*t.ExpiresAt)
}

// Revoke marks the token revoked at the given time. Revocation is final.
func (t *AuthToken) Revoke(at time.Time) error {
	if t.RevokedAt != nil {
		return apperrors.ErrTokenRevoked
	}
	t.RevokedAt = &at
	return nil
}
