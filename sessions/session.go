package sessions

import (
	"encoding/base64"
	"time"

	"github.com/jrsteele09/trivia-director/token"
	"github.com/jrsteele09/trivia-director/users"
)

const DefaultIDLength = 32

// Session is the authenticated presence of one director window. At most
// one live session exists per user.
type Session struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Username      string     `json:"username"`
	Role          users.Role `json:"role"`
	UserAgent     string     `json:"userAgent,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastHeartbeat time.Time  `json:"lastHeartbeat"`
	ExpiresAt     time.Time  `json:"expiresAt"`
}

// Expired reports whether now is past the session's expiry. A session is
// still live at the exact ExpiresAt instant.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// NewID returns an opaque base64url session id from n random bytes.
func NewID(n int) (string, error) {
	if n <= 0 {
		n = DefaultIDLength
	}
	b, err := token.RandBytes(n)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
