package token

import "time"

// AuthToken is one issued bearer credential. Only the salted hash of the
// secret is kept; the plaintext is handed out once at issuance.
type AuthToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Hash      string     `json:"hash"`
	Salt      string     `json:"salt"`
	IssuedBy  string     `json:"issuedBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"` // nil = permanent
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

// Issued pairs a stored token with its one-time plaintext.
type Issued struct {
	Token     *AuthToken `json:"token"`
	Plaintext string     `json:"plaintext"`
}

// Matches reports whether plaintext is this token's secret.
func (t *AuthToken) Matches(plaintext string) bool {
	return Verify(plaintext, t.Salt, t.Hash)
}

// Permanent reports whether the token never expires.
func (t *AuthToken) Permanent() bool {
	return t.ExpiresAt == nil
}
