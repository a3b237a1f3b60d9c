package users

import (
	"strings"
	"time"
	"unicode"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
)

// Role separates director accounts from administrators.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Status is the lifecycle state of a user. A REVOKED user cannot log in.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusRevoked Status = "REVOKED"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusRevoked
}

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"passwordHash"` // argon2id of the registration credential
	Salt         string     `json:"salt"`
	Role         Role       `json:"role"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// Public is the view of a user that is safe to return to admin clients.
type Public struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Role        Role       `json:"role"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func (u *User) Public() Public {
	return Public{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		Status:      u.Status,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// NormalizeUsername trims and lower-cases a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateUsername checks a normalized self-registered username:
// 3 to 50 characters of letters, digits, '_', '.' or '-'.
func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 50 {
		return apperrors.NewValidation("username", "must be between 3 and 50 characters")
	}
	for _, r := range username {
		if !isUsernameRune(r) {
			return apperrors.NewValidation("username", "may only contain letters, numbers, '_', '.' and '-'")
		}
	}
	return nil
}

// ValidateUsernameRelaxed is used for admin provisioning: 1 to 64
// characters and no whitespace.
func ValidateUsernameRelaxed(username string) error {
	if len(username) < 1 || len(username) > 64 {
		return apperrors.NewValidation("username", "must be between 1 and 64 characters")
	}
	if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return apperrors.NewValidation("username", "must not contain whitespace")
	}
	return nil
}

func isUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '.' || r == '-':
		return true
	}
	return false
}
