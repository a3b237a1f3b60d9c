package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/token"
	"github.com/pkg/errors"
)

// CreateOptions controls how CreateUser validates and tags a new user.
type CreateOptions struct {
	Role    Role
	Relaxed bool // admin provisioning rules instead of self-registration rules
}

// CredentialStore owns user records and their registration credentials.
type CredentialStore struct {
	repo         Repo
	secretLength int
	saltLength   int
	nowTime      func() time.Time
}

type CredentialStoreOption func(*CredentialStore)

func WithNowTime(nowFunc func() time.Time) CredentialStoreOption {
	return func(cs *CredentialStore) {
		cs.nowTime = nowFunc
	}
}

// WithSecretLengths overrides the random byte lengths of generated
// credentials and their salts.
func WithSecretLengths(secret, salt int) CredentialStoreOption {
	return func(cs *CredentialStore) {
		cs.secretLength = secret
		cs.saltLength = salt
	}
}

func NewCredentialStore(repo Repo, options ...CredentialStoreOption) *CredentialStore {
	cs := &CredentialStore{
		repo:         repo,
		secretLength: token.DefaultSecretLength,
		saltLength:   token.DefaultSaltLength,
		nowTime:      time.Now,
	}
	for _, opt := range options {
		opt(cs)
	}
	return cs
}

// CreateUser validates and stores a new user and returns the plaintext
// registration credential. The plaintext is not kept anywhere.
func (cs *CredentialStore) CreateUser(ctx context.Context, username string, opts CreateOptions) (*User, string, error) {
	name := NormalizeUsername(username)
	validate := ValidateUsername
	if opts.Relaxed {
		validate = ValidateUsernameRelaxed
	}
	if err := validate(name); err != nil {
		return nil, "", err
	}

	if _, err := cs.repo.GetByUsername(ctx, name); err == nil {
		return nil, "", errors.Wrapf(apperrors.ErrDuplicateUsername, "username %q", name)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, "", errors.Wrap(err, "[CredentialStore.CreateUser] lookup")
	}

	plaintext, err := token.GenerateSecret(cs.secretLength)
	if err != nil {
		return nil, "", errors.Wrap(err, "[CredentialStore.CreateUser] generate credential")
	}
	hash, salt, err := token.HashSecret(plaintext, cs.saltLength)
	if err != nil {
		return nil, "", errors.Wrap(err, "[CredentialStore.CreateUser] hash credential")
	}

	role := opts.Role
	if role == "" {
		role = RoleUser
	}
	user := &User{
		ID:           uuid.NewString(),
		Username:     name,
		PasswordHash: hash,
		Salt:         salt,
		Role:         role,
		Status:       StatusActive,
		CreatedAt:    cs.nowTime().UTC(),
	}
	if err := cs.repo.Insert(ctx, user); err != nil {
		return nil, "", err
	}
	return user, plaintext, nil
}

func (cs *CredentialStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return cs.repo.GetByUsername(ctx, NormalizeUsername(username))
}

func (cs *CredentialStore) FindByID(ctx context.Context, id string) (*User, error) {
	return cs.repo.GetByID(ctx, id)
}

func (cs *CredentialStore) List(ctx context.Context) ([]*User, error) {
	return cs.repo.List(ctx)
}

func (cs *CredentialStore) SetStatus(ctx context.Context, userID string, status Status) (*User, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidation("status", "unknown user status %q", status)
	}
	return cs.repo.Update(ctx, userID, func(u *User) error {
		u.Status = status
		return nil
	})
}

func (cs *CredentialStore) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := cs.repo.Update(ctx, userID, func(u *User) error {
		at := at.UTC()
		u.LastLoginAt = &at
		return nil
	})
	return err
}

func (cs *CredentialStore) Delete(ctx context.Context, userID string) error {
	return cs.repo.Delete(ctx, userID)
}

// VerifyCredential compares plaintext against the user's registration
// credential in constant time.
func (cs *CredentialStore) VerifyCredential(user *User, plaintext string) bool {
	if user == nil {
		return false
	}
	return token.Verify(plaintext, user.Salt, user.PasswordHash)
}
