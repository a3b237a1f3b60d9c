package token

import "context"

// Repo stores issued tokens. Tokens are never deleted; revocation is a
// field update so the issuance history is kept.
type Repo interface {
	Insert(ctx context.Context, t *AuthToken) error
	Get(ctx context.Context, id string) (*AuthToken, error)
	ListByUser(ctx context.Context, userID string) ([]*AuthToken, error)
	Update(ctx context.Context, id string, fn func(t *AuthToken) error) (*AuthToken, error)
}
