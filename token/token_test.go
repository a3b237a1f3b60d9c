package token_test

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/storage"
	"github.com/jrsteele09/trivia-director/token"
	"github.com/stretchr/testify/require"
)

func TestSecret_HashAndVerify(t *testing.T) {
	secret, err := token.GenerateSecret(token.DefaultSecretLength)
	require.NoError(t, err)
	require.Len(t, secret, 43, "32 bytes base64url without padding")

	hash, salt, err := token.HashSecret(secret, token.DefaultSaltLength)
	require.NoError(t, err)
	require.NotEqual(t, secret, hash)

	require.True(t, token.Verify(secret, salt, hash))
	require.False(t, token.Verify(secret+"x", salt, hash))
	require.False(t, token.Verify("", salt, hash))

	_, otherSalt, err := token.HashSecret(secret, token.DefaultSaltLength)
	require.NoError(t, err)
	require.NotEqual(t, salt, otherSalt, "salts are per record")
}

func TestAuthToken_IsValid(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	tests := []struct {
		name  string
		token token.AuthToken
		want  bool
	}{
		{"permanent", token.AuthToken{}, true},
		{"not yet expired", token.AuthToken{ExpiresAt: &future}, true},
		{"expired", token.AuthToken{ExpiresAt: &past}, false},
		{"revoked", token.AuthToken{RevokedAt: &past}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.token.IsValid(now))
		})
	}
}

func TestAuthToken_RevokeTwice(t *testing.T) {
	tok := token.AuthToken{}
	require.NoError(t, tok.Revoke(time.Now()))
	require.ErrorIs(t, tok.Revoke(time.Now()), apperrors.ErrConflict)
}

func TestKVRepo(t *testing.T) {
	ctx := context.Background()
	repo := token.NewKVRepo(storage.NewMemoryStore())
	now := time.Now()

	require.NoError(t, repo.Insert(ctx, &token.AuthToken{ID: "t2", UserID: "u1", CreatedAt: now.Add(time.Second)}))
	require.NoError(t, repo.Insert(ctx, &token.AuthToken{ID: "t1", UserID: "u1", CreatedAt: now}))
	require.NoError(t, repo.Insert(ctx, &token.AuthToken{ID: "t3", UserID: "u2", CreatedAt: now}))

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "t1", list[0].ID)

	updated, err := repo.Update(ctx, "t1", func(tok *token.AuthToken) error {
		return tok.Revoke(now)
	})
	require.NoError(t, err)
	require.NotNil(t, updated.RevokedAt)

	got, err := repo.Get(ctx, "t1")
	require.NoError(t, err)
	require.False(t, got.IsValid(now))

	_, err = repo.Get(ctx, "nope")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
