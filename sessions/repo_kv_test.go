package sessions_test

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/sessions"
	"github.com/jrsteele09/trivia-director/storage"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	a, err := sessions.NewID(sessions.DefaultIDLength)
	require.NoError(t, err)
	b, err := sessions.NewID(sessions.DefaultIDLength)
	require.NoError(t, err)
	require.Len(t, a, 43)
	require.NotEqual(t, a, b)
}

func TestKVRepo(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 20, 0, 0, 0, time.UTC)
	repo := sessions.NewKVRepo(storage.NewMemoryStore())

	require.NoError(t, repo.Upsert(ctx, &sessions.Session{ID: "s1", UserID: "u1", ExpiresAt: now.Add(time.Minute)}))
	require.NoError(t, repo.Upsert(ctx, &sessions.Session{ID: "s2", UserID: "u1", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, repo.Upsert(ctx, &sessions.Session{ID: "s3", UserID: "u2", ExpiresAt: now.Add(time.Minute)}))

	s, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	s.ExpiresAt = now.Add(time.Hour)
	require.NoError(t, repo.Upsert(ctx, s))
	s, err = repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Hour), s.ExpiresAt)

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = repo.DeleteByUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.ErrorIs(t, repo.Delete(ctx, "s1"), apperrors.ErrSessionNotFound)
	require.NoError(t, repo.Delete(ctx, "s3"))
	_, err = repo.Get(ctx, "s3")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestKVRepo_ReplaceForUser(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 20, 0, 0, 0, time.UTC)
	repo := sessions.NewKVRepo(storage.NewMemoryStore())

	require.NoError(t, repo.Upsert(ctx, &sessions.Session{ID: "s1", UserID: "u1", ExpiresAt: now}))
	require.NoError(t, repo.Upsert(ctx, &sessions.Session{ID: "s2", UserID: "u2", ExpiresAt: now}))

	n, err := repo.ReplaceForUser(ctx, &sessions.Session{ID: "s3", UserID: "u1", ExpiresAt: now})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "s3", list[0].ID)

	n, err = repo.ReplaceForUser(ctx, &sessions.Session{ID: "s4", UserID: "u3", ExpiresAt: now})
	require.NoError(t, err)
	require.Zero(t, n)
	_, err = repo.Get(ctx, "s2")
	require.NoError(t, err)
}

func TestKVRepo_Renew(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 20, 0, 0, 0, time.UTC)
	repo := sessions.NewKVRepo(storage.NewMemoryStore())

	require.NoError(t, repo.Upsert(ctx, &sessions.Session{ID: "live", UserID: "u1", ExpiresAt: now}))
	require.NoError(t, repo.Upsert(ctx, &sessions.Session{ID: "lapsed", UserID: "u2", ExpiresAt: now.Add(-time.Second)}))

	renewed, err := repo.Renew(ctx, "live", now, time.Minute)
	require.NoError(t, err)
	require.Equal(t, now, renewed.LastHeartbeat)
	require.Equal(t, now.Add(time.Minute), renewed.ExpiresAt)
	stored, err := repo.Get(ctx, "live")
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Minute), stored.ExpiresAt)

	_, err = repo.Renew(ctx, "lapsed", now, time.Minute)
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	_, err = repo.Get(ctx, "lapsed")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	_, err = repo.Renew(ctx, "missing", now, time.Minute)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 4, 1, 20, 0, 0, 0, time.UTC)
	s := &sessions.Session{ExpiresAt: now}

	require.False(t, s.Expired(now.Add(-time.Nanosecond)))
	require.False(t, s.Expired(now))
	require.True(t, s.Expired(now.Add(time.Nanosecond)))
}
