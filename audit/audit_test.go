package audit_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jrsteele09/trivia-director/audit"
	"github.com/jrsteele09/trivia-director/storage"
	"github.com/stretchr/testify/require"
)

func TestLog_NewestFirstAndCapped(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 14, 21, 0, 0, 0, time.UTC)
	log := audit.New(storage.NewMemoryStore(), audit.WithCap(3), audit.WithNowTime(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, log.Record(ctx, audit.ActionSessionCreated, fmt.Sprintf("u%d", i), "", nil))
	}

	entries, err := log.Query(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "u4", entries[0].ActorID)
	require.Equal(t, "u2", entries[2].ActorID)
	require.True(t, entries[0].Timestamp.After(entries[1].Timestamp))
	require.NotEmpty(t, entries[0].ID)
}

func TestLog_QueryFilter(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 2, 14, 21, 0, 0, 0, time.UTC)
	log := audit.New(storage.NewMemoryStore())

	_, err := log.Append(ctx, audit.Entry{Timestamp: base, Action: audit.ActionUserCreated, ActorID: "admin", TargetUserID: "u1"})
	require.NoError(t, err)
	_, err = log.Append(ctx, audit.Entry{Timestamp: base.Add(time.Minute), Action: audit.ActionTokenIssued, ActorID: "admin", TargetUserID: "u1",
		Metadata: map[string]any{"tokenId": "t1"}})
	require.NoError(t, err)
	_, err = log.Append(ctx, audit.Entry{Timestamp: base.Add(2 * time.Minute), Action: audit.ActionSessionCreated, ActorID: "u1", TargetUserID: "u1"})
	require.NoError(t, err)

	byAction, err := log.Query(ctx, audit.Filter{Action: audit.ActionTokenIssued})
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	require.Equal(t, "t1", byAction[0].Metadata["tokenId"])

	byActor, err := log.Query(ctx, audit.Filter{ActorID: "admin"})
	require.NoError(t, err)
	require.Len(t, byActor, 2)

	since, err := log.Query(ctx, audit.Filter{TargetUserID: "u1", Since: base.Add(30 * time.Second)})
	require.NoError(t, err)
	require.Len(t, since, 2)

	limited, err := log.Query(ctx, audit.Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, audit.ActionSessionCreated, limited[0].Action)
}
