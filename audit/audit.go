// Package audit keeps a bounded, newest-first log of security-relevant
// events. Entries are never edited after they are appended.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/trivia-director/storage"
	"github.com/pkg/errors"
)

const DefaultCap = 100

type Action string

const (
	ActionUserCreated            Action = "USER_CREATED"
	ActionUserStatusChanged      Action = "USER_STATUS_CHANGED"
	ActionUserDeleted            Action = "USER_DELETED"
	ActionSessionCreated         Action = "SESSION_CREATED"
	ActionSessionEnded           Action = "SESSION_ENDED"
	ActionSessionRevokedConflict Action = "SESSION_REVOKED_CONFLICT"
	ActionForceLogout            Action = "FORCE_LOGOUT"
	ActionTokenIssued            Action = "TOKEN_ISSUED"
	ActionTokenRevoked           Action = "TOKEN_REVOKED"
	ActionRequestStatusChanged   Action = "REQUEST_STATUS_CHANGED"
)

type Entry struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Action       Action         `json:"action"`
	ActorID      string         `json:"actorId,omitempty"`
	TargetUserID string         `json:"targetUserId,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Filter narrows Query results. Zero fields match everything.
type Filter struct {
	Action       Action
	ActorID      string
	TargetUserID string
	Since        time.Time
	Limit        int
}

func (f Filter) matches(e *Entry) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.TargetUserID != "" && e.TargetUserID != f.TargetUserID {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

type Log struct {
	entries *storage.Collection[Entry]
	cap     int
	nowTime func() time.Time
}

type Option func(*Log)

func WithNowTime(nowFunc func() time.Time) Option {
	return func(l *Log) {
		l.nowTime = nowFunc
	}
}

func WithCap(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.cap = n
		}
	}
}

func New(store storage.Store, options ...Option) *Log {
	l := &Log{
		entries: storage.NewCollection[Entry](store, storage.KeyAuditLogs),
		cap:     DefaultCap,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Append stamps the entry with an id and timestamp when missing, puts it
// at the head of the log and drops the oldest entries past the cap.
func (l *Log) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.nowTime().UTC()
	}
	err := l.entries.Update(ctx, func(items []Entry) ([]Entry, error) {
		items = append([]Entry{e}, items...)
		if len(items) > l.cap {
			items = items[:l.cap]
		}
		return items, nil
	})
	if err != nil {
		return Entry{}, errors.Wrap(err, "[audit.Log.Append]")
	}
	return e, nil
}

// Record is Append for callers that only have the fields.
func (l *Log) Record(ctx context.Context, action Action, actorID, targetUserID string, metadata map[string]any) error {
	_, err := l.Append(ctx, Entry{
		Action:       action,
		ActorID:      actorID,
		TargetUserID: targetUserID,
		Metadata:     metadata,
	})
	return err
}

// Query returns matching entries, newest first.
func (l *Log) Query(ctx context.Context, f Filter) ([]Entry, error) {
	items, err := l.entries.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[audit.Log.Query]")
	}
	out := make([]Entry, 0, len(items))
	for i := range items {
		if !f.matches(&items[i]) {
			continue
		}
		out = append(out, items[i])
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}
