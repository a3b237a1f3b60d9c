package tokenrequests_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/trivia-director/audit"
	"github.com/jrsteele09/trivia-director/auth"
	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/notify"
	"github.com/jrsteele09/trivia-director/sessions"
	"github.com/jrsteele09/trivia-director/storage"
	"github.com/jrsteele09/trivia-director/token"
	"github.com/jrsteele09/trivia-director/tokenrequests"
	"github.com/jrsteele09/trivia-director/users"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []notify.Email
	err  error
}

func (s *fakeSender) SendEmail(_ context.Context, email notify.Email) (notify.Result, error) {
	if s.err != nil {
		return notify.Result{}, s.err
	}
	s.sent = append(s.sent, email)
	return notify.Result{Provider: "fake"}, nil
}

// hookedRequests runs a one-shot callback before the next Update so a
// competing admin action can land between the read and the write.
type hookedRequests struct {
	tokenrequests.Repo
	beforeUpdate func()
}

func (h *hookedRequests) Update(ctx context.Context, id string, fn func(r *tokenrequests.Request) error) (*tokenrequests.Request, error) {
	if hook := h.beforeUpdate; hook != nil {
		h.beforeUpdate = nil
		hook()
	}
	return h.Repo.Update(ctx, id, fn)
}

type testFixture struct {
	ctx      context.Context
	now      time.Time
	audit    *audit.Log
	auth     *auth.Service
	sender   *fakeSender
	requests *hookedRequests
	workflow *tokenrequests.Workflow
	adminID  string
}

func (f *testFixture) nowTime() time.Time { return f.now }

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		ctx:    context.Background(),
		now:    time.Date(2026, 7, 4, 18, 0, 0, 0, time.UTC),
		sender: &fakeSender{},
	}
	store := storage.NewMemoryStore()
	f.audit = audit.New(store, audit.WithNowTime(f.nowTime))

	service, err := auth.NewService(auth.Repos{
		Users:    users.NewKVRepo(store),
		Tokens:   token.NewKVRepo(store),
		Sessions: sessions.NewKVRepo(store),
	}, f.audit, auth.WithNowTime(f.nowTime))
	require.NoError(t, err)
	f.auth = service

	admin, _, _, err := service.BootstrapAdmin(f.ctx, "admin")
	require.NoError(t, err)
	f.adminID = admin.ID

	f.requests = &hookedRequests{Repo: tokenrequests.NewKVRepo(store)}
	f.workflow, err = tokenrequests.NewWorkflow(f.requests, service, f.sender, f.audit,
		tokenrequests.WithNowTime(f.nowTime),
		tokenrequests.WithRecipient("host@example.com"),
	)
	require.NoError(t, err)
	return f
}

func validSubmission() tokenrequests.Submission {
	return tokenrequests.Submission{
		FullName:          "Alice Example",
		Email:             "alice@example.com",
		TiktokHandle:      "@alice.trivia",
		Phone:             "+44 7700 900000",
		PreferredUsername: "alice",
		DeviceHash:        "device-1",
	}
}

func (f *testFixture) auditCount(t *testing.T) int {
	t.Helper()
	entries, err := f.audit.Query(f.ctx, audit.Filter{})
	require.NoError(t, err)
	return len(entries)
}

func TestSubmit_PersistsAndNotifies(t *testing.T) {
	f := setupTestFixture(t)

	req, err := f.workflow.Submit(f.ctx, validSubmission())
	require.NoError(t, err)
	require.Equal(t, tokenrequests.StatusPending, req.Status)
	require.Equal(t, tokenrequests.EmailSent, req.EmailStatus)
	require.Len(t, f.sender.sent, 1)
	require.Equal(t, "host@example.com", f.sender.sent[0].To)
	require.Contains(t, f.sender.sent[0].Body, "Preferred username: alice")
}

func TestSubmit_ValidationOrder(t *testing.T) {
	f := setupTestFixture(t)

	tests := []struct {
		name  string
		edit  func(s *tokenrequests.Submission)
		field string
	}{
		{"name too short", func(s *tokenrequests.Submission) { s.FullName = "A" }, "fullName"},
		{"name checked before email", func(s *tokenrequests.Submission) { s.FullName = ""; s.Email = "bad" }, "fullName"},
		{"bad email", func(s *tokenrequests.Submission) { s.Email = "alice@example" }, "email"},
		{"bad handle", func(s *tokenrequests.Submission) { s.TiktokHandle = "@a" }, "tiktokHandle"},
		{"handle with dash", func(s *tokenrequests.Submission) { s.TiktokHandle = "alice-trivia" }, "tiktokHandle"},
		{"no phone", func(s *tokenrequests.Submission) { s.Phone = "  " }, "phone"},
		{"short username", func(s *tokenrequests.Submission) { s.PreferredUsername = "al" }, "preferredUsername"},
		{"username with space", func(s *tokenrequests.Submission) { s.PreferredUsername = "ali ce" }, "preferredUsername"},
		{"no device", func(s *tokenrequests.Submission) { s.DeviceHash = "" }, "deviceHash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.edit(&sub)
			_, err := f.workflow.Submit(f.ctx, sub)
			require.ErrorIs(t, err, apperrors.ErrValidation)
			var vErr *apperrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Equal(t, tt.field, vErr.Field)
			require.Equal(t, apperrors.CodeValidation, apperrors.PublicCode(err))
		})
	}
	require.Empty(t, f.sender.sent)
}

func TestSubmit_DuplicateThenResubmitAfterRejected(t *testing.T) {
	f := setupTestFixture(t)

	first, err := f.workflow.Submit(f.ctx, validSubmission())
	require.NoError(t, err)

	dup := validSubmission()
	dup.TiktokHandle = "ALICE.TRIVIA"
	dup.PreferredUsername = "someone_else"
	dup.DeviceHash = "device-2"
	_, err = f.workflow.Submit(f.ctx, dup)
	require.ErrorIs(t, err, apperrors.ErrDuplicateRequest)
	require.Equal(t, apperrors.CodeDuplicateRequest, apperrors.PublicCode(err))

	dup = validSubmission()
	dup.TiktokHandle = "other_handle"
	dup.PreferredUsername = "ALICE"
	dup.DeviceHash = "device-2"
	_, err = f.workflow.Submit(f.ctx, dup)
	require.ErrorIs(t, err, apperrors.ErrDuplicateRequest)

	_, err = f.workflow.SetStatus(f.ctx, f.adminID, first.ID, tokenrequests.StatusRejected)
	require.NoError(t, err)

	_, err = f.workflow.Submit(f.ctx, validSubmission())
	require.NoError(t, err)
}

func TestSubmit_DeviceLimit(t *testing.T) {
	f := setupTestFixture(t)

	for i, handle := range []string{"handle_one", "handle_two", "handle_three"} {
		sub := validSubmission()
		sub.TiktokHandle = handle
		sub.PreferredUsername = handle
		_, err := f.workflow.Submit(f.ctx, sub)
		require.NoError(t, err, "submission %d", i+1)
		f.now = f.now.Add(time.Hour)
	}

	sub := validSubmission()
	_, err := f.workflow.Submit(f.ctx, sub)
	require.ErrorIs(t, err, apperrors.ErrRateLimited)
	require.Equal(t, apperrors.CodeRateLimit, apperrors.PublicCode(err))

	// the first submission slides out of the 24h window
	f.now = f.now.Add(21*time.Hour + time.Second)
	_, err = f.workflow.Submit(f.ctx, sub)
	require.NoError(t, err)
}

func TestSubmit_NotificationFailureIsRecorded(t *testing.T) {
	f := setupTestFixture(t)
	f.sender.err = errors.New("smtp down")

	req, err := f.workflow.Submit(f.ctx, validSubmission())
	require.NoError(t, err)
	require.Equal(t, tokenrequests.EmailFailed, req.EmailStatus)
	require.Contains(t, req.LastError, "smtp down")

	_, err = f.workflow.RetryNotification(f.ctx, "nobody", req.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	f.sender.err = nil
	retried, err := f.workflow.RetryNotification(f.ctx, f.adminID, req.ID)
	require.NoError(t, err)
	require.Equal(t, tokenrequests.EmailSent, retried.EmailStatus)
	require.Empty(t, retried.LastError)

	_, err = f.workflow.RetryNotification(f.ctx, f.adminID, req.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestApprove_CreatesUserAndPermanentToken(t *testing.T) {
	f := setupTestFixture(t)
	req, err := f.workflow.Submit(f.ctx, validSubmission())
	require.NoError(t, err)
	before := f.auditCount(t)

	approval, err := f.workflow.Approve(f.ctx, f.adminID, req.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", approval.User.Username)
	require.True(t, approval.Token.Permanent())
	require.NotEmpty(t, approval.Plaintext)
	require.Equal(t, tokenrequests.StatusApproved, approval.Request.Status)
	require.Equal(t, approval.User.ID, approval.Request.ApprovedUserID)
	require.Equal(t, approval.Token.ID, approval.Request.ApprovedTokenID)

	entries, err := f.audit.Query(f.ctx, audit.Filter{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, before+2, f.auditCount(t))
	require.Equal(t, audit.ActionTokenIssued, entries[0].Action)
	require.Equal(t, audit.ActionUserCreated, entries[1].Action)

	session, err := f.auth.Login(f.ctx, "alice", approval.Plaintext, "test")
	require.NoError(t, err)
	require.Equal(t, approval.User.ID, session.UserID)

	_, err = f.workflow.Approve(f.ctx, f.adminID, req.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestApprove_UsernameTakenLeavesRequestUnchanged(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.auth.Register(f.ctx, "alice", "test")
	require.NoError(t, err)

	req, err := f.workflow.Submit(f.ctx, validSubmission())
	require.NoError(t, err)

	_, err = f.workflow.Approve(f.ctx, f.adminID, req.ID)
	require.ErrorIs(t, err, apperrors.ErrUsernameTaken)

	list, err := f.workflow.List(f.ctx, f.adminID, tokenrequests.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, tokenrequests.StatusPending, list[0].Status)
	require.Empty(t, list[0].ApprovedUserID)
}

func TestApprove_RejectedMeanwhileRollsBackAccount(t *testing.T) {
	f := setupTestFixture(t)
	req, err := f.workflow.Submit(f.ctx, validSubmission())
	require.NoError(t, err)

	f.requests.beforeUpdate = func() {
		_, err := f.workflow.SetStatus(f.ctx, f.adminID, req.ID, tokenrequests.StatusRejected)
		require.NoError(t, err)
	}
	_, err = f.workflow.Approve(f.ctx, f.adminID, req.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	stored, err := f.requests.Get(f.ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, tokenrequests.StatusRejected, stored.Status)
	require.Empty(t, stored.ApprovedUserID)

	revoked, err := f.audit.Query(f.ctx, audit.Filter{Action: audit.ActionTokenRevoked})
	require.NoError(t, err)
	require.Len(t, revoked, 1)
	deleted, err := f.audit.Query(f.ctx, audit.Filter{Action: audit.ActionUserDeleted})
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	require.Equal(t, revoked[0].TargetUserID, deleted[0].TargetUserID)

	tokens, err := f.auth.ListTokens(f.ctx, f.adminID, deleted[0].TargetUserID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.NotNil(t, tokens[0].RevokedAt)

	list, err := f.auth.ListUsers(f.ctx, f.adminID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	_, err = f.auth.Register(f.ctx, "alice", "test")
	require.NoError(t, err)
}

func TestSetStatus_Transitions(t *testing.T) {
	f := setupTestFixture(t)
	req, err := f.workflow.Submit(f.ctx, validSubmission())
	require.NoError(t, err)

	_, err = f.workflow.SetStatus(f.ctx, f.adminID, req.ID, tokenrequests.StatusApproved)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	contacted, err := f.workflow.SetStatus(f.ctx, f.adminID, req.ID, tokenrequests.StatusContacted)
	require.NoError(t, err)
	require.Equal(t, tokenrequests.StatusContacted, contacted.Status)

	_, err = f.workflow.SetStatus(f.ctx, f.adminID, req.ID, tokenrequests.StatusContacted)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	entries, err := f.audit.Query(f.ctx, audit.Filter{Action: audit.ActionRequestStatusChanged})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "PENDING", entries[0].Metadata["from"])
	require.Equal(t, "CONTACTED", entries[0].Metadata["to"])

	approval, err := f.workflow.Approve(f.ctx, f.adminID, req.ID)
	require.NoError(t, err)
	require.Equal(t, tokenrequests.StatusApproved, approval.Request.Status)

	_, err = f.workflow.SetStatus(f.ctx, f.adminID, req.ID, tokenrequests.StatusRejected)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestList_NewestFirstAndFiltered(t *testing.T) {
	f := setupTestFixture(t)
	first, err := f.workflow.Submit(f.ctx, validSubmission())
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	sub := validSubmission()
	sub.TiktokHandle = "bob_quiz"
	sub.PreferredUsername = "bob"
	second, err := f.workflow.Submit(f.ctx, sub)
	require.NoError(t, err)

	_, err = f.workflow.SetStatus(f.ctx, f.adminID, first.ID, tokenrequests.StatusRejected)
	require.NoError(t, err)

	all, err := f.workflow.List(f.ctx, f.adminID, tokenrequests.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, second.ID, all[0].ID)

	rejected, err := f.workflow.List(f.ctx, f.adminID, tokenrequests.Filter{Status: tokenrequests.StatusRejected})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	require.Equal(t, first.ID, rejected[0].ID)

	_, err = f.workflow.List(f.ctx, "nobody", tokenrequests.Filter{})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}
