// Package tokenrequests is the public intake queue for director access and
// the admin state machine that turns a request into an account.
package tokenrequests

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/trivia-director/audit"
	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/internal/metrics"
	"github.com/jrsteele09/trivia-director/notify"
	"github.com/jrsteele09/trivia-director/token"
	"github.com/jrsteele09/trivia-director/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultDeviceLimit  = 3
	DefaultDeviceWindow = 24 * time.Hour
)

// Provisioner creates accounts and tokens on behalf of an admin. Each
// call appends its own audit entry.
type Provisioner interface {
	RequireAdmin(ctx context.Context, adminID string) (*users.User, error)
	CreateUser(ctx context.Context, adminID, username string) (*users.User, string, error)
	IssueToken(ctx context.Context, adminID, userID string, expiry *time.Duration) (*token.Issued, error)
	RevokeToken(ctx context.Context, adminID, tokenID string) (*token.AuthToken, error)
	DeleteUser(ctx context.Context, adminID, userID string) error
}

// Approval is the result of approving a request. Plaintext is shown once.
type Approval struct {
	Request   *Request         `json:"request"`
	User      users.Public     `json:"user"`
	Token     *token.AuthToken `json:"token"`
	Plaintext string           `json:"plaintext"`
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Status Status
	Limit  int
}

type Workflow struct {
	repo         Repo
	provisioner  Provisioner
	sender       notify.Sender
	audit        *audit.Log
	recipient    string
	deviceLimit  int
	deviceWindow time.Duration
	nowTime      func() time.Time
	logger       zerolog.Logger
}

type WorkflowOption func(*Workflow)

func WithNowTime(nowFunc func() time.Time) WorkflowOption {
	return func(w *Workflow) {
		w.nowTime = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) WorkflowOption {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// WithDeviceLimit caps submissions per device within the trailing window.
func WithDeviceLimit(limit int, window time.Duration) WorkflowOption {
	return func(w *Workflow) {
		if limit > 0 {
			w.deviceLimit = limit
		}
		if window > 0 {
			w.deviceWindow = window
		}
	}
}

// WithRecipient sets the admin inbox notified about new requests.
func WithRecipient(email string) WorkflowOption {
	return func(w *Workflow) {
		w.recipient = email
	}
}

func NewWorkflow(repo Repo, provisioner Provisioner, sender notify.Sender, auditLog *audit.Log, options ...WorkflowOption) (*Workflow, error) {
	if repo == nil {
		return nil, errors.New("[tokenrequests.NewWorkflow] repo is required")
	}
	if provisioner == nil {
		return nil, errors.New("[tokenrequests.NewWorkflow] provisioner is required")
	}
	if sender == nil {
		return nil, errors.New("[tokenrequests.NewWorkflow] sender is required")
	}
	if auditLog == nil {
		return nil, errors.New("[tokenrequests.NewWorkflow] audit log is required")
	}
	w := &Workflow{
		repo:         repo,
		provisioner:  provisioner,
		sender:       sender,
		audit:        auditLog,
		deviceLimit:  DefaultDeviceLimit,
		deviceWindow: DefaultDeviceWindow,
		nowTime:      time.Now,
		logger:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(w)
	}
	return w, nil
}

// Submit validates and stores a public request, then notifies the admin
// inbox. A failed notification is recorded on the request and does not
// fail the submission.
func (w *Workflow) Submit(ctx context.Context, sub Submission) (*Request, error) {
	sub.normalize()
	if err := sub.Validate(); err != nil {
		metrics.TokenRequests.WithLabelValues("invalid").Inc()
		return nil, err
	}

	now := w.nowTime().UTC()
	req := &Request{
		ID:                uuid.NewString(),
		FullName:          sub.FullName,
		Email:             sub.Email,
		TiktokHandle:      sub.TiktokHandle,
		Phone:             sub.Phone,
		PreferredUsername: sub.PreferredUsername,
		Notes:             sub.Notes,
		Status:            StatusPending,
		EmailStatus:       EmailPending,
		DeviceHash:        sub.DeviceHash,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := w.repo.Insert(ctx, req, func(existing []Request) error {
		return w.admissible(req, existing, now)
	})
	switch {
	case apperrors.Is(err, apperrors.ErrRateLimited):
		metrics.TokenRequests.WithLabelValues("rate_limited").Inc()
		return nil, err
	case apperrors.Is(err, apperrors.ErrDuplicateRequest):
		metrics.TokenRequests.WithLabelValues("duplicate").Inc()
		return nil, err
	case err != nil:
		return nil, errors.Wrap(err, "[Workflow.Submit] storing request")
	}
	metrics.TokenRequests.WithLabelValues("accepted").Inc()

	return w.dispatch(ctx, req), nil
}

// admissible enforces the per-device limit and rejects a second PENDING
// request for the same handle or username.
func (w *Workflow) admissible(req *Request, existing []Request, now time.Time) error {
	cutoff := now.Add(-w.deviceWindow)
	fromDevice := 0
	handle := handleKey(req.TiktokHandle)
	username := strings.ToLower(req.PreferredUsername)
	for i := range existing {
		e := &existing[i]
		if e.DeviceHash == req.DeviceHash && e.CreatedAt.After(cutoff) {
			fromDevice++
		}
	}
	if fromDevice >= w.deviceLimit {
		return apperrors.ErrRateLimited
	}
	for i := range existing {
		e := &existing[i]
		if e.Status != StatusPending {
			continue
		}
		if handleKey(e.TiktokHandle) == handle {
			return errors.Wrap(apperrors.ErrDuplicateRequest, "tiktok handle")
		}
		if strings.ToLower(e.PreferredUsername) == username {
			return errors.Wrap(apperrors.ErrDuplicateRequest, "preferred username")
		}
	}
	return nil
}

// dispatch sends the admin notification and records the outcome on the
// request. It always returns the freshest copy it has.
func (w *Workflow) dispatch(ctx context.Context, req *Request) *Request {
	_, sendErr := w.sender.SendEmail(ctx, w.notification(req))

	updated, err := w.repo.Update(ctx, req.ID, func(r *Request) error {
		r.UpdatedAt = w.nowTime().UTC()
		if sendErr != nil {
			r.EmailStatus = EmailFailed
			r.LastError = sendErr.Error()
			return nil
		}
		r.EmailStatus = EmailSent
		r.LastError = ""
		return nil
	})
	if sendErr != nil {
		w.logger.Warn().Err(sendErr).Str("request_id", req.ID).Msg("token request notification failed")
	}
	if err != nil {
		w.logger.Error().Err(err).Str("request_id", req.ID).Msg("failed to record notification status")
		return req
	}
	return updated
}

func (w *Workflow) notification(req *Request) notify.Email {
	var body strings.Builder
	fmt.Fprintf(&body, "Name: %s\n", req.FullName)
	fmt.Fprintf(&body, "Email: %s\n", req.Email)
	fmt.Fprintf(&body, "TikTok: %s\n", req.TiktokHandle)
	fmt.Fprintf(&body, "Phone: %s\n", req.Phone)
	fmt.Fprintf(&body, "Preferred username: %s\n", req.PreferredUsername)
	if req.Notes != "" {
		fmt.Fprintf(&body, "Notes: %s\n", req.Notes)
	}
	fmt.Fprintf(&body, "Submitted: %s\n", req.CreatedAt.Format(time.RFC1123))
	return notify.Email{
		To:      w.recipient,
		Subject: fmt.Sprintf("New director token request from %s", req.TiktokHandle),
		Body:    body.String(),
	}
}

// Approve creates the requested account with a permanent token and marks
// the request APPROVED. A username collision leaves the request as it was.
func (w *Workflow) Approve(ctx context.Context, adminID, requestID string) (*Approval, error) {
	if _, err := w.provisioner.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	req, err := w.repo.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransition(StatusApproved) {
		return nil, errors.Wrapf(apperrors.ErrInvalidTransition, "%s to %s", req.Status, StatusApproved)
	}

	user, _, err := w.provisioner.CreateUser(ctx, adminID, req.PreferredUsername)
	if apperrors.Is(err, apperrors.ErrDuplicateUsername) {
		return nil, errors.Wrapf(apperrors.ErrUsernameTaken, "%q", req.PreferredUsername)
	}
	if err != nil {
		return nil, err
	}
	issued, err := w.provisioner.IssueToken(ctx, adminID, user.ID, nil)
	if err != nil {
		w.rollbackApproval(ctx, adminID, user.ID, "")
		return nil, errors.Wrap(err, "[Workflow.Approve] issuing token")
	}

	updated, err := w.repo.Update(ctx, requestID, func(r *Request) error {
		if !r.Status.CanTransition(StatusApproved) {
			return errors.Wrapf(apperrors.ErrInvalidTransition, "%s to %s", r.Status, StatusApproved)
		}
		r.Status = StatusApproved
		r.ApprovedUserID = user.ID
		r.ApprovedTokenID = issued.Token.ID
		r.UpdatedAt = w.nowTime().UTC()
		return nil
	})
	if err != nil {
		w.rollbackApproval(ctx, adminID, user.ID, issued.Token.ID)
		return nil, errors.Wrap(err, "[Workflow.Approve] updating request")
	}
	metrics.TokenRequests.WithLabelValues("approved").Inc()
	w.logger.Info().Str("request_id", requestID).Str("user_id", user.ID).Msg("token request approved")

	return &Approval{
		Request:   updated,
		User:      user.Public(),
		Token:     issued.Token,
		Plaintext: issued.Plaintext,
	}, nil
}

// rollbackApproval revokes the token and deletes the account provisioned
// by an approval that could not be recorded on the request.
func (w *Workflow) rollbackApproval(ctx context.Context, adminID, userID, tokenID string) {
	if tokenID != "" {
		if _, err := w.provisioner.RevokeToken(ctx, adminID, tokenID); err != nil {
			w.logger.Error().Err(err).Str("token_id", tokenID).Msg("failed to revoke token of abandoned approval")
		}
	}
	if err := w.provisioner.DeleteUser(ctx, adminID, userID); err != nil {
		w.logger.Error().Err(err).Str("user_id", userID).Msg("failed to delete user of abandoned approval")
	}
}

// SetStatus moves a request to CONTACTED or REJECTED.
func (w *Workflow) SetStatus(ctx context.Context, adminID, requestID string, status Status) (*Request, error) {
	admin, err := w.provisioner.RequireAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if status != StatusContacted && status != StatusRejected {
		return nil, apperrors.NewValidation("status", "must be %s or %s", StatusContacted, StatusRejected)
	}

	var from Status
	updated, err := w.repo.Update(ctx, requestID, func(r *Request) error {
		if !r.Status.CanTransition(status) {
			return errors.Wrapf(apperrors.ErrInvalidTransition, "%s to %s", r.Status, status)
		}
		from = r.Status
		r.Status = status
		r.UpdatedAt = w.nowTime().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if status == StatusRejected {
		metrics.TokenRequests.WithLabelValues("rejected").Inc()
	}
	if err := w.audit.Record(ctx, audit.ActionRequestStatusChanged, admin.ID, "", map[string]any{
		"requestId": requestID,
		"from":      string(from),
		"to":        string(status),
	}); err != nil {
		w.logger.Error().Err(err).Msg("failed to append audit entry")
	}
	return updated, nil
}

// RetryNotification re-sends the admin notification of a request whose
// previous attempt failed.
func (w *Workflow) RetryNotification(ctx context.Context, adminID, requestID string) (*Request, error) {
	if _, err := w.provisioner.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	req, err := w.repo.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.EmailStatus != EmailFailed {
		return nil, errors.Wrapf(apperrors.ErrInvalidTransition, "email status is %s", req.EmailStatus)
	}
	return w.dispatch(ctx, req), nil
}

// List returns requests newest first.
func (w *Workflow) List(ctx context.Context, adminID string, filter Filter) ([]Request, error) {
	if _, err := w.provisioner.RequireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	items, err := w.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Request, 0, len(items))
	for _, r := range items {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}
