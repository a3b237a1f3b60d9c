package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/trivia-director/audit"
	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/internal/metrics"
	"github.com/jrsteele09/trivia-director/internal/utils"
	"github.com/jrsteele09/trivia-director/token"
	"github.com/jrsteele09/trivia-director/users"
	"github.com/pkg/errors"
)

// requireAdmin resolves the acting admin. Unknown, revoked and non-admin
// actors are all ErrForbidden.
func (s *Service) requireAdmin(ctx context.Context, adminID string) (*users.User, error) {
	admin, err := s.users.FindByID(ctx, adminID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrForbidden
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Service.requireAdmin]")
	}
	if !admin.IsActive() || !admin.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	return admin, nil
}

// CreateUser provisions a user on behalf of an admin with the relaxed
// username rules. The returned plaintext is the registration credential.
func (s *Service) CreateUser(ctx context.Context, adminID, username string) (*users.User, string, error) {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, "", err
	}
	user, plaintext, err := s.users.CreateUser(ctx, username, users.CreateOptions{Role: users.RoleUser, Relaxed: true})
	if err != nil {
		return nil, "", err
	}
	s.record(ctx, audit.ActionUserCreated, admin.ID, user.ID, map[string]any{
		"username": user.Username,
		"source":   "admin",
	})
	return user, plaintext, nil
}

// BootstrapAdmin creates the admin account when no user of that name
// exists. created is false when the admin was already present.
func (s *Service) BootstrapAdmin(ctx context.Context, username string) (user *users.User, plaintext string, created bool, err error) {
	existing, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return existing, "", false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, "", false, errors.Wrap(err, "[Service.BootstrapAdmin] lookup")
	}
	user, plaintext, err = s.users.CreateUser(ctx, username, users.CreateOptions{Role: users.RoleAdmin, Relaxed: true})
	if err != nil {
		return nil, "", false, err
	}
	s.record(ctx, audit.ActionUserCreated, user.ID, user.ID, map[string]any{
		"username": user.Username,
		"source":   "bootstrap",
	})
	return user, plaintext, true, nil
}

// IssueToken creates a new bearer token for userID. A nil expiry issues a
// permanent token.
func (s *Service) IssueToken(ctx context.Context, adminID, userID string, expiry *time.Duration) (*token.Issued, error) {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if expiry != nil && *expiry <= 0 {
		return nil, apperrors.NewValidation("expiry", "must be positive")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	plaintext, err := token.GenerateSecret(s.secretLength)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.IssueToken] generate")
	}
	hash, salt, err := token.HashSecret(plaintext, s.saltLength)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.IssueToken] hash")
	}
	now := s.nowTime().UTC()
	t := &token.AuthToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Hash:      hash,
		Salt:      salt,
		IssuedBy:  admin.ID,
		CreatedAt: now,
	}
	if expiry != nil {
		t.ExpiresAt = utils.Ptr(now.Add(*expiry))
	}
	if err := s.tokens.Insert(ctx, t); err != nil {
		return nil, errors.Wrap(err, "[Service.IssueToken] storing token")
	}

	metadata := map[string]any{"tokenId": t.ID, "permanent": t.Permanent()}
	if t.ExpiresAt != nil {
		metadata["expiresAt"] = t.ExpiresAt.Format(time.RFC3339)
	}
	s.record(ctx, audit.ActionTokenIssued, admin.ID, user.ID, metadata)
	return &token.Issued{Token: t, Plaintext: plaintext}, nil
}

// RevokeToken revokes a token. Revoking twice is ErrTokenRevoked.
func (s *Service) RevokeToken(ctx context.Context, adminID, tokenID string) (*token.AuthToken, error) {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	now := s.nowTime().UTC()
	t, err := s.tokens.Update(ctx, tokenID, func(t *token.AuthToken) error {
		return t.Revoke(now)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionTokenRevoked, admin.ID, t.UserID, map[string]any{"tokenId": t.ID})
	return t, nil
}

// SetUserStatus activates or revokes a user. Revoking also ends the user's
// sessions.
func (s *Service) SetUserStatus(ctx context.Context, adminID, userID string, status users.Status) (*users.User, error) {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.SetStatus(ctx, userID, status)
	if err != nil {
		return nil, err
	}
	metadata := map[string]any{"status": string(status)}
	if status == users.StatusRevoked {
		n, err := s.sessions.DeleteByUser(ctx, userID)
		if err != nil {
			return nil, errors.Wrap(err, "[Service.SetUserStatus] dropping sessions")
		}
		if n > 0 {
			metrics.SessionsRevoked.WithLabelValues("user_revoked").Add(float64(n))
		}
		metadata["sessionsRemoved"] = n
	}
	s.record(ctx, audit.ActionUserStatusChanged, admin.ID, userID, metadata)
	return user, nil
}

// ForceLogout ends every session of userID and returns how many ended.
func (s *Service) ForceLogout(ctx context.Context, adminID, userID string) (int, error) {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return 0, err
	}
	n, err := s.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, errors.Wrap(err, "[Service.ForceLogout]")
	}
	metrics.SessionsRevoked.WithLabelValues("forced").Add(float64(n))
	s.record(ctx, audit.ActionForceLogout, admin.ID, userID, map[string]any{"count": n})
	return n, nil
}

// DeleteUser hard-deletes a user together with their sessions. Issued
// tokens are kept for the record but can no longer match a user.
func (s *Service) DeleteUser(ctx context.Context, adminID, userID string) error {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return err
	}
	if admin.ID == userID {
		return apperrors.NewValidation("userId", "admins cannot delete themselves")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	if _, err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to drop sessions of deleted user")
	}
	s.record(ctx, audit.ActionUserDeleted, admin.ID, userID, nil)
	return nil
}

func (s *Service) ListUsers(ctx context.Context, adminID string) ([]users.Public, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	list, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]users.Public, len(list))
	for i, u := range list {
		out[i] = u.Public()
	}
	return out, nil
}

func (s *Service) ListTokens(ctx context.Context, adminID, userID string) ([]*token.AuthToken, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return s.tokens.ListByUser(ctx, userID)
}

func (s *Service) ListAuditLogs(ctx context.Context, adminID string, filter audit.Filter) ([]audit.Entry, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return s.audit.Query(ctx, filter)
}

// RequireAdmin returns the acting admin or ErrForbidden.
func (s *Service) RequireAdmin(ctx context.Context, adminID string) (*users.User, error) {
	return s.requireAdmin(ctx, adminID)
}
